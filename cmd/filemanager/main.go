// Command filemanager browses, transfers and renames objects in a bucket.
package main

import (
	"os"

	"github.com/yarokim83/filemanager/cmd/filemanager/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
