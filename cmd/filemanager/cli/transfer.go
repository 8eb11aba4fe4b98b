package cli

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yarokim83/filemanager/objstore"
)

var (
	putOverwrite bool
	mvOverwrite  bool
	mvPrefix     bool
)

var putCmd = &cobra.Command{
	Use:     "put <local-file> [name]",
	Aliases: []string{"upload"},
	Short:   "Upload a local file",
	Long: `Put uploads a local file to the bucket. Without a name the file keeps its
base name; a name ending in "/" places the file inside that folder.

Examples:
  filemanager put report.pdf
  filemanager put report.pdf docs/
  filemanager put --overwrite report.pdf docs/2024.pdf`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPut,
}

var getCmd = &cobra.Command{
	Use:     "get <name> [local-path]",
	Aliases: []string{"download"},
	Short:   "Download an object",
	Long: `Get downloads an object to a local path, creating missing directories.
Without a path the object is saved under its base name in the current
directory.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGet,
}

var moveCmd = &cobra.Command{
	Use:     "mv <src> <dest>",
	Aliases: []string{"rename"},
	Short:   "Rename an object or a folder",
	Long: `Mv renames an object. With --prefix it moves every object under the src
folder to the dest folder; objects that fail to copy are reported and left
in place.

Examples:
  filemanager mv a.txt b.txt
  filemanager mv --prefix photos/2023 archive/2023`,
	Args: cobra.ExactArgs(2),
	RunE: runMove,
}

func init() {
	putCmd.Flags().BoolVar(&putOverwrite, "overwrite", false, "Replace an existing object")
	moveCmd.Flags().BoolVar(&mvOverwrite, "overwrite", false, "Replace an existing destination")
	moveCmd.Flags().BoolVarP(&mvPrefix, "prefix", "p", false, "Treat src and dest as folders")
	rootCmd.AddCommand(putCmd, getCmd, moveCmd)
}

func runPut(cmd *cobra.Command, args []string) error {
	local, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	dest := ""
	if len(args) == 2 {
		dest = args[1]
	}
	dest = uploadName(local, dest)

	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	id, events, unsubscribe, err := start(s.mgr, func() (string, error) {
		return s.mgr.StartUploadLocal(ctx, local, dest, putOverwrite)
	})
	if err != nil {
		return err
	}
	defer unsubscribe()

	if _, err := watch(ctx, s.mgr, id, events, shouldShowProgress(s.cfg.Progress), dest); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Uploaded %s to %s\n", args[0], dest)
	return nil
}

// uploadName picks the object name for a local file.
func uploadName(local, dest string) string {
	base := filepath.Base(local)
	switch {
	case dest == "":
		return base
	case strings.HasSuffix(dest, objstore.Separator):
		return dest + base
	default:
		return dest
	}
}

func runGet(cmd *cobra.Command, args []string) error {
	name := args[0]
	target := path.Base(name)
	if len(args) == 2 {
		target = args[1]
	}
	local, err := filepath.Abs(target)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	id, events, unsubscribe, err := start(s.mgr, func() (string, error) {
		return s.mgr.StartDownload(ctx, name, local)
	})
	if err != nil {
		return err
	}
	defer unsubscribe()

	ev, err := watch(ctx, s.mgr, id, events, shouldShowProgress(s.cfg.Progress), name)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Saved %s to %s\n", name, ev.SavedTo)
	return nil
}

func runMove(cmd *cobra.Command, args []string) error {
	src, dest := args[0], args[1]

	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if !mvPrefix {
		name, err := s.mgr.Rename(ctx, src, dest, mvOverwrite)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Renamed %s to %s\n", src, name)
		return nil
	}

	id, events, unsubscribe, err := start(s.mgr, func() (string, error) {
		return s.mgr.StartRenamePrefix(ctx, src, dest, mvOverwrite)
	})
	if err != nil {
		return err
	}
	defer unsubscribe()

	ev, err := watch(ctx, s.mgr, id, events, shouldShowProgress(s.cfg.Progress), moveLabel(src, dest))
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Moved %d of %d objects\n", ev.Copied, ev.Count)
	if len(ev.Failed) == 0 {
		return nil
	}
	for _, f := range ev.Failed {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", f.Src, f.Error)
	}
	return fmt.Errorf("%d objects could not be moved", len(ev.Failed))
}

func moveLabel(src, dest string) string {
	return src + " -> " + dest
}
