package cli

import (
	"fmt"
	"math/big"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat <name>",
	Short: "Show object metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runStat,
}

var existsCmd = &cobra.Command{
	Use:   "exists <name>",
	Short: "Report whether an object exists",
	Long: `Exists prints "true" or "false". The exit status is 0 in both cases.`,
	Args: cobra.ExactArgs(1),
	RunE: runExists,
}

var removeCmd = &cobra.Command{
	Use:     "rm <name>",
	Aliases: []string{"delete"},
	Short:   "Delete an object",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <folder>",
	Short: "Create an empty folder",
	Long: `Mkdir creates the zero-byte marker object "<folder>/" so the folder shows
up in listings before anything is uploaded into it.`,
	Args: cobra.ExactArgs(1),
	RunE: runMkdir,
}

var rmdirCmd = &cobra.Command{
	Use:   "rmdir <folder>",
	Short: "Delete a folder and everything in it",
	Args:  cobra.ExactArgs(1),
	RunE:  runRmdir,
}

var usageCmd = &cobra.Command{
	Use:   "du [prefix]",
	Short: "Show storage used under a prefix",
	Long: `Du sums the size of every object under the prefix, or the whole bucket
when no prefix is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUsage,
}

func init() {
	rootCmd.AddCommand(statCmd, existsCmd, removeCmd, mkdirCmd, rmdirCmd, usageCmd)
}

func runStat(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	info, err := s.mgr.Stat(ctx, args[0])
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", info.Name)
	//nolint:gosec // G115: sizes reported by the store are never negative
	fmt.Fprintf(tw, "Size:\t%s (%d bytes)\n", humanize.IBytes(uint64(info.Size)), info.Size)
	fmt.Fprintf(tw, "Updated:\t%s\n", formatTime(info.Updated))
	if info.ContentType != "" {
		fmt.Fprintf(tw, "Content-Type:\t%s\n", info.ContentType)
	}
	return tw.Flush()
}

func runExists(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ok, err := s.mgr.Exists(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println(ok)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	deleted, err := s.mgr.Delete(ctx, args[0])
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Fprintf(os.Stderr, "%s did not exist\n", args[0])
		return nil
	}
	fmt.Fprintf(os.Stderr, "Deleted %s\n", args[0])
	return nil
}

func runMkdir(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.mgr.CreatePrefix(ctx, args[0])
	if err != nil {
		return err
	}
	if !res.Created {
		fmt.Fprintf(os.Stderr, "%s already exists\n", res.Name)
		return nil
	}
	fmt.Fprintf(os.Stderr, "Created %s\n", res.Name)
	return nil
}

func runRmdir(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	deleted, err := s.mgr.DeletePrefix(ctx, args[0])
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Fprintf(os.Stderr, "%s was empty\n", args[0])
		return nil
	}
	fmt.Fprintf(os.Stderr, "Deleted %s\n", args[0])
	return nil
}

func runUsage(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	prefix := ""
	if len(args) == 1 {
		prefix = args[0]
	}
	usage, err := s.mgr.BucketUsage(ctx, prefix)
	if err != nil {
		return err
	}
	fmt.Println(formatUsage(usage.Bytes, usage.Count))
	return nil
}

// formatUsage renders a decimal byte total that may exceed int64.
func formatUsage(bytes string, count int64) string {
	n, ok := new(big.Int).SetString(bytes, 10)
	if !ok {
		return fmt.Sprintf("%s bytes in %d objects", bytes, count)
	}
	return fmt.Sprintf("%s (%s bytes) in %d objects", humanize.BigIBytes(n), bytes, count)
}
