package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yarokim83/filemanager/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
	Long: `Settings come from defaults, the config file, FILEMANAGER_* environment
variables and flags, each overriding the one before. GCS_BUCKET is accepted
as an alias for FILEMANAGER_BUCKET.`,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		if configPath != "" {
			fmt.Println(configPath)
			return nil
		}
		fmt.Println(config.DefaultPath())
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return printConfig(os.Stdout, cfg)
	},
}

func init() {
	configCmd.AddCommand(configPathCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func printConfig(w io.Writer, cfg *config.Config) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "bucket\t%s\n", cfg.Bucket)
	fmt.Fprintf(tw, "backend\t%s\n", cfg.Backend)
	fmt.Fprintf(tw, "region\t%s\n", cfg.Region)
	fmt.Fprintf(tw, "endpoint\t%s\n", cfg.Endpoint)
	fmt.Fprintf(tw, "force_path_style\t%t\n", cfg.ForcePathStyle)
	fmt.Fprintf(tw, "insecure\t%t\n", cfg.Insecure)
	fmt.Fprintf(tw, "max_retries\t%d\n", cfg.MaxRetries)
	fmt.Fprintf(tw, "timeout\t%s\n", cfg.Timeout)
	fmt.Fprintf(tw, "part_size\t%d\n", cfg.PartSize)
	fmt.Fprintf(tw, "cleanup\t%s\n", cfg.Cleanup)
	fmt.Fprintf(tw, "progress\t%s\n", cfg.Progress)
	fmt.Fprintf(tw, "metrics_addr\t%s\n", cfg.MetricsAddr)
	return tw.Flush()
}
