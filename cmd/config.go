package cmd

import (
	"fmt"

	cfgpkg "github.com/KaramelBytes/chartloom-cli/internal/config"
	"github.com/KaramelBytes/chartloom-cli/internal/logging"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set ChartLoom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := config()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "store_kind: %s\n", c.StoreKind)
		if c.StoreDSN != "" {
			fmt.Fprintf(out, "store_dsn: %s\n", logging.SanitizeConnectionString(c.StoreDSN))
		}
		fmt.Fprintf(out, "data_dir: %s\n", c.DataDir)
		if c.RestURL != "" {
			fmt.Fprintf(out, "rest_url: %s\n", c.RestURL)
		}
		fmt.Fprintf(out, "rest_api_key: %s\n", mask(c.RestAPIKey))
		fmt.Fprintf(out, "http_timeout_sec: %d\n", c.HTTPTimeoutSec)
		fmt.Fprintf(out, "listen_addr: %s\n", c.ListenAddr)
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		if c.LoaderSampleSize > 0 {
			fmt.Fprintf(out, "loader_sample_size: %d\n", c.LoaderSampleSize)
		}
		fmt.Fprintf(out, "max_rows: %d\n", c.MaxRows)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:       "set <key> <value>",
	Short:     "Set a config value and save to disk",
	Args:      cobra.ExactArgs(2),
	ValidArgs: cfgpkg.Keys,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := config()
		if err := c.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
