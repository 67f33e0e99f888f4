package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	cfgpkg "github.com/KaramelBytes/chartloom-cli/internal/config"
	"github.com/KaramelBytes/chartloom-cli/internal/store"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	initDataDir string
	initForce   bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a ChartLoom config and prepare the configured store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		// Refuse to overwrite an existing config.
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat config: %w", err)
		}

		c := config()
		if initDataDir != "" {
			if err := c.Set("data_dir", initDataDir); err != nil {
				return err
			}
		}
		if err := utils.EnsureDir(c.DataDir); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, path); err != nil {
			return err
		}
		// Opening once creates directories or schema for the backend.
		if err := withStore(cmd.Context(), func(store.Store) error { return nil }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Initialized %s store; config written to %s\n", c.StoreKind, path)
		return nil
	},
}

func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".chartloom", "config.yaml"), nil
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initDataDir, "data-dir", "", "directory for the file and sqlite stores")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config")
}
