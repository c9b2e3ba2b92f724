package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openlabtools/labauth/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Write a configuration file with default values.

The file is written to the path given with --config, or to the default
location at $XDG_CONFIG_HOME/labauth/config.yaml.

Examples:
  labauth init
  labauth init --config /etc/labauth/config.yaml
  labauth init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), path); err != nil {
		return err
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set directory.base_url and directory.api_key")
	fmt.Println("  2. Review the sync and groups sections")
	fmt.Println("  3. Start the service with: labauth serve")
	return nil
}
