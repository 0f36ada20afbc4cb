package cmd

import (
	"fmt"

	"github.com/Rana718/datamock/internal/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default " + config.ConfigFile,
	Long: `
Create ` + config.ConfigFile + ` in the current directory with the default
gateway endpoints, row count and log level. Every key can also be set
through the environment, e.g. DATAMOCK_GATEWAY_BASE_URL.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.ConfigFile
		}

		if err := config.WriteDefault(path, initForce); err != nil {
			return err
		}

		color.Green("✅ Created %s", path)
		fmt.Println()
		fmt.Println("🚀 Next steps:")
		fmt.Println("   datamock health               # Check the service is up")
		fmt.Println("   datamock parse schema.sql     # Inspect the parsed structure")
		fmt.Println("   datamock wizard schema.sql    # Configure and generate")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")
}
