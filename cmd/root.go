package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/Rana718/datamock/internal/config"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	Version = "0.4.0"
)

func showBanner() {
	greenColor := color.New(color.FgGreen, color.Bold)

	banner := []string{
		"╔══════════════════════════════════════════════════════════╗",
		"║   ┌┬┐┌─┐┌┬┐┌─┐┌┬┐┌─┐┌─┐┬┌─                               ║",
		"║    ││├─┤ │ ├─┤││││ ││  ├┴┐                               ║",
		"║   ─┴┘┴ ┴ ┴ ┴ ┴┴ ┴└─┘└─┘┴ ┴                               ║",
		"║                                                          ║",
		"║     Mock data from your SQL schema, one upload away      ║",
		"╚══════════════════════════════════════════════════════════╝",
	}

	for _, line := range banner {
		greenColor.Println(line)
	}

	fmt.Print("                        ")
	color.New(color.FgCyan, color.Bold).Print("Version: ")
	color.New(color.FgYellow, color.Bold).Printf("%s\n", Version)
}

var rootCmd = &cobra.Command{
	Use:   "datamock",
	Short: "Generate mock data from a SQL schema",
	Long: `
datamock uploads a SQL schema (and optional seed data) to the data
generation service, lets you choose how many rows each table gets and
which columns are encrypted, and submits the generation request.

Workflow:
- parse     upload a schema and print the parsed structure
- generate  upload, configure from flags and submit in one go
- wizard    step through upload and configuration interactively`,
	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		showVersion, _ := cmd.Flags().GetBool("version")
		if showVersion {
			fmt.Printf("datamock version %s\n", Version)
			return
		}

		if len(args) == 0 {
			showBanner()
			fmt.Println()
			cmd.Help()
		}
	},
}

// Execute runs the root command. Ctrl+C cancels the context handed to
// every subcommand, which aborts in-flight gateway calls.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.Red("❌ %v", err)
		return err
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./"+config.ConfigFile+")")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log gateway traffic to stderr")

	rootCmd.Flags().BoolP("version", "v", false, "Show CLI version")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(wizardCmd)
	rootCmd.AddCommand(algorithmsCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(schemasCmd)
	rootCmd.AddCommand(initCmd)
}

func initConfig() {
	if err := godotenv.Load(); err != nil {
		godotenv.Load(".env.local")
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("json")
		viper.SetConfigName(config.ConfigName)
	}

	config.SetupEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
