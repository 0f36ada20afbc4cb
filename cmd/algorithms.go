package cmd

import (
	"os"

	"github.com/Rana718/datamock/internal/render"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var algorithmsCmd = &cobra.Command{
	Use:   "algorithms",
	Short: "List the encryption algorithms a rule can use",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		color.Cyan("Encryption algorithms:")
		render.Algorithms(os.Stdout)
	},
}
