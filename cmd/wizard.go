package cmd

import (
	"os"

	"github.com/Rana718/datamock/internal/interactive"
	"github.com/spf13/cobra"
)

var wizardSeed string

var wizardCmd = &cobra.Command{
	Use:   "wizard [schema.sql]",
	Short: "Step through upload, configuration and generation interactively",
	Long: `
Start an interactive session. Upload a schema, adjust row counts, manage
encryption rules and submit the generation request one command at a time.
Type 'help' inside the wizard for the command list.

Examples:
  datamock wizard
  datamock wizard schema.sql --seed seed.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		session := interactive.NewSession(a.newWorkflow(a.cfg.Defaults.EntryCount), os.Stdout)

		if len(args) == 1 {
			line := "upload " + quoteArg(args[0])
			if wizardSeed != "" {
				line += " " + quoteArg(wizardSeed)
			}
			if err := session.Execute(cmd.Context(), line); err != nil {
				return err
			}
		}

		return interactive.Run(cmd.Context(), session)
	},
}

func quoteArg(s string) string {
	out := make([]rune, 0, len(s)+2)
	out = append(out, '"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(append(out, '"'))
}

func init() {
	wizardCmd.Flags().StringVar(&wizardSeed, "seed", "", "Seed data file uploaded with the schema")
}
