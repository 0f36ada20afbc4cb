package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Rana718/datamock/internal/render"
	"github.com/Rana718/datamock/internal/schema"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	parseSeed   string
	parseDBType string
	parseFormat string
	parseOut    string
)

var parseCmd = &cobra.Command{
	Use:   "parse <schema.sql>",
	Short: "Upload a schema and print the parsed structure",
	Long: `
Upload a SQL schema (and optional seed data) to the parse endpoint and print
the database structure it returns.

Examples:
  datamock parse schema.sql
  datamock parse schema.sql --seed seed.csv --format yaml
  datamock parse schema.sql --out structure.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := render.ParseFormat(parseFormat)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		in, err := loadUpload(parseDBType, args[0], parseSeed)
		if err != nil {
			return err
		}

		color.Cyan("📖 Parsing %s...", in.PrimaryFile.Name)
		cfg, err := a.newWorkflow(a.cfg.Defaults.EntryCount).SubmitUpload(cmd.Context(), in)
		if err != nil {
			return reportUploadError(err)
		}

		if parseOut != "" {
			outFormat := format
			if outFormat == render.FormatTree {
				outFormat = formatFromPath(parseOut)
			}
			data, err := render.Encode(cfg.Structure, outFormat)
			if err != nil {
				return err
			}
			if err := render.WriteFile(parseOut, data); err != nil {
				return err
			}
			color.Green("✓ Structure written to %s", parseOut)
			return nil
		}

		if format != render.FormatTree {
			data, err := render.Encode(cfg.Structure, format)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		}

		color.Green("✓ Parsed %d table(s)", len(schema.ListTableNames(cfg.Structure)))
		if cfg.SchemaID != "" {
			fmt.Printf("Schema id: %s\n", cfg.SchemaID)
		}
		printDuplicates(cfg)
		fmt.Println()
		render.Structure(os.Stdout, cfg.Structure, nil)
		fmt.Println()
		render.Stats(os.Stdout, schema.Stats(cfg.Structure))
		return nil
	},
}

func formatFromPath(path string) render.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return render.FormatYAML
	}
	return render.FormatJSON
}

func init() {
	parseCmd.Flags().StringVar(&parseSeed, "seed", "", "Seed data file (.sql or .csv)")
	parseCmd.Flags().StringVar(&parseDBType, "db-type", "sql", "Database type: sql, nosql or graph")
	parseCmd.Flags().StringVar(&parseFormat, "format", "tree", "Output format: tree, json or yaml")
	parseCmd.Flags().StringVarP(&parseOut, "out", "o", "", "Write the structure to a file instead of stdout")
}
