package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/Rana718/datamock/internal/registry"
	"github.com/Rana718/datamock/internal/render"
	"github.com/Rana718/datamock/internal/schema"
	"github.com/Rana718/datamock/internal/types"
	"github.com/Rana718/datamock/internal/workflow"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	genSeed         string
	genDBType       string
	genCounts       []string
	genDefaultCount int
	genEncrypt      []string
	genDryRun       bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <schema.sql>",
	Short: "Upload a schema, configure it from flags and request mock data",
	Long: `
Parse a schema, apply row counts and encryption rules given as flags, then
submit the generation request.

Every table gets --default-count rows unless --count overrides it. Passing
--encrypt switches encryption on; each value names one column.

Examples:
  datamock generate schema.sql
  datamock generate schema.sql --count users=100 --count orders=500
  datamock generate schema.sql --encrypt users.email --encrypt users.ssn=RSA-4096
  datamock generate schema.sql --seed seed.csv --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		counts, err := parseCountFlags(genCounts)
		if err != nil {
			return err
		}
		rules, err := parseEncryptFlags(genEncrypt)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		defaultCount := a.cfg.Defaults.EntryCount
		if cmd.Flags().Changed("default-count") {
			defaultCount = genDefaultCount
		}
		wf := a.newWorkflow(defaultCount)

		in, err := loadUpload(genDBType, args[0], genSeed)
		if err != nil {
			return err
		}

		color.Cyan("📖 Parsing %s...", in.PrimaryFile.Name)
		cfg, err := wf.SubmitUpload(cmd.Context(), in)
		if err != nil {
			return reportUploadError(err)
		}
		printDuplicates(cfg)

		if err := applyConfiguration(wf, cfg, counts, rules); err != nil {
			return err
		}

		if genDryRun {
			req, err := wf.GeneratePayload()
			if err != nil {
				return err
			}
			data, err := render.Encode(req, render.FormatJSON)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		}

		state := wf.State().(workflow.Configure)
		color.Cyan("🔨 Requesting %d row(s) across %d table(s)...", state.EntryCounts.Total(), len(state.EntryCounts))
		if err := wf.SubmitGenerate(cmd.Context()); err != nil {
			return err
		}
		color.Green("✓ %s", wf.Status().Success)
		return nil
	},
}

type countFlag struct {
	table string
	raw   string
}

// parseCountFlags splits table=n values. The count itself is parsed by the
// workflow so "abc" and "-5" behave as they do interactively.
func parseCountFlags(values []string) ([]countFlag, error) {
	out := make([]countFlag, 0, len(values))
	for _, v := range values {
		table, raw, ok := strings.Cut(v, "=")
		table = strings.TrimSpace(table)
		if !ok || table == "" {
			return nil, fmt.Errorf("invalid --count %q (want table=n)", v)
		}
		out = append(out, countFlag{table: table, raw: strings.TrimSpace(raw)})
	}
	return out, nil
}

// parseEncryptFlags splits table.attribute[=ALGORITHM] values.
func parseEncryptFlags(values []string) ([]types.EncryptionRule, error) {
	out := make([]types.EncryptionRule, 0, len(values))
	for _, v := range values {
		target, algorithm, hasAlgorithm := strings.Cut(v, "=")
		table, attribute, ok := strings.Cut(strings.TrimSpace(target), ".")
		if !ok || table == "" || attribute == "" {
			return nil, fmt.Errorf("invalid --encrypt %q (want table.attribute[=ALGORITHM])", v)
		}

		rule := types.EncryptionRule{TableName: table, Attribute: attribute, Algorithm: registry.DefaultAlgorithm}
		if hasAlgorithm {
			algorithm = strings.TrimSpace(algorithm)
			if !registry.IsKnownAlgorithm(algorithm) {
				return nil, fmt.Errorf("unknown algorithm %q in --encrypt %q (see 'datamock algorithms')", algorithm, v)
			}
			rule.Algorithm = algorithm
		}
		out = append(out, rule)
	}
	return out, nil
}

// applyConfiguration replays flag values through the workflow, the same
// operations the wizard performs one at a time.
func applyConfiguration(wf *workflow.Workflow, cfg workflow.Configure, counts []countFlag, rules []types.EncryptionRule) error {
	for _, c := range counts {
		if _, ok := wf.SetEntryCount(c.table, c.raw); !ok {
			return fmt.Errorf("--count: unknown table %q", c.table)
		}
	}

	if len(rules) == 0 {
		return nil
	}

	for _, r := range rules {
		if !schema.HasAttribute(cfg.Structure, r.TableName, r.Attribute) {
			return fmt.Errorf("--encrypt: table %q has no attribute %q", r.TableName, r.Attribute)
		}
	}

	wf.ToggleEncryption(true)
	seeded := wf.State().(workflow.Configure).Rules
	for i, r := range rules {
		var id string
		if i == 0 && len(seeded) == 1 {
			id = seeded[0].ID
		} else {
			added, err := wf.AddEncryptionRule()
			if err != nil {
				return err
			}
			id = added.ID
		}

		updates := []struct {
			field registry.Field
			value string
		}{
			{registry.FieldTableName, r.TableName},
			{registry.FieldAttribute, r.Attribute},
			{registry.FieldAlgorithm, r.Algorithm},
		}
		for _, u := range updates {
			if _, err := wf.UpdateEncryptionRule(id, u.field, u.value); err != nil {
				return err
			}
		}
	}
	return nil
}

func init() {
	generateCmd.Flags().StringVar(&genSeed, "seed", "", "Seed data file (.sql or .csv)")
	generateCmd.Flags().StringVar(&genDBType, "db-type", "sql", "Database type: sql, nosql or graph")
	generateCmd.Flags().StringArrayVarP(&genCounts, "count", "c", nil, "Rows for one table as table=n (repeatable)")
	generateCmd.Flags().IntVar(&genDefaultCount, "default-count", registry.DefaultEntryCount, "Rows for tables without --count")
	generateCmd.Flags().StringArrayVarP(&genEncrypt, "encrypt", "e", nil, "Encrypt a column as table.attribute[=ALGORITHM] (repeatable)")
	generateCmd.Flags().BoolVar(&genDryRun, "dry-run", false, "Print the generate request instead of sending it")
}
