package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Rana718/datamock/internal/registry"
	"github.com/Rana718/datamock/internal/types"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Format selects how a structure is printed or exported.
type Format string

const (
	FormatTree Format = "tree"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tree":
		return FormatTree, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q (use tree, json or yaml)", s)
}

var (
	dbColor     = color.New(color.FgCyan, color.Bold)
	tableColor  = color.New(color.FgGreen, color.Bold)
	attrColor   = color.New(color.FgWhite)
	typeColor   = color.New(color.FgYellow)
	constrColor = color.New(color.FgMagenta)
	dimColor    = color.New(color.FgHiBlack)
)

// Structure prints the parsed structure as a tree. When counts is non-nil
// each table shows its configured row count.
func Structure(w io.Writer, s types.DatabaseStructure, counts registry.EntryCounts) {
	if len(s.Databases) == 0 {
		dimColor.Fprintln(w, "(no databases)")
		return
	}

	for _, db := range s.Databases {
		dbColor.Fprintf(w, "🗄  %s\n", db.Name)
		for ti, table := range db.Tables {
			branch, indent := "├──", "│   "
			if ti == len(db.Tables)-1 {
				branch, indent = "└──", "    "
			}

			fmt.Fprintf(w, "%s ", branch)
			tableColor.Fprint(w, table.Name)
			if counts != nil {
				if n, ok := counts[table.Name]; ok {
					dimColor.Fprintf(w, "  (%d rows)", n)
				}
			}
			fmt.Fprintln(w)

			for ai, attr := range table.Attributes {
				leaf := "├──"
				if ai == len(table.Attributes)-1 {
					leaf = "└──"
				}
				fmt.Fprintf(w, "%s%s ", indent, leaf)
				attrColor.Fprint(w, attr.Name)
				fmt.Fprint(w, " ")
				typeColor.Fprint(w, attributeType(attr))
				if len(attr.Constraints) > 0 {
					fmt.Fprint(w, " ")
					constrColor.Fprintf(w, "[%s]", strings.Join(attr.Constraints, ", "))
				}
				fmt.Fprintln(w)
			}
		}
	}
}

func attributeType(a types.Attribute) string {
	if a.TypeParams == "" {
		return a.Type
	}
	return fmt.Sprintf("%s(%s)", a.Type, a.TypeParams)
}

func Stats(w io.Writer, st types.StructureStats) {
	fmt.Fprintf(w, "Databases: %s  Tables: %s  Attributes: %s\n",
		color.CyanString("%d", st.Databases),
		color.CyanString("%d", st.Tables),
		color.CyanString("%d", st.Attributes),
	)
	if len(st.Constraints) == 0 {
		return
	}

	names := make([]string, 0, len(st.Constraints))
	for name := range st.Constraints {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, st.Constraints[name])
	}
	fmt.Fprintf(w, "Constraints: %s\n", strings.Join(parts, " "))
}

// Counts prints the entry counts in structure order.
func Counts(w io.Writer, tables []string, counts registry.EntryCounts) {
	seen := make(map[string]bool, len(tables))
	for _, name := range tables {
		if seen[name] {
			continue
		}
		seen[name] = true
		fmt.Fprintf(w, "  %-24s %d\n", name, counts[name])
	}
	fmt.Fprintf(w, "  %-24s %d\n", "total", counts.Total())
}

// Rules prints the encryption rules with short ids for the wizard.
func Rules(w io.Writer, rules []types.EncryptionRule, enabled bool) {
	state := color.RedString("off")
	if enabled {
		state = color.GreenString("on")
	}
	fmt.Fprintf(w, "Encryption: %s\n", state)

	if len(rules) == 0 {
		dimColor.Fprintln(w, "  (no rules)")
		return
	}
	for _, r := range rules {
		fmt.Fprintf(w, "  %s  %s.%s  %s\n",
			dimColor.Sprint(ShortID(r.ID)),
			orPlaceholder(r.TableName, "<table>"),
			orPlaceholder(r.Attribute, "<attribute>"),
			typeColor.Sprint(r.Algorithm),
		)
	}
}

// ShortID is the prefix of a rule id shown to users.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return dimColor.Sprint(placeholder)
	}
	return s
}

// Algorithms prints the algorithm catalogue, marking the default.
func Algorithms(w io.Writer) {
	for _, name := range registry.Algorithms() {
		if name == registry.DefaultAlgorithm {
			fmt.Fprintf(w, "  %s %s\n", name, dimColor.Sprint("(default)"))
			continue
		}
		fmt.Fprintf(w, "  %s\n", name)
	}
}

// Encode serializes v as JSON or YAML.
func Encode(v any, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("format %q cannot be encoded", format)
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
