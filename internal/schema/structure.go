package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Rana718/datamock/internal/types"
)

var (
	ErrEmptyPayload     = errors.New("structure payload is empty")
	ErrMissingDatabases = errors.New("structure payload has no databases field")
)

// Decode turns the string held in a parse response's data field into a
// DatabaseStructure. The parse endpoint encodes the structure as JSON and
// then embeds that JSON as a string inside its own JSON envelope, so callers
// hand this function the already-unwrapped inner string.
func Decode(payload string) (types.DatabaseStructure, error) {
	if strings.TrimSpace(payload) == "" {
		return types.DatabaseStructure{}, ErrEmptyPayload
	}

	var raw struct {
		Databases *[]types.Database `json:"databases"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return types.DatabaseStructure{}, fmt.Errorf("failed to decode structure payload: %w", err)
	}
	if raw.Databases == nil {
		return types.DatabaseStructure{}, ErrMissingDatabases
	}

	structure := types.DatabaseStructure{Databases: *raw.Databases}
	normalize(&structure)
	return structure, nil
}

// normalize replaces null collections with empty ones so the structure
// round-trips to the generator as [] rather than null.
func normalize(s *types.DatabaseStructure) {
	for i := range s.Databases {
		db := &s.Databases[i]
		if db.Tables == nil {
			db.Tables = []types.Table{}
		}
		for j := range db.Tables {
			table := &db.Tables[j]
			if table.Attributes == nil {
				table.Attributes = []types.Attribute{}
			}
			for k := range table.Attributes {
				if table.Attributes[k].Constraints == nil {
					table.Attributes[k].Constraints = []string{}
				}
			}
		}
	}
}

// ListTableNames returns every table name across every database in
// structure order. Names shared by tables in different databases are
// repeated, not merged.
func ListTableNames(s types.DatabaseStructure) []string {
	names := []string{}
	for _, db := range s.Databases {
		for _, table := range db.Tables {
			names = append(names, table.Name)
		}
	}
	return names
}

// FindTable returns the first table called name, scanning databases and
// then tables in order.
func FindTable(s types.DatabaseStructure, name string) (types.Table, bool) {
	for _, db := range s.Databases {
		for _, table := range db.Tables {
			if table.Name == name {
				return table, true
			}
		}
	}
	return types.Table{}, false
}

// ListAttributeNames returns the attribute names of the first table called
// tableName, or an empty slice when there is no such table.
func ListAttributeNames(s types.DatabaseStructure, tableName string) []string {
	names := []string{}
	table, ok := FindTable(s, tableName)
	if !ok {
		return names
	}
	for _, attr := range table.Attributes {
		names = append(names, attr.Name)
	}
	return names
}

// HasAttribute reports whether the first table called tableName has an
// attribute called attribute.
func HasAttribute(s types.DatabaseStructure, tableName, attribute string) bool {
	for _, name := range ListAttributeNames(s, tableName) {
		if name == attribute {
			return true
		}
	}
	return false
}

// DuplicateTableNames lists table names that occur more than once across
// the structure, in order of their second appearance.
func DuplicateTableNames(s types.DatabaseStructure) []string {
	seen := make(map[string]int)
	var dups []string
	for _, name := range ListTableNames(s) {
		seen[name]++
		if seen[name] == 2 {
			dups = append(dups, name)
		}
	}
	return dups
}

func Stats(s types.DatabaseStructure) types.StructureStats {
	stats := types.StructureStats{
		Databases:   len(s.Databases),
		Constraints: make(map[string]int),
	}
	for _, db := range s.Databases {
		stats.Tables += len(db.Tables)
		for _, table := range db.Tables {
			stats.Attributes += len(table.Attributes)
			for _, attr := range table.Attributes {
				for _, c := range attr.Constraints {
					stats.Constraints[c]++
				}
			}
		}
	}
	return stats
}

// Clone returns a deep copy so callers can hand structures out without
// sharing backing arrays with the workflow.
func Clone(s types.DatabaseStructure) types.DatabaseStructure {
	out := types.DatabaseStructure{Databases: make([]types.Database, len(s.Databases))}
	for i, db := range s.Databases {
		tables := make([]types.Table, len(db.Tables))
		for j, table := range db.Tables {
			attrs := make([]types.Attribute, len(table.Attributes))
			for k, attr := range table.Attributes {
				attr.Constraints = append([]string{}, attr.Constraints...)
				attrs[k] = attr
			}
			tables[j] = types.Table{Name: table.Name, Attributes: attrs}
		}
		out.Databases[i] = types.Database{Name: db.Name, Tables: tables}
	}
	return out
}
