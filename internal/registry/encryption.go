package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rana718/datamock/internal/types"
	"github.com/google/uuid"
)

// DefaultAlgorithm is preselected on every new rule.
const DefaultAlgorithm = "AES-256"

var algorithms = []string{
	"AES-256",
	"AES-128",
	"RSA-2048",
	"RSA-4096",
	"ChaCha20",
	"Twofish",
	"Blowfish",
	"DES",
	"3DES",
}

// Algorithms returns the algorithm names offered to the user, in display
// order. The generator receives whatever string the rule holds.
func Algorithms() []string {
	return append([]string(nil), algorithms...)
}

func IsKnownAlgorithm(name string) bool {
	for _, a := range algorithms {
		if a == name {
			return true
		}
	}
	return false
}

// Field names one editable column of an encryption rule.
type Field string

const (
	FieldTableName Field = "tableName"
	FieldAttribute Field = "attribute"
	FieldAlgorithm Field = "algorithm"
)

var (
	ErrUnknownRule  = errors.New("encryption rule not found")
	ErrUnknownField = errors.New("unknown encryption rule field")
)

// ParseField accepts the wire names plus the short forms used on the
// command line (table, attr, algo).
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tablename", "table_name", "table":
		return FieldTableName, nil
	case "attribute", "attr", "column":
		return FieldAttribute, nil
	case "algorithm", "algo":
		return FieldAlgorithm, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// EncryptionRules is an ordered list of rules addressed by id, never by
// position.
type EncryptionRules struct {
	rules []types.EncryptionRule
	newID func() string
}

func NewEncryptionRules() *EncryptionRules {
	return &EncryptionRules{newID: uuid.NewString}
}

// Add appends a blank rule with a fresh id and returns it.
func (r *EncryptionRules) Add() types.EncryptionRule {
	rule := types.EncryptionRule{
		ID:        r.uniqueID(),
		Algorithm: DefaultAlgorithm,
	}
	r.rules = append(r.rules, rule)
	return rule
}

func (r *EncryptionRules) uniqueID() string {
	gen := r.newID
	if gen == nil {
		gen = uuid.NewString
	}
	for {
		id := gen()
		if r.index(id) < 0 {
			return id
		}
	}
}

// Remove deletes the rule with the given id and reports whether it existed.
func (r *EncryptionRules) Remove(id string) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	r.rules = append(r.rules[:i], r.rules[i+1:]...)
	return true
}

// Update replaces one field of the rule with the given id. When
// clearAttribute is set, choosing a different table also clears the
// attribute picked for the previous table.
func (r *EncryptionRules) Update(id string, field Field, value string, clearAttribute bool) (types.EncryptionRule, error) {
	i := r.index(id)
	if i < 0 {
		return types.EncryptionRule{}, fmt.Errorf("%w: %s", ErrUnknownRule, id)
	}

	rule := &r.rules[i]
	switch field {
	case FieldTableName:
		if clearAttribute && rule.TableName != value {
			rule.Attribute = ""
		}
		rule.TableName = value
	case FieldAttribute:
		rule.Attribute = value
	case FieldAlgorithm:
		rule.Algorithm = value
	default:
		return types.EncryptionRule{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return *rule, nil
}

func (r *EncryptionRules) Get(id string) (types.EncryptionRule, bool) {
	i := r.index(id)
	if i < 0 {
		return types.EncryptionRule{}, false
	}
	return r.rules[i], true
}

// Rules returns a copy of the list in order.
func (r *EncryptionRules) Rules() []types.EncryptionRule {
	return append([]types.EncryptionRule{}, r.rules...)
}

func (r *EncryptionRules) Len() int {
	return len(r.rules)
}

func (r *EncryptionRules) Clear() {
	r.rules = nil
}

// Resolve turns an id or an unambiguous id prefix into a full id.
func (r *EncryptionRules) Resolve(prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", ErrUnknownRule)
	}
	match := ""
	for _, rule := range r.rules {
		if rule.ID == prefix {
			return rule.ID, nil
		}
		if strings.HasPrefix(rule.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("rule id prefix %q is ambiguous", prefix)
			}
			match = rule.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownRule, prefix)
	}
	return match, nil
}

func (r *EncryptionRules) index(id string) int {
	for i, rule := range r.rules {
		if rule.ID == id {
			return i
		}
	}
	return -1
}
