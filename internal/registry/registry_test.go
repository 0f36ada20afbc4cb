package registry

import (
	"fmt"
	"math"
	"testing"

	"github.com/Rana718/datamock/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStructure() types.DatabaseStructure {
	return types.DatabaseStructure{Databases: []types.Database{
		{Name: "shop", Tables: []types.Table{{Name: "users"}, {Name: "orders"}}},
		{Name: "archive", Tables: []types.Table{{Name: "users"}}},
	}}
}

func TestNewEntryCountsDefaultsEveryTable(t *testing.T) {
	counts := NewEntryCounts(sampleStructure(), DefaultEntryCount)
	assert.Equal(t, EntryCounts{"users": 10, "orders": 10}, counts)
	assert.Equal(t, 20, counts.Total())

	assert.Empty(t, NewEntryCounts(types.DatabaseStructure{}, DefaultEntryCount))
	assert.Equal(t, EntryCounts{"users": 0, "orders": 0}, NewEntryCounts(sampleStructure(), -3))
}

func TestEntryCountsSet(t *testing.T) {
	counts := NewEntryCounts(sampleStructure(), DefaultEntryCount)

	v, ok := counts.Set("users", "-5")
	assert.True(t, ok)
	assert.Equal(t, 0, v)
	assert.Equal(t, 0, counts["users"])

	v, ok = counts.Set("orders", "250")
	assert.True(t, ok)
	assert.Equal(t, 250, v)

	_, ok = counts.Set("ghost", "5")
	assert.False(t, ok)
	assert.NotContains(t, counts, "ghost")
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"10", 10},
		{" 42 ", 42},
		{"+7", 7},
		{"-5", 0},
		{"-0", 0},
		{"", 0},
		{"abc", 0},
		{"12abc", 12},
		{"3.9", 3},
		{"99999999999999999999", math.MaxInt32},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCount(tt.raw))
		})
	}
}

func TestEntryCountsClone(t *testing.T) {
	counts := EntryCounts{"users": 1}
	clone := counts.Clone()
	clone["users"] = 99
	assert.Equal(t, 1, counts["users"])
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("rule-%d", n)
	}
}

func TestEncryptionRulesAddRemove(t *testing.T) {
	rules := NewEncryptionRules()
	first := rules.Add()
	assert.NotEmpty(t, first.ID)
	assert.Empty(t, first.TableName)
	assert.Empty(t, first.Attribute)
	assert.Equal(t, DefaultAlgorithm, first.Algorithm)

	before := rules.Rules()
	added := rules.Add()
	assert.NotEqual(t, first.ID, added.ID)
	assert.Equal(t, 2, rules.Len())

	assert.True(t, rules.Remove(added.ID))
	assert.Equal(t, before, rules.Rules())
	assert.False(t, rules.Remove(added.ID))
}

func TestEncryptionRulesRemoveKeepsOrder(t *testing.T) {
	rules := &EncryptionRules{newID: sequentialIDs()}
	rules.Add()
	rules.Add()
	rules.Add()

	require.True(t, rules.Remove("rule-2"))
	ids := []string{}
	for _, r := range rules.Rules() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"rule-1", "rule-3"}, ids)

	next := rules.Add()
	assert.Equal(t, "rule-4", next.ID)
}

func TestEncryptionRulesSkipsCollidingIDs(t *testing.T) {
	calls := 0
	rules := &EncryptionRules{newID: func() string {
		calls++
		if calls <= 2 {
			return "same"
		}
		return "other"
	}}
	rules.Add()
	second := rules.Add()
	assert.Equal(t, "other", second.ID)
}

func TestEncryptionRulesUpdate(t *testing.T) {
	rules := &EncryptionRules{newID: sequentialIDs()}
	rules.Add()
	rules.Add()

	_, err := rules.Update("rule-1", FieldTableName, "users", false)
	require.NoError(t, err)
	_, err = rules.Update("rule-1", FieldAttribute, "email", false)
	require.NoError(t, err)

	updated, err := rules.Update("rule-1", FieldTableName, "orders", false)
	require.NoError(t, err)
	assert.Equal(t, "email", updated.Attribute, "attribute survives a table change by default")

	updated, err = rules.Update("rule-1", FieldTableName, "users", true)
	require.NoError(t, err)
	assert.Empty(t, updated.Attribute)

	updated, err = rules.Update("rule-1", FieldAlgorithm, "ChaCha20", false)
	require.NoError(t, err)
	assert.Equal(t, "ChaCha20", updated.Algorithm)

	other, ok := rules.Get("rule-2")
	require.True(t, ok)
	assert.Equal(t, types.EncryptionRule{ID: "rule-2", Algorithm: DefaultAlgorithm}, other)

	_, err = rules.Update("missing", FieldAlgorithm, "DES", false)
	assert.ErrorIs(t, err, ErrUnknownRule)
	_, err = rules.Update("rule-1", Field("size"), "1", false)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestEncryptionRulesRulesIsACopy(t *testing.T) {
	rules := NewEncryptionRules()
	rule := rules.Add()
	list := rules.Rules()
	list[0].TableName = "users"

	got, _ := rules.Get(rule.ID)
	assert.Empty(t, got.TableName)
}

func TestEncryptionRulesResolve(t *testing.T) {
	rules := &EncryptionRules{newID: func() func() string {
		ids := []string{"abc123", "abd456"}
		i := 0
		return func() string { id := ids[i]; i++; return id }
	}()}
	rules.Add()
	rules.Add()

	id, err := rules.Resolve("abc")
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	_, err = rules.Resolve("ab")
	assert.Error(t, err)
	_, err = rules.Resolve("zz")
	assert.ErrorIs(t, err, ErrUnknownRule)
	_, err = rules.Resolve("")
	assert.ErrorIs(t, err, ErrUnknownRule)
}

func TestParseField(t *testing.T) {
	for in, want := range map[string]Field{
		"table":     FieldTableName,
		"tableName": FieldTableName,
		"attr":      FieldAttribute,
		"attribute": FieldAttribute,
		"algo":      FieldAlgorithm,
		"ALGORITHM": FieldAlgorithm,
	} {
		got, err := ParseField(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseField("rows")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestAlgorithms(t *testing.T) {
	list := Algorithms()
	assert.Len(t, list, 9)
	assert.Equal(t, "AES-256", list[0])
	assert.Equal(t, "3DES", list[8])
	assert.True(t, IsKnownAlgorithm("Twofish"))
	assert.False(t, IsKnownAlgorithm("ROT13"))

	list[0] = "mutated"
	assert.Equal(t, "AES-256", Algorithms()[0])
}
