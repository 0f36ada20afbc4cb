package types

// Attribute is a single column of a parsed table. Constraints are opaque
// labels (PRIMARY_KEY, NOT_NULL, FOREIGN_KEY_REFERENCES_x.y ...) and are
// passed back to the generator untouched.
type Attribute struct {
	Name        string   `json:"name" yaml:"name"`
	Type        string   `json:"type" yaml:"type"`
	TypeParams  string   `json:"type_params,omitempty" yaml:"type_params,omitempty"`
	Constraints []string `json:"constraints" yaml:"constraints"`
}

type Table struct {
	Name       string      `json:"name" yaml:"name"`
	Attributes []Attribute `json:"attributes" yaml:"attributes"`
}

type Database struct {
	Name   string  `json:"name" yaml:"name"`
	Tables []Table `json:"tables" yaml:"tables"`
}

// DatabaseStructure is the root of a parse result.
type DatabaseStructure struct {
	Databases []Database `json:"databases" yaml:"databases"`
}

// EncryptionRule asks the generator to encrypt one attribute of one table.
// TableName and Attribute stay empty until the user picks them.
type EncryptionRule struct {
	ID        string `json:"id" yaml:"id"`
	TableName string `json:"tableName" yaml:"table_name"`
	Attribute string `json:"attribute" yaml:"attribute"`
	Algorithm string `json:"algorithm" yaml:"algorithm"`
}

// GenerateRequest is the body of the generate call. Encryption is nil (and
// encodes as null) when encryption is switched off.
type GenerateRequest struct {
	DatabaseStructure DatabaseStructure `json:"databaseStructure"`
	TableEntryCounts  map[string]int    `json:"tableEntryCounts"`
	Encryption        []EncryptionRule  `json:"encryption"`
}

// ParseResponse is the envelope returned by the parse endpoint. Data holds
// the DatabaseStructure as a JSON-encoded string.
type ParseResponse struct {
	Success        bool           `json:"success"`
	SchemaID       string         `json:"schema_id,omitempty"`
	Message        string         `json:"message"`
	ProcessingTime float64        `json:"processing_time"`
	Statistics     map[string]any `json:"statistics,omitempty"`
	Data           string         `json:"data"`
	FilePath       string         `json:"file_path,omitempty"`
}

// ParseResult is what the workflow keeps from a successful parse.
type ParseResult struct {
	Structure  DatabaseStructure
	SchemaID   string
	Message    string
	Statistics map[string]any
}

type HealthResponse struct {
	Status          string         `json:"status"`
	Version         string         `json:"version"`
	SchemasInMemory int            `json:"schemas_in_memory"`
	AdditionalInfo  map[string]any `json:"additional_info,omitempty"`
}

type SchemaSummary struct {
	SchemaID    string  `json:"schema_id"`
	Filename    string  `json:"filename"`
	CreatedAt   float64 `json:"created_at"`
	FileSize    int64   `json:"file_size"`
	ContentHash string  `json:"content_hash"`
	Databases   int     `json:"databases"`
	Tables      int     `json:"tables"`
}

type Pagination struct {
	TotalSchemas  int  `json:"total_schemas"`
	ReturnedCount int  `json:"returned_count"`
	Offset        int  `json:"offset"`
	Limit         int  `json:"limit"`
	HasMore       bool `json:"has_more"`
}

type SchemaList struct {
	Schemas    []SchemaSummary `json:"schemas"`
	Pagination Pagination      `json:"pagination"`
}

// StructureStats summarises a DatabaseStructure.
type StructureStats struct {
	Databases   int            `json:"databases" yaml:"databases"`
	Tables      int            `json:"tables" yaml:"tables"`
	Attributes  int            `json:"attributes" yaml:"attributes"`
	Constraints map[string]int `json:"constraint_summary" yaml:"constraint_summary"`
}
