package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

// DatabaseType selects the configuration path of the workflow.
type DatabaseType string

const (
	SQL   DatabaseType = "sql"
	NoSQL DatabaseType = "nosql"
	Graph DatabaseType = "graph"
)

func (d DatabaseType) Supported() bool {
	return d == SQL
}

// File is an uploaded file as the user's device handed it over.
type File struct {
	Name      string
	MediaType string
	Size      int64
	Content   []byte
}

// UploadInput is what the upload step submits.
type UploadInput struct {
	DatabaseType  DatabaseType `json:"databaseType" validate:"required,oneof=sql nosql graph"`
	PrimaryFile   *File        `json:"primaryFile" validate:"-"`
	SecondaryFile *File        `json:"secondaryFile" validate:"-"`
}

// Error is a field-level validation failure.
type Error struct {
	Field   string
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors collects every failure of one submission.
type Errors []Error

func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// For returns the failure reported for field, if any.
func (es Errors) For(field string) (Error, bool) {
	for _, e := range es {
		if e.Field == field {
			return e, true
		}
	}
	return Error{}, false
}

const (
	mediaPlainText = "text/plain"
	mediaCSV       = "text/csv"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterStructValidation(validateFiles, UploadInput{})
	return v
}

func validateFiles(sl validator.StructLevel) {
	in := sl.Current().Interface().(UploadInput)

	if in.DatabaseType == SQL {
		switch {
		case in.PrimaryFile == nil:
			sl.ReportError(in.PrimaryFile, "primaryFile", "PrimaryFile", "required", "")
		case !isSchemaFile(in.PrimaryFile):
			sl.ReportError(in.PrimaryFile, "primaryFile", "PrimaryFile", "schemafile", "")
		case in.PrimaryFile.Size <= 0:
			sl.ReportError(in.PrimaryFile, "primaryFile", "PrimaryFile", "nonempty", "")
		}
	}

	if in.SecondaryFile != nil {
		switch {
		case !isSeedFile(in.SecondaryFile):
			sl.ReportError(in.SecondaryFile, "secondaryFile", "SecondaryFile", "seedfile", "")
		case in.SecondaryFile.Size <= 0:
			sl.ReportError(in.SecondaryFile, "secondaryFile", "SecondaryFile", "nonempty", "")
		}
	}
}

// Validate checks an upload before any network call. It returns Errors
// when at least one field is invalid.
func Validate(in UploadInput) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, Error{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Field() {
	case "databaseType":
		if fe.Tag() == "required" {
			return "database type is required"
		}
		return fmt.Sprintf("database type must be one of sql, nosql, graph (got %q)", fe.Value())
	case "primaryFile":
		switch fe.Tag() {
		case "required":
			return "a schema file is required for SQL databases"
		case "schemafile":
			return "schema file must be plain text or have a .sql extension"
		case "nonempty":
			return "schema file is empty"
		}
	case "secondaryFile":
		switch fe.Tag() {
		case "seedfile":
			return "seed data must be plain text or CSV, or have a .sql or .csv extension"
		case "nonempty":
			return "seed data file is empty"
		}
	}
	return fmt.Sprintf("failed %q check", fe.Tag())
}

func isSchemaFile(f *File) bool {
	return baseMediaType(f.MediaType) == mediaPlainText || hasExt(f.Name, ".sql")
}

func isSeedFile(f *File) bool {
	switch baseMediaType(f.MediaType) {
	case mediaPlainText, mediaCSV, "application/csv":
		return true
	}
	return hasExt(f.Name, ".sql") || hasExt(f.Name, ".csv")
}

func baseMediaType(mt string) string {
	return strings.ToLower(strings.TrimSpace(strings.SplitN(mt, ";", 2)[0]))
}

func hasExt(name, ext string) bool {
	return strings.EqualFold(filepath.Ext(name), ext)
}

// NewFile builds a File from in-memory content, sniffing the media type
// when none is declared.
func NewFile(name string, content []byte, mediaType string) *File {
	if mediaType == "" {
		mediaType = mimetype.Detect(content).String()
	}
	return &File{
		Name:      name,
		MediaType: mediaType,
		Size:      int64(len(content)),
		Content:   content,
	}
}

// LoadFile reads a file from disk the way a browser hands one to a form:
// name, sniffed media type, size and content in one acquisition.
func LoadFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewFile(filepath.Base(path), content, ""), nil
}
