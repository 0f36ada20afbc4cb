package workflow

import (
	"github.com/Rana718/datamock/internal/registry"
	"github.com/Rana718/datamock/internal/types"
)

// Step names the two screens of the workflow.
type Step int

const (
	StepUpload Step = iota
	StepConfigure
)

func (s Step) String() string {
	switch s {
	case StepUpload:
		return "upload"
	case StepConfigure:
		return "configure"
	}
	return "unknown"
}

// State is a snapshot of the workflow: either Upload or Configure.
type State interface {
	Step() Step
	isState()
}

// Upload is the initial state. Nothing has been parsed yet.
type Upload struct{}

func (Upload) Step() Step { return StepUpload }
func (Upload) isState()   {}

// Configure holds everything the user edits between parse and generate.
type Configure struct {
	Structure         types.DatabaseStructure
	EntryCounts       registry.EntryCounts
	Rules             []types.EncryptionRule
	EncryptionEnabled bool

	SchemaID      string
	ParseMessage  string
	ParseStats    map[string]any
	DuplicateKeys []string
}

func (Configure) Step() Step { return StepConfigure }
func (Configure) isState()   {}

// Status is what the workflow wants shown in its banner.
type Status struct {
	Err     error
	Success string
}

// ErrorMessage is the banner text for the last failure, or "".
func (s Status) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}
