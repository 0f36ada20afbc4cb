package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Rana718/datamock/internal/logger"
	"github.com/Rana718/datamock/internal/registry"
	"github.com/Rana718/datamock/internal/schema"
	"github.com/Rana718/datamock/internal/types"
	"github.com/Rana718/datamock/internal/validation"
	"go.uber.org/zap"
)

var (
	ErrBusy                = errors.New("a request of this kind is already in flight")
	ErrNotUploading        = errors.New("workflow is not at the upload step")
	ErrNotConfiguring      = errors.New("workflow is not at the configure step")
	ErrLastRule            = errors.New("cannot remove the last encryption rule while encryption is enabled")
	ErrUnsupportedDatabase = errors.New("database type is not supported yet")
	ErrSuperseded          = errors.New("workflow was reset while the request was in flight")
)

// GenerateSuccessMessage is shown after the generate call succeeds.
const GenerateSuccessMessage = "Mock data generation request accepted"

// Gateway is the backend the workflow drives.
type Gateway interface {
	Parse(ctx context.Context, primary, secondary *validation.File) (types.ParseResult, error)
	Generate(ctx context.Context, req types.GenerateRequest) error
}

type Options struct {
	// DefaultEntryCount seeds every table after a parse.
	DefaultEntryCount int
	// Timeout bounds each gateway call; zero leaves only the caller's
	// context in charge.
	Timeout time.Duration
	// ClearAttributeOnTableChange drops a rule's attribute when its table
	// changes.
	ClearAttributeOnTableChange bool
	Logger                      *zap.Logger
}

func DefaultOptions() Options {
	return Options{DefaultEntryCount: registry.DefaultEntryCount}
}

type session struct {
	structure  types.DatabaseStructure
	counts     registry.EntryCounts
	rules      *registry.EncryptionRules
	encryption bool
	parsed     types.ParseResult
}

// Workflow is the upload → configure → generate state machine. It owns the
// parsed structure, the entry counts and the encryption rules; callers only
// see copies. All methods are safe for concurrent use.
type Workflow struct {
	mu   sync.Mutex
	gw   Gateway
	opts Options
	log  *zap.Logger

	cfg    *session // nil at the upload step
	epoch  uint64   // bumped on every reset
	status Status

	parsing    bool
	generating bool
}

func New(gw Gateway, opts Options) *Workflow {
	if opts.DefaultEntryCount < 0 {
		opts.DefaultEntryCount = 0
	}
	return &Workflow{
		gw:   gw,
		opts: opts,
		log:  logger.OrNop(opts.Logger),
	}
}

// SubmitUpload validates the upload, asks the gateway to parse it and, on
// success, moves to the configure step with every table defaulted to
// DefaultEntryCount rows. Validation failures come back as
// validation.Errors and never reach the network. Gateway failures leave the
// workflow at the upload step and are recorded in Status.
func (w *Workflow) SubmitUpload(ctx context.Context, in validation.UploadInput) (Configure, error) {
	if err := validation.Validate(in); err != nil {
		return Configure{}, err
	}
	if !in.DatabaseType.Supported() {
		return Configure{}, fmt.Errorf("%w: %s", ErrUnsupportedDatabase, unsupportedMessage(in.DatabaseType))
	}

	w.mu.Lock()
	if w.cfg != nil {
		w.mu.Unlock()
		return Configure{}, ErrNotUploading
	}
	if w.parsing {
		w.mu.Unlock()
		return Configure{}, ErrBusy
	}
	w.parsing = true
	w.status = Status{}
	epoch := w.epoch
	w.mu.Unlock()

	w.log.Debug("submitting upload", zap.String("file", in.PrimaryFile.Name))

	callCtx, cancel := w.callContext(ctx)
	res, err := w.gw.Parse(callCtx, in.PrimaryFile, in.SecondaryFile)
	cancel()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.parsing = false

	if w.epoch != epoch || w.cfg != nil {
		return Configure{}, ErrSuperseded
	}
	if err != nil {
		w.status = Status{Err: err}
		w.log.Debug("parse failed", zap.Error(err))
		return Configure{}, err
	}

	w.cfg = &session{
		structure: res.Structure,
		counts:    registry.NewEntryCounts(res.Structure, w.opts.DefaultEntryCount),
		rules:     registry.NewEncryptionRules(),
		parsed:    res,
	}
	w.log.Debug("entered configure step", zap.Int("tables", len(w.cfg.counts)))
	return w.snapshotLocked(), nil
}

func unsupportedMessage(t validation.DatabaseType) string {
	switch t {
	case validation.NoSQL:
		return "NoSQL database configuration is coming soon"
	case validation.Graph:
		return "graph database configuration is coming soon"
	}
	return fmt.Sprintf("%s databases cannot be configured", t)
}

// SetEntryCount parses raw as a row count for table. Non-numeric or
// negative input stores 0. Outside the configure step, or for a table that
// is not in the structure, it does nothing and reports ok=false.
func (w *Workflow) SetEntryCount(table, raw string) (value int, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cfg == nil {
		return 0, false
	}
	return w.cfg.counts.Set(table, raw)
}

// ToggleEncryption switches encryption on or off. Switching on with no
// rules seeds one blank rule; switching off keeps the rules but leaves them
// out of the generate payload.
func (w *Workflow) ToggleEncryption(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cfg == nil {
		return
	}
	w.cfg.encryption = enabled
	if enabled && w.cfg.rules.Len() == 0 {
		w.cfg.rules.Add()
	}
}

func (w *Workflow) AddEncryptionRule() (types.EncryptionRule, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cfg == nil {
		return types.EncryptionRule{}, ErrNotConfiguring
	}
	return w.cfg.rules.Add(), nil
}

// RemoveEncryptionRule deletes the rule with id. While encryption is on the
// last rule cannot be removed and ErrLastRule is returned.
func (w *Workflow) RemoveEncryptionRule(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cfg == nil {
		return ErrNotConfiguring
	}
	if _, ok := w.cfg.rules.Get(id); !ok {
		return fmt.Errorf("%w: %s", registry.ErrUnknownRule, id)
	}
	if w.cfg.encryption && w.cfg.rules.Len() <= 1 {
		return ErrLastRule
	}
	w.cfg.rules.Remove(id)
	return nil
}

// UpdateEncryptionRule replaces one field of one rule.
func (w *Workflow) UpdateEncryptionRule(id string, field registry.Field, value string) (types.EncryptionRule, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cfg == nil {
		return types.EncryptionRule{}, ErrNotConfiguring
	}
	return w.cfg.rules.Update(id, field, value, w.opts.ClearAttributeOnTableChange)
}

// ResolveRule expands an id prefix to a full rule id.
func (w *Workflow) ResolveRule(prefix string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cfg == nil {
		return "", ErrNotConfiguring
	}
	return w.cfg.rules.Resolve(prefix)
}

// GeneratePayload builds the body of the generate call from the current
// configuration.
func (w *Workflow) GeneratePayload() (types.GenerateRequest, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cfg == nil {
		return types.GenerateRequest{}, ErrNotConfiguring
	}
	return w.payloadLocked(), nil
}

func (w *Workflow) payloadLocked() types.GenerateRequest {
	req := types.GenerateRequest{
		DatabaseStructure: schema.Clone(w.cfg.structure),
		TableEntryCounts:  w.cfg.counts.Clone(),
	}
	if w.cfg.encryption {
		req.Encryption = w.cfg.rules.Rules()
	}
	return req
}

// SubmitGenerate sends the current configuration to the gateway. On success
// the workflow resets to the upload step; on failure every edit is kept and
// the error is recorded in Status.
func (w *Workflow) SubmitGenerate(ctx context.Context) error {
	w.mu.Lock()
	if w.cfg == nil {
		w.mu.Unlock()
		return ErrNotConfiguring
	}
	if w.generating {
		w.mu.Unlock()
		return ErrBusy
	}
	w.generating = true
	w.status = Status{}
	req := w.payloadLocked()
	epoch := w.epoch
	w.mu.Unlock()

	w.log.Debug("submitting generate",
		zap.Int("tables", len(req.TableEntryCounts)),
		zap.Int("rules", len(req.Encryption)),
	)

	callCtx, cancel := w.callContext(ctx)
	err := w.gw.Generate(callCtx, req)
	cancel()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.generating = false

	if w.epoch != epoch {
		return ErrSuperseded
	}
	if err != nil {
		w.status = Status{Err: err}
		w.log.Debug("generate failed", zap.Error(err))
		return err
	}

	w.resetLocked()
	w.status = Status{Success: GenerateSuccessMessage}
	return nil
}

// ResetToUpload discards the structure, counts, rules and status. Results of
// calls still in flight are dropped when they arrive.
func (w *Workflow) ResetToUpload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
}

func (w *Workflow) resetLocked() {
	w.cfg = nil
	w.epoch++
	w.status = Status{}
	w.log.Debug("reset to upload step")
}

func (w *Workflow) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.opts.Timeout > 0 {
		return context.WithTimeout(ctx, w.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

func (w *Workflow) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cfg == nil {
		return StepUpload
	}
	return StepConfigure
}

// State returns a copy of the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cfg == nil {
		return Upload{}
	}
	return w.snapshotLocked()
}

func (w *Workflow) snapshotLocked() Configure {
	return Configure{
		Structure:         schema.Clone(w.cfg.structure),
		EntryCounts:       w.cfg.counts.Clone(),
		Rules:             w.cfg.rules.Rules(),
		EncryptionEnabled: w.cfg.encryption,
		SchemaID:          w.cfg.parsed.SchemaID,
		ParseMessage:      w.cfg.parsed.Message,
		ParseStats:        w.cfg.parsed.Statistics,
		DuplicateKeys:     schema.DuplicateTableNames(w.cfg.structure),
	}
}

// Busy reports whether a parse or generate call is in flight.
func (w *Workflow) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.parsing || w.generating
}

func (w *Workflow) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// DismissStatus clears the banner.
func (w *Workflow) DismissStatus() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = Status{}
}

// TableNames lists table names for the rule editor; empty at the upload
// step.
func (w *Workflow) TableNames() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cfg == nil {
		return []string{}
	}
	return schema.ListTableNames(w.cfg.structure)
}

// AttributeNames lists the attributes offered for a rule whose table is
// tableName.
func (w *Workflow) AttributeNames(tableName string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cfg == nil {
		return []string{}
	}
	return schema.ListAttributeNames(w.cfg.structure, tableName)
}
