package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Rana718/datamock/internal/registry"
	"github.com/Rana718/datamock/internal/render"
	"github.com/Rana718/datamock/internal/schema"
	"github.com/Rana718/datamock/internal/validation"
	"github.com/Rana718/datamock/internal/workflow"
	"github.com/fatih/color"
)

var (
	infoColor = color.New(color.FgCyan)
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
)

// ErrQuit is returned by Execute when the user asks to leave.
var ErrQuit = errors.New("quit")

// Session drives a workflow from text commands. It has no terminal of its
// own; Run wraps it in a readline loop.
type Session struct {
	wf     *workflow.Workflow
	out    io.Writer
	dbType validation.DatabaseType
	load   func(path string) (*validation.File, error)
}

func NewSession(wf *workflow.Workflow, out io.Writer) *Session {
	return &Session{
		wf:     wf,
		out:    out,
		dbType: validation.SQL,
		load:   validation.LoadFile,
	}
}

type command struct {
	usage string
	help  string
	run   func(s *Session, ctx context.Context, args []string) error
}

var commands map[string]command

// order in which help lists commands
var commandOrder = []string{
	"type", "upload", "show", "tables", "attributes", "count", "counts",
	"encrypt", "rule", "rules", "algorithms", "payload", "generate",
	"reset", "status", "dismiss", "help", "exit",
}

func init() {
	commands = map[string]command{
		"type":       {"type <sql|nosql|graph>", "choose the database type for the next upload", (*Session).cmdType},
		"upload":     {"upload <schema-file> [seed-file]", "parse a schema file", (*Session).cmdUpload},
		"show":       {"show", "print the parsed structure", (*Session).cmdShow},
		"tables":     {"tables", "list table names", (*Session).cmdTables},
		"attributes": {"attributes <table>", "list the attributes of a table", (*Session).cmdAttributes},
		"count":      {"count <table> <n>", "set how many rows to generate for a table", (*Session).cmdCount},
		"counts":     {"counts", "show the row counts", (*Session).cmdCounts},
		"encrypt":    {"encrypt on|off", "switch encryption rules on or off", (*Session).cmdEncrypt},
		"rule":       {"rule add | rule rm <id> | rule set <id> <table|attribute|algorithm> <value>", "edit encryption rules", (*Session).cmdRule},
		"rules":      {"rules", "list encryption rules", (*Session).cmdRules},
		"algorithms": {"algorithms", "list encryption algorithms", (*Session).cmdAlgorithms},
		"payload":    {"payload", "print the generate request as JSON", (*Session).cmdPayload},
		"generate":   {"generate", "submit the configuration for generation", (*Session).cmdGenerate},
		"reset":      {"reset", "discard everything and go back to upload", (*Session).cmdReset},
		"status":     {"status", "show the current step and message", (*Session).cmdStatus},
		"dismiss":    {"dismiss", "clear the current message", (*Session).cmdDismiss},
		"help":       {"help", "show this help", (*Session).cmdHelp},
		"exit":       {"exit", "leave the wizard", func(*Session, context.Context, []string) error { return ErrQuit }},
	}
	commands["quit"] = commands["exit"]
}

// Execute runs one command line.
func (s *Session) Execute(ctx context.Context, line string) error {
	args, err := parseCommandLine(line)
	if err != nil {
		return fmt.Errorf("failed to parse command: %w", err)
	}
	if len(args) == 0 {
		return nil
	}

	cmd, ok := commands[strings.ToLower(args[0])]
	if !ok {
		return fmt.Errorf("unknown command %q (type 'help')", args[0])
	}
	return cmd.run(s, ctx, args[1:])
}

// Prompt reflects the current step.
func (s *Session) Prompt() string {
	step := s.wf.Step()
	if step == workflow.StepUpload {
		return fmt.Sprintf("datamock [%s:%s]> ", step, s.dbType)
	}
	return fmt.Sprintf("datamock [%s]> ", step)
}

func (s *Session) cmdType(_ context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("type")
	}
	s.dbType = validation.DatabaseType(strings.ToLower(args[0]))
	fmt.Fprintf(s.out, "Database type set to %s\n", s.dbType)
	return nil
}

func (s *Session) cmdUpload(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usageError("upload")
	}

	in := validation.UploadInput{DatabaseType: s.dbType}
	primary, err := s.load(args[0])
	if err != nil {
		return err
	}
	in.PrimaryFile = primary
	if len(args) == 2 {
		seed, err := s.load(args[1])
		if err != nil {
			return err
		}
		in.SecondaryFile = seed
	}

	infoColor.Fprintf(s.out, "Parsing %s...\n", primary.Name)
	cfg, err := s.wf.SubmitUpload(ctx, in)
	if err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			for _, v := range verrs {
				errColor.Fprintf(s.out, "✗ %s\n", v.Message)
			}
			return nil
		}
		return err
	}

	okColor.Fprintf(s.out, "✓ Parsed %d table(s)\n", len(schema.ListTableNames(cfg.Structure)))
	if cfg.ParseMessage != "" {
		fmt.Fprintln(s.out, cfg.ParseMessage)
	}
	for _, dup := range cfg.DuplicateKeys {
		warnColor.Fprintf(s.out, "⚠️  table %q appears more than once; its row count is shared\n", dup)
	}
	render.Structure(s.out, cfg.Structure, cfg.EntryCounts)
	return nil
}

func (s *Session) configure() (workflow.Configure, error) {
	cfg, ok := s.wf.State().(workflow.Configure)
	if !ok {
		return workflow.Configure{}, fmt.Errorf("%w: upload a schema first", workflow.ErrNotConfiguring)
	}
	return cfg, nil
}

func (s *Session) cmdShow(context.Context, []string) error {
	cfg, err := s.configure()
	if err != nil {
		return err
	}
	render.Structure(s.out, cfg.Structure, cfg.EntryCounts)
	render.Stats(s.out, schema.Stats(cfg.Structure))
	if cfg.SchemaID != "" {
		fmt.Fprintf(s.out, "Schema id: %s\n", cfg.SchemaID)
	}
	return nil
}

func (s *Session) cmdTables(context.Context, []string) error {
	if _, err := s.configure(); err != nil {
		return err
	}
	for _, name := range s.wf.TableNames() {
		fmt.Fprintln(s.out, name)
	}
	return nil
}

func (s *Session) cmdAttributes(_ context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("attributes")
	}
	cfg, err := s.configure()
	if err != nil {
		return err
	}
	if _, ok := schema.FindTable(cfg.Structure, args[0]); !ok {
		return fmt.Errorf("unknown table %q", args[0])
	}
	for _, name := range s.wf.AttributeNames(args[0]) {
		fmt.Fprintln(s.out, name)
	}
	return nil
}

func (s *Session) cmdCount(_ context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("count")
	}
	if _, err := s.configure(); err != nil {
		return err
	}
	n, ok := s.wf.SetEntryCount(args[0], args[1])
	if !ok {
		return fmt.Errorf("unknown table %q", args[0])
	}
	fmt.Fprintf(s.out, "%s: %d rows\n", args[0], n)
	return nil
}

func (s *Session) cmdCounts(context.Context, []string) error {
	cfg, err := s.configure()
	if err != nil {
		return err
	}
	render.Counts(s.out, schema.ListTableNames(cfg.Structure), cfg.EntryCounts)
	return nil
}

func (s *Session) cmdEncrypt(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("encrypt")
	}
	if _, err := s.configure(); err != nil {
		return err
	}

	switch strings.ToLower(args[0]) {
	case "on", "true", "yes":
		s.wf.ToggleEncryption(true)
	case "off", "false", "no":
		s.wf.ToggleEncryption(false)
	default:
		return usageError("encrypt")
	}
	return s.cmdRules(ctx, nil)
}

func (s *Session) cmdRule(_ context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("rule")
	}

	switch strings.ToLower(args[0]) {
	case "add":
		rule, err := s.wf.AddEncryptionRule()
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Added rule %s\n", render.ShortID(rule.ID))
		return nil

	case "rm", "remove", "delete":
		if len(args) != 2 {
			return usageError("rule")
		}
		id, err := s.wf.ResolveRule(args[1])
		if err != nil {
			return err
		}
		if err := s.wf.RemoveEncryptionRule(id); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Removed rule %s\n", render.ShortID(id))
		return nil

	case "set":
		if len(args) != 4 {
			return usageError("rule")
		}
		id, err := s.wf.ResolveRule(args[1])
		if err != nil {
			return err
		}
		field, err := registry.ParseField(args[2])
		if err != nil {
			return err
		}
		value := args[3]
		if err := s.checkRuleValue(id, field, value); err != nil {
			return err
		}
		rule, err := s.wf.UpdateEncryptionRule(id, field, value)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s  %s.%s  %s\n", render.ShortID(rule.ID), rule.TableName, rule.Attribute, rule.Algorithm)
		return nil
	}
	return usageError("rule")
}

// checkRuleValue keeps rule edits to the names the structure offers, the
// same choices a picker would show.
func (s *Session) checkRuleValue(id string, field registry.Field, value string) error {
	switch field {
	case registry.FieldTableName:
		for _, name := range s.wf.TableNames() {
			if name == value {
				return nil
			}
		}
		return fmt.Errorf("unknown table %q", value)

	case registry.FieldAttribute:
		cfg, err := s.configure()
		if err != nil {
			return err
		}
		for _, r := range cfg.Rules {
			if r.ID != id {
				continue
			}
			if r.TableName == "" {
				return errors.New("pick the rule's table first")
			}
			for _, name := range s.wf.AttributeNames(r.TableName) {
				if name == value {
					return nil
				}
			}
			return fmt.Errorf("table %q has no attribute %q", r.TableName, value)
		}
		return fmt.Errorf("%w: %s", registry.ErrUnknownRule, id)

	case registry.FieldAlgorithm:
		if !registry.IsKnownAlgorithm(value) {
			return fmt.Errorf("unknown algorithm %q (see 'algorithms')", value)
		}
	}
	return nil
}

func (s *Session) cmdRules(context.Context, []string) error {
	cfg, err := s.configure()
	if err != nil {
		return err
	}
	render.Rules(s.out, cfg.Rules, cfg.EncryptionEnabled)
	return nil
}

func (s *Session) cmdAlgorithms(context.Context, []string) error {
	render.Algorithms(s.out)
	return nil
}

func (s *Session) cmdPayload(context.Context, []string) error {
	req, err := s.wf.GeneratePayload()
	if err != nil {
		return err
	}
	data, err := render.Encode(req, render.FormatJSON)
	if err != nil {
		return err
	}
	_, err = s.out.Write(data)
	return err
}

func (s *Session) cmdGenerate(ctx context.Context, _ []string) error {
	infoColor.Fprintln(s.out, "Submitting generation request...")
	if err := s.wf.SubmitGenerate(ctx); err != nil {
		return err
	}
	okColor.Fprintf(s.out, "✓ %s\n", s.wf.Status().Success)
	return nil
}

func (s *Session) cmdReset(context.Context, []string) error {
	s.wf.ResetToUpload()
	fmt.Fprintln(s.out, "Back at the upload step")
	return nil
}

func (s *Session) cmdStatus(context.Context, []string) error {
	fmt.Fprintf(s.out, "Step: %s\n", s.wf.Step())
	if s.wf.Busy() {
		fmt.Fprintln(s.out, "A request is in flight")
	}
	st := s.wf.Status()
	if msg := st.ErrorMessage(); msg != "" {
		fmt.Fprintf(s.out, "Error: %s\n", msg)
	}
	if st.Success != "" {
		fmt.Fprintf(s.out, "%s\n", st.Success)
	}
	return nil
}

func (s *Session) cmdDismiss(context.Context, []string) error {
	s.wf.DismissStatus()
	return nil
}

func (s *Session) cmdHelp(context.Context, []string) error {
	for _, name := range commandOrder {
		c := commands[name]
		fmt.Fprintf(s.out, "  %-34s %s\n", c.usage, c.help)
	}
	return nil
}

func usageError(name string) error {
	return fmt.Errorf("usage: %s", commands[name].usage)
}

// parseCommandLine splits a line into arguments, honouring quotes and
// backslash escapes.
func parseCommandLine(line string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)
	escaped := false
	hasArg := false

	for _, ch := range line {
		switch {
		case escaped:
			current.WriteRune(ch)
			escaped = false
		case ch == '\\':
			escaped = true
			hasArg = true
		case (ch == '"' || ch == '\'') && !inQuote:
			inQuote = true
			quoteChar = ch
			hasArg = true
		case ch == quoteChar && inQuote:
			inQuote = false
			quoteChar = 0
		case (ch == ' ' || ch == '\t') && !inQuote:
			if hasArg {
				args = append(args, current.String())
				current.Reset()
				hasArg = false
			}
		default:
			current.WriteRune(ch)
			hasArg = true
		}
	}

	if inQuote {
		return nil, errors.New("unterminated quote")
	}
	if hasArg {
		args = append(args, current.String())
	}
	return args, nil
}
