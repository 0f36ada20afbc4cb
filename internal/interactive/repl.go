package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
)

// Run reads commands from the terminal until exit, Ctrl+D or ctx is done.
// Command errors are printed and the loop carries on.
func Run(ctx context.Context, s *Session) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.Prompt(),
		HistoryFile:     historyFile(),
		AutoComplete:    s.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize wizard: %w", err)
	}
	defer rl.Close()

	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	fmt.Fprintln(s.out, "Welcome to the datamock wizard!")
	fmt.Fprintln(s.out, "Type 'help' for available commands, 'exit' or 'quit' to exit.")
	fmt.Fprintln(s.out)

	for {
		rl.SetPrompt(s.Prompt())

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					fmt.Fprintln(s.out, "Type 'exit' or 'quit' to exit")
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out, "exit")
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "clear" {
			fmt.Fprint(s.out, "\033[H\033[2J")
			continue
		}

		if err := s.Execute(ctx, line); err != nil {
			if errors.Is(err, ErrQuit) {
				fmt.Fprintln(s.out, "Goodbye!")
				return nil
			}
			color.New(color.FgRed).Fprintf(rl.Stderr(), "Error: %v\n", err)
		}
	}
}

func historyFile() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".datamock_history")
}

// completer offers command names, table names for count/attributes and the
// rule field keywords.
func (s *Session) completer() *readline.PrefixCompleter {
	tables := func(string) []string { return s.wf.TableNames() }
	ruleIDs := func(string) []string {
		cfg, err := s.configure()
		if err != nil {
			return nil
		}
		ids := make([]string, 0, len(cfg.Rules))
		for _, r := range cfg.Rules {
			ids = append(ids, r.ID)
		}
		return ids
	}

	items := make([]readline.PrefixCompleterInterface, 0, len(commandOrder))
	for _, name := range commandOrder {
		switch name {
		case "type":
			items = append(items, readline.PcItem(name,
				readline.PcItem("sql"), readline.PcItem("nosql"), readline.PcItem("graph")))
		case "count", "attributes":
			items = append(items, readline.PcItem(name, readline.PcItemDynamic(tables)))
		case "encrypt":
			items = append(items, readline.PcItem(name, readline.PcItem("on"), readline.PcItem("off")))
		case "rule":
			items = append(items, readline.PcItem(name,
				readline.PcItem("add"),
				readline.PcItem("rm", readline.PcItemDynamic(ruleIDs)),
				readline.PcItem("set", readline.PcItemDynamic(ruleIDs,
					readline.PcItem("table"), readline.PcItem("attribute"), readline.PcItem("algorithm"))),
			))
		default:
			items = append(items, readline.PcItem(name))
		}
	}
	return readline.NewPrefixCompleter(items...)
}
