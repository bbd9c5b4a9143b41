package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/thomasrohde/celviz/internal/render"
	"github.com/thomasrohde/celviz/pkg/diagnostics"
	"github.com/thomasrohde/celviz/pkg/evaluator"
	"github.com/thomasrohde/celviz/pkg/parser"
	"github.com/thomasrohde/celviz/pkg/runtime"
	"github.com/thomasrohde/celviz/pkg/stdlib"
)

const (
	banner     = "celviz REPL. Type :help for commands, :quit to exit."
	promptMain = "cel> "
	promptCont = "...  "
)

const replHelp = `:quit            leave the REPL
:env             list the bound variables
:set name = expr evaluate expr and bind it to name
:unset name      remove a binding
:trace expr      show how expr evaluates
anything else is evaluated as an expression
`

// session is the REPL state between lines.
type session struct {
	rt     *runtime.Runtime
	env    *evaluator.Env
	out    io.Writer
	errOut io.Writer
}

func newSession(rt *runtime.Runtime, out, errOut io.Writer) *session {
	return &session{rt: rt, env: evaluator.NewEnv(nil), out: out, errOut: errOut}
}

// handle processes one complete input and reports whether to quit.
func (s *session) handle(input string) (quit bool) {
	line := strings.TrimSpace(input)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, ":") {
		s.eval(line)
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		fmt.Fprint(s.out, replHelp)
	case ":env":
		bindings := s.env.Bindings()
		names := s.env.Names()
		if len(names) == 0 {
			fmt.Fprintln(s.out, "(no variables)")
		}
		for _, name := range names {
			fmt.Fprintf(s.out, "%s = %s\n", name, bindings[name])
		}
	case ":set":
		name, expr, err := splitAssignment(arg)
		if err != nil {
			fmt.Fprintf(s.errOut, "usage: :set name = expr (%s)\n", err)
			return false
		}
		v, err := s.rt.Evaluate(expr, s.env)
		if err != nil {
			s.report(err, expr)
			return false
		}
		s.env = s.env.Extend(name, v)
		fmt.Fprintf(s.out, "%s = %s\n", name, v)
	case ":unset":
		bindings := s.env.Bindings()
		if _, ok := bindings[arg]; !ok {
			fmt.Fprintf(s.errOut, "no variable named %s\n", arg)
			return false
		}
		delete(bindings, arg)
		s.env = evaluator.NewEnv(bindings)
	case ":trace":
		root, err := s.rt.Process(arg, s.env)
		if err != nil {
			s.report(err, arg)
			return false
		}
		if err := render.Text(s.out, root); err != nil {
			fmt.Fprintf(s.errOut, "error rendering trace: %s\n", err)
		}
	default:
		fmt.Fprintf(s.errOut, "unknown command %s. Type :help for commands.\n", cmd)
	}
	return false
}

func (s *session) eval(source string) {
	v, err := s.rt.Evaluate(source, s.env)
	if err != nil {
		s.report(err, source)
		return
	}
	fmt.Fprintln(s.out, v.String())
}

func (s *session) report(err error, source string) {
	d := runtime.ToDiagnostic(err)
	msg := diagnostics.FormatDiagnostic(d, true)
	if caret := diagnostics.Caret(source, d); caret != "" {
		msg += "\n" + caret
	}
	fmt.Fprintln(s.errOut, msg)
}

// incomplete reports whether source fails to parse only because it ends
// too early, so that the REPL should read another line.
func incomplete(source string) bool {
	_, err := parser.Parse(source, "")
	var parseErr *parser.ParseError
	if !errors.As(err, &parseErr) || parseErr.Diag.Span == nil {
		return false
	}
	return parseErr.Diag.Span.Offset >= len(strings.TrimRight(source, " \t\r\n"))
}

// completer offers built-in method names after a '.' and REPL commands
// at the start of a line.
func completer(methods *stdlib.Registry) func(string) []string {
	names := map[string]bool{}
	for _, m := range methods.All() {
		names[m.Name] = true
	}
	commands := []string{":env", ":help", ":quit", ":set ", ":trace ", ":unset "}
	return func(line string) []string {
		var out []string
		if strings.HasPrefix(line, ":") && !strings.Contains(line, " ") {
			for _, c := range commands {
				if strings.HasPrefix(c, line) {
					out = append(out, c)
				}
			}
			return out
		}
		dot := strings.LastIndex(line, ".")
		if dot < 0 {
			return nil
		}
		prefix, partial := line[:dot+1], line[dot+1:]
		for name := range names {
			if strings.HasPrefix(name, partial) {
				out = append(out, prefix+name+"(")
			}
		}
		sort.Strings(out)
		return out
	}
}

func readByParseProbe(ln *liner.State) (string, bool) {
	var b strings.Builder

	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		// A blank continuation line gives up on the pending input.
		if b.Len() > 0 && strings.TrimSpace(line) == "" {
			return b.String(), true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") || !incomplete(src) {
			return src, true
		}
	}
}

func historyPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, name)
}

func (c *cli) cmdRepl(_ []string) int {
	fmt.Fprintln(c.stdout, banner)

	histPath := historyPath(c.cfg.HistoryFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(completer(stdlib.Defaults()))

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		} else {
			c.logger.Warn("cannot save history", zap.String("file", histPath), zap.Error(err))
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	s := newSession(c.newRuntime("<repl>"), c.stdout, c.stderr)
	for {
		src, ok := readByParseProbe(ln)
		if !ok {
			fmt.Fprintln(c.stdout)
			break
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		if s.handle(src) {
			break
		}
	}
	return exitOK
}
