// Command celviz is the CEL expression evaluator and trace viewer.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thomasrohde/celviz/internal/config"
	"github.com/thomasrohde/celviz/internal/oracle"
	"github.com/thomasrohde/celviz/internal/render"
	"github.com/thomasrohde/celviz/internal/watch"
	"github.com/thomasrohde/celviz/pkg/ast"
	"github.com/thomasrohde/celviz/pkg/diagnostics"
	"github.com/thomasrohde/celviz/pkg/evaluator"
	"github.com/thomasrohde/celviz/pkg/help"
	"github.com/thomasrohde/celviz/pkg/runtime"
	"github.com/thomasrohde/celviz/pkg/value"
)

var (
	// Version is set at build time
	Version = "dev"
)

// Exit codes.
const (
	exitOK       = 0
	exitUsage    = 1
	exitSyntax   = 2
	exitEval     = 4
	exitDisagree = 5
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config
	logger *zap.Logger
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "usage: celviz <command> [options]")
		fmt.Fprintln(stderr, "commands: tokens, ast, eval, trace, check, fmt, compare, watch, repl, help")
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return exitUsage
	}
	logger, err := initLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return exitUsage
	}
	defer func() { _ = logger.Sync() }()
	logger.Debug("configuration loaded", zap.String("version", Version), zap.String("config", cfg.String()))

	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr, cfg: cfg, logger: logger}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "tokens":
		return c.cmdTokens(rest)
	case "ast":
		return c.cmdAST(rest)
	case "eval":
		return c.cmdEval(rest)
	case "trace":
		return c.cmdTrace(rest)
	case "check":
		return c.cmdCheck(rest)
	case "fmt":
		return c.cmdFmt(rest)
	case "compare":
		return c.cmdCompare(rest)
	case "watch":
		return c.cmdWatch(rest)
	case "repl":
		return c.cmdRepl(rest)
	case "help", "--help", "-h":
		return c.cmdHelp(rest)
	case "version", "--version":
		fmt.Fprintln(stdout, "celviz "+Version)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		return exitUsage
	}
}

// options holds the flags shared by all commands. Commands ignore the ones
// that do not apply to them.
type options struct {
	file     string
	expr     string
	hasExpr  bool
	pretty   bool
	html     bool
	text     bool
	write    bool
	envFiles []string
	vars     []string
	declare  []string
}

func parseOptions(args []string) (*options, error) {
	opts := &options{}
	next := func(i *int, flag string) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		*i++
		return args[*i], nil
	}
	for i := 0; i < len(args); i++ {
		var err error
		var v string
		switch arg := args[i]; arg {
		case "--pretty":
			opts.pretty = true
		case "--html":
			opts.html = true
		case "--text":
			opts.text = true
		case "--write":
			opts.write = true
		case "-e", "--expr":
			if opts.expr, err = next(&i, arg); err != nil {
				return nil, err
			}
			opts.hasExpr = true
		case "--env":
			if v, err = next(&i, arg); err != nil {
				return nil, err
			}
			opts.envFiles = append(opts.envFiles, v)
		case "--var":
			if v, err = next(&i, arg); err != nil {
				return nil, err
			}
			opts.vars = append(opts.vars, v)
		case "--declare":
			if v, err = next(&i, arg); err != nil {
				return nil, err
			}
			for _, name := range strings.Split(v, ",") {
				if name = strings.TrimSpace(name); name != "" {
					opts.declare = append(opts.declare, name)
				}
			}
		default:
			if strings.HasPrefix(arg, "-") && arg != "-" {
				return nil, fmt.Errorf("unknown flag: %s", arg)
			}
			if opts.file != "" {
				return nil, fmt.Errorf("unexpected argument: %s", arg)
			}
			opts.file = arg
		}
	}
	if opts.hasExpr && opts.file != "" {
		return nil, fmt.Errorf("give either a file or -e, not both")
	}
	return opts, nil
}

// setup parses the flags and reads the source. It reports usage and I/O
// problems itself and returns a non-zero exit code for them.
func (c *cli) setup(args []string, usage string) (*options, string, string, int) {
	opts, err := parseOptions(args)
	if err != nil {
		fmt.Fprintf(c.stderr, "error: %s\nusage: %s\n", err, usage)
		return nil, "", "", exitUsage
	}
	if !opts.hasExpr && opts.file == "" {
		fmt.Fprintf(c.stderr, "usage: %s\n", usage)
		return nil, "", "", exitUsage
	}
	source, filename, exitCode := c.readSource(opts)
	if exitCode != exitOK {
		return nil, "", "", exitCode
	}
	return opts, source, filename, exitOK
}

func (c *cli) readSource(opts *options) (string, string, int) {
	if opts.hasExpr {
		return opts.expr, "<expr>", exitOK
	}
	if opts.file == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			fmt.Fprintf(c.stderr, "error reading stdin: %s\n", err)
			return "", "", exitUsage
		}
		return string(data), "<stdin>", exitOK
	}

	source, err := os.ReadFile(opts.file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", opts.file), nil, "")
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, opts.pretty))
		return "", "", exitUsage
	}
	return string(source), opts.file, exitOK
}

func (c *cli) newRuntime(filename string) *runtime.Runtime {
	return runtime.New(
		runtime.WithLogger(c.logger),
		runtime.WithBudget(c.cfg.Budget()),
		runtime.WithFilename(filename),
	)
}

// report prints diagnostics to stderr. Pretty output shows the offending
// source line under each diagnostic.
func (c *cli) report(diags []diagnostics.Diagnostic, source string, pretty bool) {
	if !pretty {
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics(diags, false))
		return
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = diagnostics.FormatDiagnostic(d, true)
		if caret := diagnostics.Caret(source, d); caret != "" {
			parts[i] += "\n" + caret
		}
	}
	fmt.Fprintln(c.stderr, strings.Join(parts, "\n\n"))
}

// fail reports err and maps it to an exit code.
func (c *cli) fail(err error, source string, pretty bool) int {
	d := runtime.ToDiagnostic(err)
	c.report([]diagnostics.Diagnostic{d}, source, pretty)
	switch {
	case diagnostics.IsSyntax(d.Code):
		return exitSyntax
	case d.Code == diagnostics.EIO || d.Code == diagnostics.EEnv:
		return exitUsage
	}
	return exitEval
}

func (c *cli) writeJSON(v any, pretty bool) int {
	var data []byte
	var err error
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		fmt.Fprintf(c.stderr, "error serializing output: %s\n", err)
		return exitUsage
	}
	fmt.Fprintln(c.stdout, string(data))
	return exitOK
}

func (c *cli) cmdTokens(args []string) int {
	opts, source, filename, code := c.setup(args, "celviz tokens <file|-|-e expr> [--pretty]")
	if code != exitOK {
		return code
	}
	tokens, err := c.newRuntime(filename).Tokenize(source)
	if err != nil {
		return c.fail(err, source, opts.pretty)
	}
	return c.writeJSON(tokens, opts.pretty)
}

func (c *cli) cmdAST(args []string) int {
	opts, source, filename, code := c.setup(args, "celviz ast <file|-|-e expr> [--pretty]")
	if code != exitOK {
		return code
	}
	expr, err := c.newRuntime(filename).ParseToAST(source)
	if err != nil {
		return c.fail(err, source, opts.pretty)
	}
	return c.writeJSON(ast.Encode(expr), opts.pretty)
}

func (c *cli) cmdEval(args []string) int {
	opts, source, filename, code := c.setup(args, "celviz eval <file|-|-e expr> [--env file] [--var name=expr] [--pretty]")
	if code != exitOK {
		return code
	}
	rt := c.newRuntime(filename)
	env, err := buildEnv(rt, opts)
	if err != nil {
		return c.fail(err, source, opts.pretty)
	}
	v, err := rt.Evaluate(source, env)
	if err != nil {
		return c.fail(err, source, opts.pretty)
	}
	if opts.pretty {
		fmt.Fprintln(c.stdout, v.String())
		return exitOK
	}
	out, err := value.ToJSON(v)
	if err != nil {
		fmt.Fprintf(c.stderr, "error serializing result: %s\n", err)
		return exitEval
	}
	fmt.Fprintln(c.stdout, string(out))
	return exitOK
}

// traceEnvelope is the JSON document printed by the trace command.
type traceEnvelope struct {
	RunID string               `json:"runId"`
	File  string               `json:"file"`
	OK    bool                 `json:"ok"`
	Nodes int                  `json:"nodes"`
	Trace *evaluator.TraceNode `json:"trace"`
}

func (c *cli) cmdTrace(args []string) int {
	opts, source, filename, code := c.setup(args, "celviz trace <file|-|-e expr> [--html|--text] [--env file] [--var name=expr]")
	if code != exitOK {
		return code
	}
	rt := c.newRuntime(filename)
	env, err := buildEnv(rt, opts)
	if err != nil {
		return c.fail(err, source, opts.pretty)
	}
	root, err := rt.Process(source, env)
	if err != nil {
		return c.fail(err, source, opts.pretty)
	}
	runID := uuid.NewString()
	c.logger.Debug("trace complete", zap.String("run_id", runID), zap.Bool("ok", root.OK()), zap.Int("nodes", root.Count()))

	switch {
	case opts.html:
		if err := render.HTML(c.stdout, render.Page{Title: filename, RunID: runID, Source: source, Root: root}); err != nil {
			fmt.Fprintf(c.stderr, "error rendering trace: %s\n", err)
			return exitUsage
		}
	case opts.text:
		if err := render.Text(c.stdout, root); err != nil {
			fmt.Fprintf(c.stderr, "error rendering trace: %s\n", err)
			return exitUsage
		}
	default:
		if code := c.writeJSON(traceEnvelope{RunID: runID, File: filename, OK: root.OK(), Nodes: root.Count(), Trace: root}, opts.pretty); code != exitOK {
			return code
		}
	}
	if !root.OK() {
		return exitEval
	}
	return exitOK
}

func (c *cli) cmdCheck(args []string) int {
	opts, source, filename, code := c.setup(args, "celviz check <file|-|-e expr> [--declare a,b] [--env file] [--pretty]")
	if code != exitOK {
		return code
	}
	rt := c.newRuntime(filename)

	// Without any declarations the undefined identifier check is off.
	var declared []string
	if len(opts.declare) > 0 || len(opts.envFiles) > 0 || len(opts.vars) > 0 {
		env, err := buildEnv(rt, opts)
		if err != nil {
			return c.fail(err, source, opts.pretty)
		}
		declared = append(env.Names(), opts.declare...)
	}

	diags := rt.Check(source, declared)
	if len(diags) > 0 {
		c.report(diags, source, opts.pretty)
		return exitSyntax
	}
	if opts.pretty {
		fmt.Fprintln(c.stdout, "No errors found.")
	} else {
		fmt.Fprintln(c.stdout, "[]")
	}
	return exitOK
}

func (c *cli) cmdFmt(args []string) int {
	opts, source, filename, code := c.setup(args, "celviz fmt <file|-|-e expr> [--write]")
	if code != exitOK {
		return code
	}
	formatted, err := c.newRuntime(filename).Format(source)
	if err != nil {
		return c.fail(err, source, opts.pretty)
	}
	if opts.write {
		if opts.hasExpr || opts.file == "-" {
			fmt.Fprintln(c.stderr, "error: --write needs a file")
			return exitUsage
		}
		if err := os.WriteFile(opts.file, []byte(formatted), 0644); err != nil {
			fmt.Fprintf(c.stderr, "error writing file: %s\n", err)
			return exitUsage
		}
		return exitOK
	}
	fmt.Fprint(c.stdout, formatted)
	return exitOK
}

// comparison is the JSON document printed by the compare command.
type comparison struct {
	Status    string `json:"status"`
	Celviz    string `json:"celviz"`
	Reference string `json:"reference"`
}

func describe(v value.Value, err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return v.String()
}

func (c *cli) cmdCompare(args []string) int {
	opts, source, filename, code := c.setup(args, "celviz compare <file|-|-e expr> [--env file] [--var name=expr]")
	if code != exitOK {
		return code
	}
	rt := c.newRuntime(filename)
	env, err := buildEnv(rt, opts)
	if err != nil {
		return c.fail(err, source, opts.pretty)
	}
	o, err := oracle.New(c.logger)
	if err != nil {
		fmt.Fprintf(c.stderr, "error: %s\n", err)
		return exitUsage
	}

	verdict := o.Compare(rt, source, env)
	out := comparison{
		Status:    "agree",
		Celviz:    describe(verdict.Ours, verdict.OursErr),
		Reference: describe(verdict.Reference, verdict.ReferenceErr),
	}
	exit := exitOK
	switch {
	case verdict.Unsupported():
		out.Status = "unsupported"
	case !verdict.Agree():
		out.Status = "disagree"
		exit = exitDisagree
	}
	if code := c.writeJSON(out, opts.pretty); code != exitOK {
		return code
	}
	return exit
}

func (c *cli) cmdWatch(args []string) int {
	opts, err := parseOptions(args)
	if err != nil || opts.file == "" || opts.file == "-" {
		fmt.Fprintln(c.stderr, "usage: celviz watch <file> [--env file] [--var name=expr]")
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := c.newRuntime(opts.file)
	err = watch.Watch(ctx, opts.file, watch.Options{Debounce: c.cfg.WatchDebounce, Logger: c.logger}, func(source string) error {
		fmt.Fprintf(c.stdout, "--- %s\n", opts.file)
		// The env files may change alongside the expression.
		env, err := buildEnv(rt, opts)
		if err != nil {
			c.fail(err, source, true)
			return err
		}
		root, err := rt.Process(source, env)
		if err != nil {
			c.fail(err, source, true)
			return err
		}
		return render.Text(c.stdout, root)
	})
	if err != nil {
		fmt.Fprintf(c.stderr, "error: %s\n", err)
		return exitUsage
	}
	return exitOK
}

func (c *cli) cmdHelp(args []string) int {
	showIndex := false
	topic := ""
	for _, arg := range args {
		if arg == "--index" {
			showIndex = true
		} else if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if showIndex {
		if topic != "methods" {
			fmt.Fprintln(c.stderr, "error: --index is only supported for the methods topic (celviz help methods --index)")
			return exitUsage
		}
		fmt.Fprint(c.stdout, help.MethodIndex())
		return exitOK
	}

	if topic == "" {
		fmt.Fprint(c.stdout, help.QUICKREF)
		return exitOK
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(c.stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return exitUsage
	}
	fmt.Fprint(c.stdout, content)
	return exitOK
}
