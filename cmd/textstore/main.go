// Package main is the entry point for the textstore command.
package main

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	json "github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/dshills/textstore/internal/app"
	"github.com/dshills/textstore/internal/diag"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

// queryFlag collects repeated query flags of one kind.
type queryFlag struct {
	kind    app.QueryKind
	queries *[]app.Query
}

func (f queryFlag) String() string { return "" }

func (f queryFlag) Set(s string) error {
	q, err := app.ParseQuery(f.kind, s)
	if err != nil {
		return err
	}
	*f.queries = append(*f.queries, q)
	return nil
}

type cliOptions struct {
	app     app.Options
	files   []string
	queries []app.Query
	stat    bool
	json    bool
	watch   bool
}

func run() int {
	opts, ok := parseFlags(os.Args[1:])
	if !ok {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, opts.app)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Close()

	status := 0
	if err := application.OpenAll(ctx, opts.files); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		status = 1
	}

	out := newPrinter(os.Stdout, opts.json)
	for _, q := range opts.queries {
		res, err := application.Query(ctx, q)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			status = 1
			continue
		}
		if err := out.result(res); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	if opts.stat {
		if err := out.stats(application.Stats()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	if opts.watch {
		fmt.Fprintf(os.Stderr, "watching %d files, interrupt to stop\n", application.Store().Count())
		if err := application.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}
	return status
}

func parseFlags(args []string) (cliOptions, bool) {
	var opts cliOptions
	var showVersion, noMmap bool
	var stride int
	var maxSize int64

	fs := flag.NewFlagSet("textstore", flag.ContinueOnError)
	fs.StringVar(&opts.app.ConfigPath, "config", "", "Path to configuration file (.toml, .yaml)")
	fs.StringVar(&opts.app.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&opts.app.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.BoolVar(&opts.json, "json", false, "Print results as JSON lines")
	fs.BoolVar(&opts.watch, "watch", false, "Keep running and reload files when they change")
	fs.BoolVar(&noMmap, "no-mmap", false, "Read files instead of mapping them")
	fs.IntVar(&stride, "stride", 0, "Bytes between index checkpoints")
	fs.Int64Var(&maxSize, "max-size", 0, "Largest file to open, in bytes")
	fs.BoolVar(&opts.stat, "stat", false, "Describe every open file")
	fs.Var(queryFlag{app.QueryOffset, &opts.queries}, "at", "Locate a byte: path:offset (repeatable)")
	fs.Var(queryFlag{app.QueryChar, &opts.queries}, "char", "Find a character: path:index (repeatable)")
	fs.Var(queryFlag{app.QueryPos, &opts.queries}, "pos", "Find a character: path:line:col (repeatable)")
	fs.Var(queryFlag{app.QueryLine, &opts.queries}, "line", "Describe a line: path:line (repeatable)")
	fs.BoolVar(&showVersion, "version", false, "Show version information")
	fs.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	fs.Usage = func() {
		w := fs.Output()
		fmt.Fprintf(w, "textstore - indexed UTF-8 text lookups\n\n")
		fmt.Fprintf(w, "Usage: textstore [options] [files...]\n\n")
		fmt.Fprintf(w, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(w, "\nExamples:\n")
		fmt.Fprintf(w, "  textstore -at main.go:120            Line and column of byte 120\n")
		fmt.Fprintf(w, "  textstore -pos main.go:10:4 -json    Offset of line 10, column 4\n")
		fmt.Fprintf(w, "  cat notes.txt | textstore -line -:3  Third line of standard input\n")
		fmt.Fprintf(w, "  textstore -stat -watch *.log         Describe files and follow changes\n")
	}

	if err := fs.Parse(args); err != nil {
		return opts, false
	}

	if showVersion {
		fmt.Printf("textstore %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if level := opts.app.LogLevel; level != "" {
		if _, ok := app.ParseLevel(level); !ok {
			fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", level)
			return opts, false
		}
		opts.app.LogLevel = strings.ToLower(level)
	}

	overrides := make(map[string]any)
	if noMmap {
		overrides["files.mmap"] = false
	}
	if stride > 0 {
		overrides["index.stride"] = stride
	}
	if maxSize > 0 {
		overrides["files.maxFileSize"] = maxSize
	}
	if opts.watch {
		overrides["files.watch"] = true
	}
	opts.app.Overrides = overrides
	opts.files = fs.Args()

	if len(opts.files) == 0 && len(opts.queries) == 0 && !opts.stat {
		fs.Usage()
		return opts, false
	}
	return opts, true
}

// printer writes results as JSON lines or as annotated source.
type printer struct {
	w       io.Writer
	enc     *json.Encoder
	options diag.Options
}

func newPrinter(w io.Writer, asJSON bool) *printer {
	p := &printer{w: w}
	if asJSON {
		p.enc = json.NewEncoder(w)
		return p
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.options.Color = true
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			p.options.MaxWidth = width - 6
		}
	}
	return p
}

func (p *printer) result(res app.Result) error {
	if p.enc != nil {
		return p.enc.Encode(res)
	}
	_, err := io.WriteString(p.w, diag.Format(res.Diagnostic(), p.options))
	return err
}

func (p *printer) stats(stats app.Stats) error {
	if p.enc != nil {
		return p.enc.Encode(stats)
	}
	for _, d := range stats.Documents {
		_, err := fmt.Fprintf(p.w, "%s: %d bytes, %d chars, %d lines, %d checkpoints, %s %s, %s, mapped=%v\n",
			d.Path, d.Size, d.Chars, d.Lines, d.Checkpoints, d.Encoding, d.LineEnding,
			cmp.Or(d.Language, "unknown language"), d.Mapped)
		if err != nil {
			return err
		}
	}
	m := stats.Metrics
	_, err := fmt.Fprintf(p.w, "%d open, %d queries (%.0f%% found, avg %dns)\n",
		stats.Store.OpenCount, m.QueryCount, m.HitRate(), m.AvgQueryNs)
	return err
}
