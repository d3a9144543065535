package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhamidi/arbor/config"
	"github.com/dhamidi/arbor/format"
	"github.com/dhamidi/arbor/grammar"
	"github.com/dhamidi/arbor/grammars"
	"github.com/dhamidi/arbor/logging"
	"github.com/dhamidi/arbor/syntax"
	"github.com/dhamidi/arbor/workspace"
)

// app carries the global flags and the state loaded from them.
type app struct {
	configPath string
	verbosity  int
	logFile    string
	color      string

	cfg       *config.Config
	languages map[string]*grammar.Table
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.verbosity > 0 {
		cfg.Verbosity = a.verbosity
	}
	if a.logFile != "" {
		cfg.LogFile = a.logFile
	}
	logging.Configure(cfg.Verbosity, cfg.LogFile)
	a.cfg = cfg

	a.languages = make(map[string]*grammar.Table)
	for _, name := range grammars.Names() {
		a.languages[name], _ = grammars.Lookup(name)
	}
	for name, path := range cfg.Tables {
		if !filepath.IsAbs(path) && cfg.Path != "" {
			path = filepath.Join(filepath.Dir(cfg.Path), path)
		}
		table, err := grammar.LoadFile(path)
		if err != nil {
			return fmt.Errorf("load table for %s: %w", name, err)
		}
		a.languages[name] = table
	}
	return nil
}

func (a *app) workspace(root string) *workspace.Workspace {
	return workspace.New(root, workspace.Options{
		Include:       a.cfg.Include,
		Exclude:       a.cfg.Exclude,
		Extensions:    a.cfg.Extensions,
		Languages:     a.languages,
		TimeoutMicros: a.cfg.TimeoutMicros,
	})
}

// language resolves the --language flag, or detects the language of path.
func (a *app) language(flag, path string, content []byte) (string, *grammar.Table, error) {
	name := flag
	if name == "" {
		name = a.workspace(".").Detect(filepath.ToSlash(path), content)
	}
	table, ok := a.languages[name]
	if !ok {
		if name == "" {
			return "", nil, fmt.Errorf("cannot detect the language of %s, use --language", path)
		}
		return "", nil, fmt.Errorf("unknown language %q", name)
	}
	return name, table, nil
}

func (a *app) parser(lang *grammar.Table) (*syntax.Parser, error) {
	p := syntax.NewParser()
	if err := p.SetLanguage(lang); err != nil {
		return nil, err
	}
	p.SetTimeoutMicros(a.cfg.TimeoutMicros)
	p.SetLogger(logging.ParserLogger("parser"))
	return p, nil
}

func (a *app) styles(w io.Writer) *format.Styles {
	return format.NewStyles(format.ColorEnabled(a.color, w))
}

// readSource reads a file, or standard input for "-".
func readSource(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// readQuery returns a query given inline or, prefixed with @, as a file.
func readQuery(arg string) (string, error) {
	file, ok := strings.CutPrefix(arg, "@")
	if !ok {
		return arg, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read query: %w", err)
	}
	return string(data), nil
}
