// Package workspace keeps parsed syntax trees for the files below a root
// directory and re-parses them incrementally as they change.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-enry/go-enry/v2"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/dhamidi/arbor/grammar"
	"github.com/dhamidi/arbor/logging"
	"github.com/dhamidi/arbor/syntax"
)

// ErrCancelled is returned when a parse stops because its context was
// cancelled or its timeout elapsed.
var ErrCancelled = errors.New("parse cancelled")

type Options struct {
	Include []string
	Exclude []string
	// Extensions maps an extension such as ".calc" to a language name.
	// Other files are classified by go-enry.
	Extensions map[string]string
	Languages  map[string]*grammar.Table

	TimeoutMicros uint64
	// Concurrency bounds the parsers ScanAll runs at once. Zero means
	// GOMAXPROCS.
	Concurrency int
}

type Workspace struct {
	mu    sync.RWMutex
	root  string
	opts  Options
	files map[string]*File
	log   commonlog.Logger
}

// File is the parsed state of one file. Path is relative to the workspace
// root and uses forward slashes.
type File struct {
	Path     string
	Language string
	Content  []byte
	Tree     *syntax.Tree
	// Changed lists the ranges whose structure differs from the previous
	// version. It is nil after the first parse.
	Changed []syntax.Range
}

func New(root string, opts Options) *Workspace {
	if len(opts.Include) == 0 {
		opts.Include = []string{"**/*"}
	}
	return &Workspace{
		root:  root,
		opts:  opts,
		files: make(map[string]*File),
		log:   logging.Get("workspace"),
	}
}

func (w *Workspace) Root() string {
	return w.root
}

// Detect returns the language name for a file, or "" when no configured
// language handles it.
func (w *Workspace) Detect(name string, content []byte) string {
	if lang, ok := w.opts.Extensions[strings.ToLower(path.Ext(name))]; ok {
		if _, known := w.opts.Languages[lang]; known {
			return lang
		}
	}
	if enry.IsVendor(name) || enry.IsBinary(content) {
		return ""
	}
	lang := strings.ToLower(enry.GetLanguage(path.Base(name), content))
	if _, ok := w.opts.Languages[lang]; ok {
		return lang
	}
	return ""
}

// list returns the slash paths below the root matched by the include
// globs and none of the exclude globs.
func (w *Workspace) list() ([]string, error) {
	fsys := os.DirFS(w.root)
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range w.opts.Include {
		err := doublestar.GlobWalk(fsys, pattern, func(p string, d fs.DirEntry) error {
			if seen[p] || w.excluded(p) {
				return nil
			}
			seen[p] = true
			out = append(out, p)
			return nil
		}, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (w *Workspace) excluded(p string) bool {
	for _, pattern := range w.opts.Exclude {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

// ScanAll parses every matching file. Files in no known language are
// skipped. The first read or parse error stops the scan.
func (w *Workspace) ScanAll(ctx context.Context) error {
	paths, err := w.list()
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	limit := w.opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)
	for _, p := range paths {
		g.Go(func() error {
			content, err := os.ReadFile(filepath.Join(w.root, filepath.FromSlash(p)))
			if err != nil {
				return err
			}
			_, err = w.Update(ctx, p, content)
			return err
		})
	}
	return g.Wait()
}

// ScanFile reads p from disk and updates it.
func (w *Workspace) ScanFile(ctx context.Context, p string) (*File, error) {
	content, err := os.ReadFile(filepath.Join(w.root, filepath.FromSlash(p)))
	if err != nil {
		return nil, err
	}
	return w.Update(ctx, p, content)
}

// Update records new content for p. A file seen before is re-parsed
// incrementally from its previous tree. A nil File with a nil error means
// p is in no known language.
func (w *Workspace) Update(ctx context.Context, p string, content []byte) (*File, error) {
	w.mu.RLock()
	prev := w.files[p]
	w.mu.RUnlock()

	lang := w.Detect(p, content)
	if prev != nil {
		lang = prev.Language
	}
	table := w.opts.Languages[lang]
	if table == nil {
		return nil, nil
	}

	var old *syntax.Tree
	if prev != nil {
		edit, changed := ComputeEdit(prev.Content, content)
		if !changed {
			return prev, nil
		}
		old = prev.Tree.Copy()
		old.Edit(edit)
	}

	tree, err := w.parse(ctx, table, content, old)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	f := &File{Path: p, Language: lang, Content: content, Tree: tree}
	if old != nil {
		f.Changed = old.ChangedRanges(tree)
	}
	w.log.Debug("parsed", "path", p, "language", lang, "changed", len(f.Changed))

	w.mu.Lock()
	w.files[p] = f
	w.mu.Unlock()
	return f, nil
}

func (w *Workspace) parse(ctx context.Context, table *grammar.Table, content []byte, old *syntax.Tree) (*syntax.Tree, error) {
	parser := syntax.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(table); err != nil {
		return nil, err
	}
	parser.SetTimeoutMicros(w.opts.TimeoutMicros)
	parser.SetLogger(logging.ParserLogger("parser"))
	tree, err := parser.Parse(ctx, content, old)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, ErrCancelled
	}
	return tree, nil
}

func (w *Workspace) Remove(p string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.files, p)
}

func (w *Workspace) File(p string) *File {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.files[p]
}

// Files returns the parsed files sorted by path.
func (w *Workspace) Files() []*File {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*File, 0, len(w.files))
	for _, f := range w.files {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b *File) int { return strings.Compare(a.Path, b.Path) })
	return out
}
