// Package index stores query captures of a workspace in SQLite so they can
// be searched without re-parsing.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dhamidi/arbor/query"
	"github.com/dhamidi/arbor/workspace"
)

type Index struct {
	db *gorm.DB
	// MatchLimit is passed to every query cursor when non-zero.
	MatchLimit uint32
}

// Open connects to the database at dsn, creating its directory, and
// migrates the schema. ":memory:" opens a private in-memory database.
func Open(dsn string, debug bool) (*Index, error) {
	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	config := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if debug {
		config.Logger = logger.Default.LogMode(logger.Info)
	}
	db, err := gorm.Open(sqlite.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if dsn == ":memory:" {
		// Every pooled connection would get its own empty database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&Capture{}, &Run{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Index{db: db}, nil
}

func (ix *Index) Close() error {
	sqlDB, err := ix.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Rebuild replaces the captures of files with the matches of queries,
// which are keyed by language name. Files in a language without a query
// are cleared.
func (ix *Index) Rebuild(ctx context.Context, files []*workspace.File, source string, queries map[string]*query.Query) (*Run, error) {
	run := &Run{Query: source, Files: len(files)}
	langs := make([]string, 0, len(queries))
	for lang := range queries {
		langs = append(langs, lang)
	}
	encoded, err := json.Marshal(langs)
	if err != nil {
		return nil, err
	}
	run.Languages = datatypes.JSON(encoded)

	err = ix.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, f := range files {
			n, exceeded, err := ix.store(tx, f, queries[f.Language])
			if err != nil {
				return err
			}
			run.Captures += n
			run.Exceeded = run.Exceeded || exceeded
		}
		return tx.Create(run).Error
	})
	if err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}
	return run, nil
}

// Update replaces the captures of a single file.
func (ix *Index) Update(ctx context.Context, f *workspace.File, q *query.Query) (int, error) {
	var n int
	err := ix.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		n, _, err = ix.store(tx, f, q)
		return err
	})
	return n, err
}

// Remove deletes the captures of path.
func (ix *Index) Remove(ctx context.Context, path string) error {
	return ix.db.WithContext(ctx).Where("path = ?", path).Delete(&Capture{}).Error
}

func (ix *Index) store(tx *gorm.DB, f *workspace.File, q *query.Query) (int, bool, error) {
	if err := tx.Where("path = ?", f.Path).Delete(&Capture{}).Error; err != nil {
		return 0, false, err
	}
	if q == nil || f.Tree == nil {
		return 0, false, nil
	}
	rows, exceeded, err := ix.collect(f, q)
	if err != nil || len(rows) == 0 {
		return 0, exceeded, err
	}
	if err := tx.CreateInBatches(rows, 200).Error; err != nil {
		return 0, exceeded, fmt.Errorf("store %s: %w", f.Path, err)
	}
	return len(rows), exceeded, nil
}

func (ix *Index) collect(f *workspace.File, q *query.Query) ([]Capture, bool, error) {
	c := query.NewCursor()
	defer c.Close()
	if ix.MatchLimit > 0 {
		c.SetMatchLimit(ix.MatchLimit)
	}
	c.ExecWithOptions(q, f.Tree.Root(), query.Options{Text: f.Content})

	settings := make(map[int]datatypes.JSON)
	var rows []Capture
	for {
		m, ok := c.NextMatch()
		if !ok {
			break
		}
		js, ok := settings[m.PatternIndex]
		if !ok {
			props, err := q.Settings(m.PatternIndex)
			if err != nil {
				return nil, false, err
			}
			if len(props) > 0 {
				encoded, err := json.Marshal(props)
				if err != nil {
					return nil, false, err
				}
				js = datatypes.JSON(encoded)
			}
			settings[m.PatternIndex] = js
		}
		for _, capture := range m.Captures {
			n := capture.Node
			start, end := n.StartPoint(), n.EndPoint()
			rows = append(rows, Capture{
				Path:        f.Path,
				Language:    f.Language,
				Pattern:     m.PatternIndex,
				Name:        capture.Name,
				NodeType:    n.Type(),
				Text:        string(f.Content[n.StartByte():n.EndByte()]),
				StartByte:   n.StartByte(),
				EndByte:     n.EndByte(),
				StartRow:    start.Row,
				StartColumn: start.Column,
				EndRow:      end.Row,
				EndColumn:   end.Column,
				Settings:    js,
			})
		}
	}
	return rows, c.DidExceedMatchLimit(), nil
}

// Filter selects captures. Empty fields match everything. Text may use
// the SQL wildcards % and _.
type Filter struct {
	Name     string
	Text     string
	Language string
	// PathPrefix limits the search to paths below a directory.
	PathPrefix string
	Limit      int
}

func (ix *Index) Search(ctx context.Context, f Filter) ([]Capture, error) {
	tx := ix.db.WithContext(ctx).Model(&Capture{})
	if f.Name != "" {
		tx = tx.Where("name = ?", f.Name)
	}
	if f.Text != "" {
		if strings.ContainsAny(f.Text, "%_") {
			tx = tx.Where("text LIKE ?", f.Text)
		} else {
			tx = tx.Where("text = ?", f.Text)
		}
	}
	if f.Language != "" {
		tx = tx.Where("language = ?", f.Language)
	}
	if f.PathPrefix != "" {
		tx = tx.Where("path LIKE ?", strings.TrimSuffix(f.PathPrefix, "/")+"/%")
	}
	if f.Limit > 0 {
		tx = tx.Limit(f.Limit)
	}
	var out []Capture
	if err := tx.Order("path").Order("start_byte").Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return out, nil
}

// LastRun returns the most recent indexing pass.
func (ix *Index) LastRun(ctx context.Context) (*Run, error) {
	var run Run
	if err := ix.db.WithContext(ctx).Order("id desc").First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}
