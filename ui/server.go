// Package ui serves the parser and query engine over HTTP, together with
// a small playground page.
package ui

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"slices"
	"strconv"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/arbor/format"
	"github.com/dhamidi/arbor/grammar"
	"github.com/dhamidi/arbor/index"
	"github.com/dhamidi/arbor/logging"
	"github.com/dhamidi/arbor/query"
	"github.com/dhamidi/arbor/syntax"
	"github.com/dhamidi/arbor/workspace"
)

//go:embed templates
var embeddedFS embed.FS

type Options struct {
	Languages map[string]*grammar.Table
	// Workspace and Index are optional. Without them the file and
	// search endpoints answer 404.
	Workspace *workspace.Workspace
	Index     *index.Index

	TimeoutMicros uint64
	MatchLimit    uint32
}

type Server struct {
	opts      Options
	templates *template.Template
	mux       *http.ServeMux
	log       commonlog.Logger
}

func NewServer(opts Options) (*Server, error) {
	tmpl, err := template.ParseFS(embeddedFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s := &Server{
		opts:      opts,
		templates: tmpl,
		mux:       http.NewServeMux(),
		log:       logging.Get("ui"),
	}
	s.mux.HandleFunc("POST /parse", s.handleParse)
	s.mux.HandleFunc("POST /query", s.handleQuery)
	s.mux.HandleFunc("GET /languages", s.handleLanguages)
	s.mux.HandleFunc("GET /files", s.handleFiles)
	s.mux.HandleFunc("GET /files/{path...}", s.handleFile)
	s.mux.HandleFunc("GET /search", s.handleSearch)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Request is the body of POST /parse and POST /query. Form fields with
// the same names are accepted too.
type Request struct {
	Language string `json:"language"`
	Source   string `json:"source"`
	Query    string `json:"query,omitempty"`
	// StartByte and EndByte restrict query matches when EndByte is set.
	StartByte     uint32  `json:"startByte,omitempty"`
	EndByte       uint32  `json:"endByte,omitempty"`
	MaxStartDepth *uint32 `json:"maxStartDepth,omitempty"`
}

type ParseResponse struct {
	Tree     *format.JSONNode `json:"tree"`
	SExp     string           `json:"sexp"`
	HasError bool             `json:"hasError"`
}

type QueryResponse struct {
	Matches  []format.JSONMatch `json:"matches"`
	Exceeded bool               `json:"exceeded"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Row    int    `json:"row,omitempty"`
	Column int    `json:"column,omitempty"`
}

func (s *Server) decode(r *http.Request) (*Request, error) {
	var req Request
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return &req, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form data: %w", err)
	}
	req.Language = r.FormValue("language")
	req.Source = r.FormValue("source")
	req.Query = r.FormValue("query")
	for name, dst := range map[string]*uint32{"startByte": &req.StartByte, "endByte": &req.EndByte} {
		if v := r.FormValue(name); v != "" {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", name, err)
			}
			*dst = uint32(n)
		}
	}
	return &req, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("write response", "error", err.Error())
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	resp := ErrorResponse{Error: err.Error()}
	var qerr *query.Error
	if errors.As(err, &qerr) {
		resp.Kind = qerr.Kind.String()
		resp.Row, resp.Column = qerr.Row, qerr.Column
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) parse(ctx context.Context, req *Request) (*syntax.Tree, int, error) {
	lang, ok := s.opts.Languages[req.Language]
	if !ok {
		return nil, http.StatusBadRequest, fmt.Errorf("unknown language %q", req.Language)
	}
	p := syntax.NewParser()
	defer p.Close()
	if err := p.SetLanguage(lang); err != nil {
		return nil, http.StatusInternalServerError, err
	}
	p.SetTimeoutMicros(s.opts.TimeoutMicros)
	p.SetLogger(logging.ParserLogger("parser"))
	tree, err := p.Parse(ctx, []byte(req.Source), nil)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	if tree == nil {
		return nil, http.StatusServiceUnavailable, errors.New("parse timed out")
	}
	return tree, 0, nil
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	req, err := s.decode(r)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	tree, status, err := s.parse(r.Context(), req)
	if err != nil {
		s.fail(w, status, err)
		return
	}
	root := tree.Root()
	s.writeJSON(w, http.StatusOK, ParseResponse{
		Tree:     format.NodeJSON(root),
		SExp:     root.PatternString(),
		HasError: root.HasError(),
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, err := s.decode(r)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	tree, status, err := s.parse(r.Context(), req)
	if err != nil {
		s.fail(w, status, err)
		return
	}
	q, err := query.New(tree.Language(), req.Query)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	c := query.NewCursor()
	defer c.Close()
	if s.opts.MatchLimit > 0 {
		c.SetMatchLimit(s.opts.MatchLimit)
	}
	if req.MaxStartDepth != nil {
		c.SetMaxStartDepth(*req.MaxStartDepth)
	}
	if req.EndByte > 0 {
		if err := c.SetByteRange(req.StartByte, req.EndByte); err != nil {
			s.fail(w, http.StatusBadRequest, err)
			return
		}
	}
	c.Exec(q, tree.Root())

	resp := QueryResponse{Matches: []format.JSONMatch{}}
	for {
		m, ok := c.NextMatch()
		if !ok {
			break
		}
		resp.Matches = append(resp.Matches, format.MatchJSON(m))
	}
	resp.Exceeded = c.DidExceedMatchLimit()
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) languageNames() []string {
	names := make([]string, 0, len(s.opts.Languages))
	for name := range s.opts.Languages {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.languageNames())
}

type FileSummary struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	HasError bool   `json:"hasError"`
}

func (s *Server) files() []FileSummary {
	if s.opts.Workspace == nil {
		return nil
	}
	var out []FileSummary
	for _, f := range s.opts.Workspace.Files() {
		out = append(out, FileSummary{Path: f.Path, Language: f.Language, HasError: f.Tree.Root().HasError()})
	}
	return out
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if s.opts.Workspace == nil {
		http.NotFound(w, r)
		return
	}
	files := s.files()
	if files == nil {
		files = []FileSummary{}
	}
	s.writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if s.opts.Workspace == nil {
		http.NotFound(w, r)
		return
	}
	f := s.opts.Workspace.File(r.PathValue("path"))
	if f == nil {
		s.fail(w, http.StatusNotFound, errors.New("file not found"))
		return
	}
	s.writeJSON(w, http.StatusOK, format.NodeJSON(f.Tree.Root()))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.opts.Index == nil {
		http.NotFound(w, r)
		return
	}
	v := r.URL.Query()
	filter := index.Filter{
		Name:       v.Get("name"),
		Text:       v.Get("text"),
		Language:   v.Get("language"),
		PathPrefix: v.Get("path"),
		Limit:      100,
	}
	if limit := v.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %w", err))
			return
		}
		filter.Limit = n
	}
	captures, err := s.opts.Index.Search(r.Context(), filter)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, captures)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Languages []string
		Files     []FileSummary
	}{
		Languages: s.languageNames(),
		Files:     s.files(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.log.Error("render index", "error", err.Error())
	}
}
