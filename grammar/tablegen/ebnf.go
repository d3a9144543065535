package tablegen

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/exp/ebnf"
)

// LoadEBNF reads an EBNF grammar file and converts it with FromEBNF.
func LoadEBNF(filename, start string) (Grammar, error) {
	f, err := os.Open(filename)
	if err != nil {
		return Grammar{}, fmt.Errorf("open grammar: %w", err)
	}
	defer f.Close()
	return FromEBNF(filename, f, start)
}

// FromEBNF converts a grammar in the notation of golang.org/x/exp/ebnf.
//
// Productions whose name starts with a lowercase letter are lexical. The
// lexical productions referenced from syntactic ones become named tokens,
// the others are inlined into them. Syntactic productions become rules;
// a leading underscore hides a rule. Whitespace between tokens is skipped.
func FromEBNF(name string, src io.Reader, start string) (Grammar, error) {
	g, err := ebnf.Parse(name, src)
	if err != nil {
		return Grammar{}, fmt.Errorf("parse grammar: %w", joinErrors(err))
	}
	if err := ebnf.Verify(g, start); err != nil {
		return Grammar{}, fmt.Errorf("verify grammar: %w", joinErrors(err))
	}

	c := &ebnfConverter{grammar: g, tokens: make(map[string]bool), inlining: make(map[string]bool)}
	out := Grammar{Name: strings.TrimSuffix(filepath.Base(name), ".ebnf"), Extras: []Rule{Pat(`\s`)}}

	names := make([]string, 0, len(g))
	for n := range g {
		if n != start {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	names = append([]string{start}, names...)

	for _, n := range names {
		prod := g[n]
		if isLexical(n) {
			continue
		}
		r, err := c.rule(prod.Expr)
		if err != nil {
			return Grammar{}, fmt.Errorf("production %s: %w", n, err)
		}
		out.Rules = append(out.Rules, Def(n, r))
	}
	for _, n := range names {
		if !c.tokens[n] {
			continue
		}
		re, err := c.regex(g[n].Expr)
		if err != nil {
			return Grammar{}, fmt.Errorf("production %s: %w", n, err)
		}
		out.Rules = append(out.Rules, Def(n, Pat(re)))
	}
	return out, nil
}

type ebnfConverter struct {
	grammar  ebnf.Grammar
	tokens   map[string]bool
	inlining map[string]bool
}

func isLexical(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsLower(r)
}

func (c *ebnfConverter) rule(expr ebnf.Expression) (Rule, error) {
	switch e := expr.(type) {
	case nil:
		return Blank(), nil
	case *ebnf.Name:
		if isLexical(e.String) {
			c.tokens[e.String] = true
		}
		return Sym(e.String), nil
	case *ebnf.Token:
		return Str(e.String), nil
	case ebnf.Sequence:
		members := make([]Rule, 0, len(e))
		for _, x := range e {
			r, err := c.rule(x)
			if err != nil {
				return nil, err
			}
			members = append(members, r)
		}
		return Seq(members...), nil
	case ebnf.Alternative:
		members := make([]Rule, 0, len(e))
		for _, x := range e {
			r, err := c.rule(x)
			if err != nil {
				return nil, err
			}
			members = append(members, r)
		}
		return Choice(members...), nil
	case *ebnf.Group:
		return c.rule(e.Body)
	case *ebnf.Option:
		r, err := c.rule(e.Body)
		if err != nil {
			return nil, err
		}
		return Optional(r), nil
	case *ebnf.Repetition:
		r, err := c.rule(e.Body)
		if err != nil {
			return nil, err
		}
		return Repeat(r), nil
	case *ebnf.Range:
		return nil, fmt.Errorf("range %q … %q outside a lexical production", e.Begin.String, e.End.String)
	}
	return nil, fmt.Errorf("unsupported expression %T", expr)
}

func (c *ebnfConverter) regex(expr ebnf.Expression) (string, error) {
	switch e := expr.(type) {
	case nil:
		return "", nil
	case *ebnf.Name:
		if c.inlining[e.String] {
			return "", fmt.Errorf("lexical production %s is recursive", e.String)
		}
		prod, ok := c.grammar[e.String]
		if !ok {
			return "", fmt.Errorf("undefined production %s", e.String)
		}
		c.inlining[e.String] = true
		defer delete(c.inlining, e.String)
		re, err := c.regex(prod.Expr)
		return "(?:" + re + ")", err
	case *ebnf.Token:
		return regexp.QuoteMeta(e.String), nil
	case *ebnf.Range:
		lo, _ := utf8.DecodeRuneInString(e.Begin.String)
		hi, _ := utf8.DecodeRuneInString(e.End.String)
		return fmt.Sprintf(`[\x{%x}-\x{%x}]`, lo, hi), nil
	case ebnf.Sequence:
		var b strings.Builder
		for _, x := range e {
			re, err := c.regex(x)
			if err != nil {
				return "", err
			}
			b.WriteString(re)
		}
		return b.String(), nil
	case ebnf.Alternative:
		parts := make([]string, 0, len(e))
		for _, x := range e {
			re, err := c.regex(x)
			if err != nil {
				return "", err
			}
			parts = append(parts, re)
		}
		return "(?:" + strings.Join(parts, "|") + ")", nil
	case *ebnf.Group:
		re, err := c.regex(e.Body)
		return "(?:" + re + ")", err
	case *ebnf.Option:
		re, err := c.regex(e.Body)
		return "(?:" + re + ")?", err
	case *ebnf.Repetition:
		re, err := c.regex(e.Body)
		return "(?:" + re + ")*", err
	}
	return "", fmt.Errorf("unsupported expression %T", expr)
}

// joinErrors flattens the error list the ebnf package returns.
func joinErrors(err error) error {
	v := reflect.ValueOf(err)
	if v.Kind() != reflect.Slice {
		return err
	}
	errs := make([]error, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		if e, ok := v.Index(i).Interface().(error); ok {
			errs = append(errs, e)
		}
	}
	return errors.Join(errs...)
}
