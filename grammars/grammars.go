// Package grammars holds the fixture languages used by the tests and the
// command line tool. Each table is built once on first use.
package grammars

import (
	"bytes"
	_ "embed"
	"sort"
	"sync"

	"github.com/dhamidi/arbor/grammar"
	"github.com/dhamidi/arbor/grammar/tablegen"
)

//go:embed lisp.ebnf
var lispSource []byte

var (
	calcOnce, jsonOnce, lispOnce sync.Once
	calcTable, jsonTable, lispTable *grammar.Table
)

// Calc is a small statement language with comments, fields, operator
// precedence and an expression supertype.
func Calc() *grammar.Table {
	calcOnce.Do(func() { calcTable = tablegen.MustBuild(calcGrammar) })
	return calcTable
}

func JSON() *grammar.Table {
	jsonOnce.Do(func() { jsonTable = tablegen.MustBuild(jsonGrammar) })
	return jsonTable
}

// Lisp is compiled from an EBNF description.
func Lisp() *grammar.Table {
	lispOnce.Do(func() {
		g, err := tablegen.FromEBNF("lisp.ebnf", bytes.NewReader(lispSource), "Program")
		if err != nil {
			panic("grammars: lisp: " + err.Error())
		}
		lispTable = tablegen.MustBuild(g)
	})
	return lispTable
}

var builtin = map[string]func() *grammar.Table{
	"calc": Calc,
	"json": JSON,
	"lisp": Lisp,
}

// Lookup returns a built-in language by name.
func Lookup(name string) (*grammar.Table, bool) {
	fn, ok := builtin[name]
	if !ok {
		return nil, false
	}
	return fn(), true
}

func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
