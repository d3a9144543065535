package tablegen

import (
	"fmt"
	"regexp"
	"strings"
)

const maxAlternatives = 4096

type terminal struct {
	name    string
	named   bool
	pattern string
	literal bool
}

type nonterminal struct {
	name      string
	hidden    bool
	aux       bool
	supertype bool
}

// ref points at a terminal or a nonterminal before final symbol numbers
// are known.
type ref struct {
	terminal bool
	index    int
}

type element struct {
	sym        ref
	field      string
	alias      string
	aliasNamed bool
	aliased    bool
}

type alternative struct {
	elems   []element
	prec    int
	assoc   Assoc
	hasPrec bool
}

type production struct {
	lhs int
	alternative
}

type lowering struct {
	g            Grammar
	terminals    []terminal
	termIndex    map[string]int
	skips        []string
	extras       []int
	nonterminals []nonterminal
	ntIndex      map[string]int
	tokenRules   map[string]int
	productions  []production
	current      string
	repeats      int
}

func termKey(name string, named bool) string {
	if named {
		return "n:" + name
	}
	return "a:" + name
}

func lower(g Grammar) (*lowering, error) {
	if len(g.Rules) == 0 {
		return nil, fmt.Errorf("grammar %q has no rules", g.Name)
	}
	l := &lowering{
		g:          g,
		termIndex:  make(map[string]int),
		ntIndex:    make(map[string]int),
		tokenRules: make(map[string]int),
	}
	supertypes := make(map[string]bool)
	for _, name := range g.Supertypes {
		supertypes[name] = true
	}

	for _, def := range g.Rules {
		if _, dup := l.ntIndex[def.Name]; dup {
			return nil, fmt.Errorf("rule %q defined twice", def.Name)
		}
		if _, dup := l.tokenRules[def.Name]; dup {
			return nil, fmt.Errorf("rule %q defined twice", def.Name)
		}
		if isTokenRule(def.Rule) {
			if strings.HasPrefix(def.Name, "_") {
				return nil, fmt.Errorf("token rule %q cannot be hidden", def.Name)
			}
			pattern, literal, err := regexOf(def.Rule)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", def.Name, err)
			}
			l.tokenRules[def.Name] = l.addTerminal(terminal{name: def.Name, named: true, pattern: pattern, literal: literal})
			continue
		}
		l.ntIndex[def.Name] = len(l.nonterminals)
		l.nonterminals = append(l.nonterminals, nonterminal{
			name:      def.Name,
			hidden:    strings.HasPrefix(def.Name, "_") || supertypes[def.Name],
			supertype: supertypes[def.Name],
		})
	}
	if _, ok := l.ntIndex[g.Rules[0].Name]; !ok {
		return nil, fmt.Errorf("start rule %q must not be a token", g.Rules[0].Name)
	}
	if l.nonterminals[0].hidden {
		return nil, fmt.Errorf("start rule %q must be visible", g.Rules[0].Name)
	}
	for name := range supertypes {
		if _, ok := l.ntIndex[name]; !ok {
			return nil, fmt.Errorf("supertype %q is not a rule", name)
		}
	}

	for _, extra := range g.Extras {
		switch r := extra.(type) {
		case patRule:
			l.skips = append(l.skips, r.pattern)
		case symRule:
			idx, ok := l.tokenRules[r.name]
			if !ok {
				return nil, fmt.Errorf("extra %q must be a token rule", r.name)
			}
			l.extras = append(l.extras, idx)
		case strRule:
			l.extras = append(l.extras, l.addTerminal(terminal{name: r.value, pattern: regexp.QuoteMeta(r.value), literal: true}))
		default:
			return nil, fmt.Errorf("unsupported extra %T", extra)
		}
	}

	for _, def := range g.Rules {
		nt, ok := l.ntIndex[def.Name]
		if !ok {
			continue
		}
		l.current = def.Name
		l.repeats = 0
		alts, err := l.expand(def.Rule)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", def.Name, err)
		}
		for _, alt := range alts {
			l.productions = append(l.productions, production{lhs: nt, alternative: alt})
		}
	}
	return l, nil
}

func (l *lowering) addTerminal(t terminal) int {
	key := termKey(t.name, t.named)
	if idx, ok := l.termIndex[key]; ok {
		return idx
	}
	l.termIndex[key] = len(l.terminals)
	l.terminals = append(l.terminals, t)
	return len(l.terminals) - 1
}

func isTokenRule(r Rule) bool {
	switch r := r.(type) {
	case strRule, patRule, tokenRule:
		return true
	case precRule:
		return isTokenRule(r.content)
	}
	return false
}

// regexOf renders a lexical rule as a Go regular expression.
func regexOf(r Rule) (string, bool, error) {
	switch r := r.(type) {
	case strRule:
		return regexp.QuoteMeta(r.value), true, nil
	case patRule:
		return r.pattern, false, nil
	case tokenRule:
		re, _, err := regexOf(r.content)
		return re, false, err
	case precRule:
		return regexOf(r.content)
	case blankRule:
		return "", false, nil
	case seqRule:
		var b strings.Builder
		for _, m := range r.members {
			re, _, err := regexOf(m)
			if err != nil {
				return "", false, err
			}
			b.WriteString("(?:" + re + ")")
		}
		return b.String(), false, nil
	case choiceRule:
		parts := make([]string, 0, len(r.members))
		for _, m := range r.members {
			re, _, err := regexOf(m)
			if err != nil {
				return "", false, err
			}
			parts = append(parts, re)
		}
		return "(?:" + strings.Join(parts, "|") + ")", false, nil
	case repeatRule:
		re, _, err := regexOf(r.content)
		if err != nil {
			return "", false, err
		}
		if r.atLeastOne {
			return "(?:" + re + ")+", false, nil
		}
		return "(?:" + re + ")*", false, nil
	}
	return "", false, fmt.Errorf("%T cannot appear inside a token", r)
}

func (l *lowering) expand(r Rule) ([]alternative, error) {
	switch r := r.(type) {
	case symRule:
		if idx, ok := l.tokenRules[r.name]; ok {
			return single(ref{terminal: true, index: idx}), nil
		}
		if idx, ok := l.ntIndex[r.name]; ok {
			return single(ref{index: idx}), nil
		}
		return nil, fmt.Errorf("undefined rule %q", r.name)
	case strRule:
		idx := l.addTerminal(terminal{name: r.value, pattern: regexp.QuoteMeta(r.value), literal: true})
		return single(ref{terminal: true, index: idx}), nil
	case patRule:
		idx := l.addTerminal(terminal{name: r.pattern, pattern: r.pattern})
		return single(ref{terminal: true, index: idx}), nil
	case tokenRule:
		re, _, err := regexOf(r.content)
		if err != nil {
			return nil, err
		}
		idx := l.addTerminal(terminal{name: re, pattern: re})
		return single(ref{terminal: true, index: idx}), nil
	case blankRule:
		return []alternative{{}}, nil
	case seqRule:
		out := []alternative{{}}
		for _, m := range r.members {
			alts, err := l.expand(m)
			if err != nil {
				return nil, err
			}
			if len(out)*len(alts) > maxAlternatives {
				return nil, fmt.Errorf("sequence expands to more than %d alternatives", maxAlternatives)
			}
			next := make([]alternative, 0, len(out)*len(alts))
			for _, prefix := range out {
				for _, suffix := range alts {
					next = append(next, concat(prefix, suffix))
				}
			}
			out = next
		}
		return out, nil
	case choiceRule:
		var out []alternative
		for _, m := range r.members {
			alts, err := l.expand(m)
			if err != nil {
				return nil, err
			}
			out = append(out, alts...)
		}
		return out, nil
	case repeatRule:
		alts, err := l.expand(r.content)
		if err != nil {
			return nil, err
		}
		l.repeats++
		aux := len(l.nonterminals)
		l.nonterminals = append(l.nonterminals, nonterminal{
			name:   fmt.Sprintf("%s_repeat%d", l.current, l.repeats),
			hidden: true,
			aux:    true,
		})
		self := element{sym: ref{index: aux}}
		for _, alt := range alts {
			recursive := alternative{elems: append([]element{self}, alt.elems...)}
			l.productions = append(l.productions, production{lhs: aux, alternative: recursive})
		}
		for _, alt := range alts {
			l.productions = append(l.productions, production{lhs: aux, alternative: alternative{elems: alt.elems}})
		}
		out := single(ref{index: aux})
		if !r.atLeastOne {
			out = append(out, alternative{})
		}
		return out, nil
	case fieldRule:
		alts, err := l.expand(r.content)
		if err != nil {
			return nil, err
		}
		for i := range alts {
			for j := range alts[i].elems {
				if alts[i].elems[j].field == "" {
					alts[i].elems[j].field = r.name
				}
			}
		}
		return alts, nil
	case aliasRule:
		alts, err := l.expand(r.content)
		if err != nil {
			return nil, err
		}
		for i := range alts {
			if len(alts[i].elems) != 1 {
				return nil, fmt.Errorf("alias %q must wrap a single symbol", r.name)
			}
			alts[i].elems[0].alias = r.name
			alts[i].elems[0].aliasNamed = r.named
			alts[i].elems[0].aliased = true
		}
		return alts, nil
	case precRule:
		alts, err := l.expand(r.content)
		if err != nil {
			return nil, err
		}
		for i := range alts {
			if !alts[i].hasPrec {
				alts[i].prec = r.value
				alts[i].assoc = r.assoc
				alts[i].hasPrec = true
			}
		}
		return alts, nil
	}
	return nil, fmt.Errorf("unsupported rule %T", r)
}

func single(r ref) []alternative {
	return []alternative{{elems: []element{{sym: r}}}}
}

func concat(a, b alternative) alternative {
	out := alternative{
		elems: make([]element, 0, len(a.elems)+len(b.elems)),
		prec:  a.prec,
		assoc: a.assoc,
	}
	out.hasPrec = a.hasPrec
	out.elems = append(out.elems, a.elems...)
	out.elems = append(out.elems, b.elems...)
	if b.hasPrec {
		out.prec, out.assoc, out.hasPrec = b.prec, b.assoc, true
	}
	return out
}
