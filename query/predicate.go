package query

import (
	"bytes"
	"fmt"
	"regexp"
	"slices"
)

type StepType int

const (
	StepDone StepType = iota
	StepCapture
	StepString
)

// PredicateStep is one raw token of a predicate. ValueID is a capture id
// for StepCapture and a string id for StepString.
type PredicateStep struct {
	Type    StepType
	ValueID uint32
}

// Property is a key with an optional value, recorded by #set!, #is? and
// #is-not?. Positive is false for #is-not?.
type Property struct {
	Key      string
	Value    string
	HasValue bool
	Positive bool
}

// PredicateArg is a predicate argument: a capture name or a literal.
type PredicateArg struct {
	Value     string
	IsCapture bool
}

// Predicate is a predicate the engine does not evaluate itself. It is
// passed to the cursor's PredicateFilter.
type Predicate struct {
	Name string
	Args []PredicateArg
}

// PredicateFilter decides custom predicates. Returning false drops the
// match.
type PredicateFilter func(p Predicate, m *Match) bool

type predicateKind int

const (
	predicateEq predicateKind = iota
	predicateMatch
	predicateAnyOf
	predicateGeneric
)

type predicate struct {
	kind     predicateKind
	capture  uint32
	other    uint32
	hasOther bool
	value    string
	values   []string
	re       *regexp.Regexp
	positive bool
	some     bool
	generic  Predicate
}

// predicate reads a (#name args...) form. c.pos is on the '#'.
func (c *compiler) predicate(p *pattern) error {
	c.pos++
	name := c.name()
	if name == "" {
		return c.syntaxError()
	}
	steps := []PredicateStep{{Type: StepString, ValueID: c.q.stringID(name)}}
	var args []PredicateArg
	for {
		c.skip()
		switch ch := c.peek(); {
		case c.eof():
			return c.syntaxError()
		case ch == ')':
			c.pos++
			p.steps = append(p.steps, steps...)
			p.steps = append(p.steps, PredicateStep{Type: StepDone})
			return c.interpret(p, name, args, steps[1:])
		case ch == '@':
			c.pos++
			at := c.pos
			capture := c.name()
			if capture == "" {
				return c.syntaxError()
			}
			id, ok := c.q.CaptureIndexForName(capture)
			if !ok {
				return c.errorAt(ErrorCapture, at)
			}
			steps = append(steps, PredicateStep{Type: StepCapture, ValueID: id})
			args = append(args, PredicateArg{Value: capture, IsCapture: true})
		case ch == '"':
			lit, err := c.str()
			if err != nil {
				return err
			}
			steps = append(steps, PredicateStep{Type: StepString, ValueID: c.q.stringID(lit)})
			args = append(args, PredicateArg{Value: lit})
		case isNameChar(ch):
			lit := c.name()
			steps = append(steps, PredicateStep{Type: StepString, ValueID: c.q.stringID(lit)})
			args = append(args, PredicateArg{Value: lit})
		default:
			return c.syntaxError()
		}
	}
}

func (c *compiler) predicateError(p *pattern, format string, a ...any) error {
	_, col := position(c.src, p.start)
	return &Error{Kind: ErrorPredicate, Row: p.row, Column: col, Offset: p.start, Text: fmt.Sprintf(format, a...)}
}

// interpret turns the arguments of a known predicate into its checked
// form. Unknown predicates are kept for the cursor's filter.
func (c *compiler) interpret(p *pattern, name string, args []PredicateArg, steps []PredicateStep) error {
	need := func(n int, capture bool, what string) error {
		if n >= len(args) {
			return nil
		}
		if args[n].IsCapture != capture {
			kind := "a string literal"
			if capture {
				kind = "a capture name"
			}
			got := fmt.Sprintf("%q", args[n].Value)
			if args[n].IsCapture {
				got = "@" + args[n].Value
			}
			return c.predicateError(p, "%s argument to #%s must be %s, got %s", what, name, kind, got)
		}
		return nil
	}

	switch name {
	case "eq?", "not-eq?", "any-eq?", "any-not-eq?":
		if len(args) != 2 {
			return c.predicateError(p, "#%s expects 2 arguments, got %d", name, len(args))
		}
		if err := need(0, true, "first"); err != nil {
			return err
		}
		pr := predicate{
			kind:     predicateEq,
			capture:  steps[0].ValueID,
			positive: name == "eq?" || name == "any-eq?",
			some:     name == "any-eq?" || name == "any-not-eq?",
		}
		if args[1].IsCapture {
			pr.other, pr.hasOther = steps[1].ValueID, true
		} else {
			pr.value = args[1].Value
		}
		p.predicates = append(p.predicates, pr)
	case "match?", "not-match?", "any-match?", "any-not-match?":
		if len(args) != 2 {
			return c.predicateError(p, "#%s expects 2 arguments, got %d", name, len(args))
		}
		if err := need(0, true, "first"); err != nil {
			return err
		}
		if err := need(1, false, "second"); err != nil {
			return err
		}
		re, err := regexp.Compile(args[1].Value)
		if err != nil {
			return c.predicateError(p, "pattern error: %v", err)
		}
		p.predicates = append(p.predicates, predicate{
			kind:     predicateMatch,
			capture:  steps[0].ValueID,
			re:       re,
			positive: name == "match?" || name == "any-match?",
			some:     name == "any-match?" || name == "any-not-match?",
		})
	case "any-of?", "not-any-of?":
		if len(args) < 2 {
			return c.predicateError(p, "#%s expects at least 2 arguments, got %d", name, len(args))
		}
		if err := need(0, true, "first"); err != nil {
			return err
		}
		pr := predicate{kind: predicateAnyOf, capture: steps[0].ValueID, positive: name == "any-of?"}
		for i := 1; i < len(args); i++ {
			if args[i].IsCapture {
				return c.predicateError(p, "arguments to #%s must be string literals, got @%s", name, args[i].Value)
			}
			pr.values = append(pr.values, args[i].Value)
		}
		p.predicates = append(p.predicates, pr)
	case "set!", "is?", "is-not?":
		if len(args) == 0 || len(args) > 2 {
			return c.predicateError(p, "#%s expects 1-2 arguments, got %d", name, len(args))
		}
		if err := need(0, false, "first"); err != nil {
			return err
		}
		if err := need(1, false, "second"); err != nil {
			return err
		}
		prop := Property{Key: args[0].Value, Positive: name != "is-not?"}
		if len(args) == 2 {
			prop.Value, prop.HasValue = args[1].Value, true
		}
		if name == "set!" {
			p.settings = append(p.settings, prop)
		} else {
			p.assertions = append(p.assertions, prop)
		}
	default:
		p.predicates = append(p.predicates, predicate{
			kind:    predicateGeneric,
			generic: Predicate{Name: name, Args: args},
		})
	}
	return nil
}

// satisfied evaluates the predicates of p against m.
func (p *pattern) satisfied(m *Match, filter PredicateFilter) bool {
	for i := range p.predicates {
		if !p.predicates[i].eval(m, filter) {
			return false
		}
	}
	return true
}

func (pr *predicate) eval(m *Match, filter PredicateFilter) bool {
	texts := m.texts(pr.capture)
	switch pr.kind {
	case predicateEq:
		if pr.hasOther {
			others := m.texts(pr.other)
			test := func(t []byte) bool {
				for _, o := range others {
					if bytes.Equal(t, o) == pr.positive {
						return true
					}
				}
				return false
			}
			return quantify(texts, pr.some, test)
		}
		if len(texts) == 0 {
			return !pr.positive
		}
		return quantify(texts, pr.some, func(t []byte) bool {
			return (string(t) == pr.value) == pr.positive
		})
	case predicateMatch:
		if len(texts) == 0 {
			return !pr.positive
		}
		return quantify(texts, pr.some, func(t []byte) bool {
			return pr.re.Match(t) == pr.positive
		})
	case predicateAnyOf:
		for _, t := range texts {
			if slices.Contains(pr.values, string(t)) != pr.positive {
				return false
			}
		}
		return true
	default:
		return filter == nil || filter(pr.generic, m)
	}
}

// quantify applies test to every text, or to at least one when some is
// set.
func quantify(texts [][]byte, some bool, test func([]byte) bool) bool {
	if some {
		return slices.ContainsFunc(texts, test)
	}
	for _, t := range texts {
		if !test(t) {
			return false
		}
	}
	return true
}
