package grammar

import (
	"errors"
	"fmt"
)

var ErrMalformedTable = errors.New("malformed grammar table")

// VersionError reports a table whose format version is outside the
// supported range.
type VersionError struct {
	Name    string
	Version uint32
	Min     uint32
	Max     uint32
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("incompatible language version %d for %q: expected a version between %d and %d",
		e.Version, e.Name, e.Min, e.Max)
}

// CheckVersion reports a *VersionError when the table cannot be used.
func (t *Table) CheckVersion() error {
	if t.Version < MinCompatibleLanguageVersion || t.Version > LanguageVersion {
		return &VersionError{
			Name:    t.Name,
			Version: t.Version,
			Min:     MinCompatibleLanguageVersion,
			Max:     LanguageVersion,
		}
	}
	return nil
}

// Validate checks the version and that every index in the table is in
// bounds.
func (t *Table) Validate() error {
	if err := t.CheckVersion(); err != nil {
		return err
	}
	if len(t.Symbols) == 0 || int(t.TokenCount) > len(t.Symbols) {
		return fmt.Errorf("%w: %d symbols, %d tokens", ErrMalformedTable, len(t.Symbols), t.TokenCount)
	}
	if len(t.Fields) == 0 || t.Fields[0] != "" {
		return fmt.Errorf("%w: field 0 must be the empty name", ErrMalformedTable)
	}
	if int(t.StartState) >= len(t.ParseTable) {
		return fmt.Errorf("%w: start state %d out of range", ErrMalformedTable, t.StartState)
	}
	if len(t.LexStates) == 0 {
		return fmt.Errorf("%w: no lexer states", ErrMalformedTable)
	}
	for state, row := range t.ParseTable {
		if len(row) > len(t.Symbols) {
			return fmt.Errorf("%w: state %d has %d columns", ErrMalformedTable, state, len(row))
		}
		for _, idx := range row {
			if int(idx) > len(t.Actions) {
				return fmt.Errorf("%w: state %d refers to action %d", ErrMalformedTable, state, idx)
			}
		}
	}
	for i, a := range t.Actions {
		switch a.Kind {
		case ActionShift:
			if int(a.State) >= len(t.ParseTable) {
				return fmt.Errorf("%w: action %d shifts to state %d", ErrMalformedTable, i, a.State)
			}
		case ActionReduce:
			if int(a.Production) >= len(t.Productions) {
				return fmt.Errorf("%w: action %d reduces production %d", ErrMalformedTable, i, a.Production)
			}
		case ActionAccept:
		default:
			return fmt.Errorf("%w: action %d has kind %d", ErrMalformedTable, i, a.Kind)
		}
	}
	for i, p := range t.Productions {
		if int(p.Symbol) >= len(t.Symbols) {
			return fmt.Errorf("%w: production %d has symbol %d", ErrMalformedTable, i, p.Symbol)
		}
		if len(p.Children) != 0 && len(p.Children) != int(p.ChildCount) {
			return fmt.Errorf("%w: production %d lists %d of %d children", ErrMalformedTable, i, len(p.Children), p.ChildCount)
		}
		for _, c := range p.Children {
			if int(c) >= len(t.Symbols) {
				return fmt.Errorf("%w: production %d has child symbol %d", ErrMalformedTable, i, c)
			}
		}
		for _, f := range p.Fields {
			if int(f) >= len(t.Fields) {
				return fmt.Errorf("%w: production %d uses field %d", ErrMalformedTable, i, f)
			}
		}
	}
	for i, s := range t.LexStates {
		if s.Accepts && int(s.Accept) >= int(t.TokenCount) {
			return fmt.Errorf("%w: lexer state %d accepts non-token %d", ErrMalformedTable, i, s.Accept)
		}
		for _, tr := range s.Transitions {
			if int(tr.State) >= len(t.LexStates) || tr.Lo > tr.Hi {
				return fmt.Errorf("%w: lexer state %d has a bad transition", ErrMalformedTable, i)
			}
		}
	}
	return nil
}
