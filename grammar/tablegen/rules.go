// Package tablegen compiles small grammars into grammar tables.
//
// It exists to produce the fixture languages used by tests, the CLI and
// the examples: rules are written with a tree-sitter-like DSL or read from
// an EBNF file, lowered to productions, and compiled into a canonical LR(1)
// parse table plus a lexer DFA.
package tablegen

type Assoc int

const (
	AssocNone Assoc = iota
	AssocLeft
	AssocRight
)

// Rule is a node of the grammar DSL.
type Rule interface {
	rule()
}

type (
	symRule    struct{ name string }
	strRule    struct{ value string }
	patRule    struct{ pattern string }
	tokenRule  struct{ content Rule }
	blankRule  struct{}
	seqRule    struct{ members []Rule }
	choiceRule struct{ members []Rule }
	repeatRule struct {
		content    Rule
		atLeastOne bool
	}
	fieldRule struct {
		name    string
		content Rule
	}
	aliasRule struct {
		content Rule
		name    string
		named   bool
	}
	precRule struct {
		value   int
		assoc   Assoc
		content Rule
	}
)

func (symRule) rule()    {}
func (strRule) rule()    {}
func (patRule) rule()    {}
func (tokenRule) rule()  {}
func (blankRule) rule()  {}
func (seqRule) rule()    {}
func (choiceRule) rule() {}
func (repeatRule) rule() {}
func (fieldRule) rule()  {}
func (aliasRule) rule()  {}
func (precRule) rule()   {}

// Sym refers to another rule by name.
func Sym(name string) Rule { return symRule{name} }

// Str is an anonymous literal token.
func Str(value string) Rule { return strRule{value} }

// Pat is a token described by a regular expression in Go syntax.
func Pat(pattern string) Rule { return patRule{pattern} }

// Token turns a composition of strings and patterns into a single token.
func Token(content Rule) Rule { return tokenRule{content} }

func Blank() Rule { return blankRule{} }

func Seq(members ...Rule) Rule { return seqRule{members} }

func Choice(members ...Rule) Rule { return choiceRule{members} }

func Optional(content Rule) Rule { return choiceRule{[]Rule{content, blankRule{}}} }

func Repeat(content Rule) Rule { return repeatRule{content: content} }

func Repeat1(content Rule) Rule { return repeatRule{content: content, atLeastOne: true} }

func Field(name string, content Rule) Rule { return fieldRule{name, content} }

// Alias renames a single symbol to a named node type.
func Alias(content Rule, name string) Rule { return aliasRule{content, name, true} }

// AliasAnon renames a single symbol to an anonymous node type.
func AliasAnon(content Rule, value string) Rule { return aliasRule{content, value, false} }

func Prec(value int, content Rule) Rule { return precRule{value, AssocNone, content} }

func PrecLeft(value int, content Rule) Rule { return precRule{value, AssocLeft, content} }

func PrecRight(value int, content Rule) Rule { return precRule{value, AssocRight, content} }

// Definition binds a rule to a name. Names starting with an underscore
// are hidden: their children are spliced into the parent node.
type Definition struct {
	Name string
	Rule Rule
}

func Def(name string, r Rule) Definition { return Definition{name, r} }

// Grammar is the input of Build. The first definition is the start rule.
// Extras built from Pat are skipped like whitespace; extras built from Sym
// become tokens that may appear anywhere in the tree.
type Grammar struct {
	Name       string
	Rules      []Definition
	Extras     []Rule
	Supertypes []string
}
