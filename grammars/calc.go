package grammars

import tg "github.com/dhamidi/arbor/grammar/tablegen"

var calcGrammar = tg.Grammar{
	Name: "calc",
	Rules: []tg.Definition{
		tg.Def("program", tg.Repeat(tg.Sym("_statement"))),
		tg.Def("_statement", tg.Choice(
			tg.Sym("let_declaration"),
			tg.Sym("assignment"),
			tg.Sym("expression_statement"),
			tg.Sym("block"),
		)),
		tg.Def("let_declaration", tg.Seq(
			tg.Str("let"),
			tg.Field("name", tg.Sym("identifier")),
			tg.Str("="),
			tg.Field("value", tg.Sym("_expression")),
			tg.Str(";"),
		)),
		tg.Def("assignment", tg.Seq(
			tg.Field("left", tg.Sym("identifier")),
			tg.Str("="),
			tg.Field("right", tg.Sym("_expression")),
			tg.Str(";"),
		)),
		tg.Def("expression_statement", tg.Seq(tg.Sym("_expression"), tg.Str(";"))),
		tg.Def("block", tg.Seq(tg.Str("{"), tg.Repeat(tg.Sym("_statement")), tg.Str("}"))),
		tg.Def("_expression", tg.Choice(
			tg.Sym("identifier"),
			tg.Sym("number"),
			tg.Sym("binary_expression"),
			tg.Sym("unary_expression"),
			tg.Sym("call_expression"),
			tg.Sym("parenthesized_expression"),
		)),
		tg.Def("binary_expression", tg.Choice(
			tg.PrecLeft(1, tg.Seq(
				tg.Field("left", tg.Sym("_expression")),
				tg.Field("operator", tg.Choice(tg.Str("+"), tg.Str("-"))),
				tg.Field("right", tg.Sym("_expression")),
			)),
			tg.PrecLeft(2, tg.Seq(
				tg.Field("left", tg.Sym("_expression")),
				tg.Field("operator", tg.Choice(tg.Str("*"), tg.Str("/"))),
				tg.Field("right", tg.Sym("_expression")),
			)),
		)),
		tg.Def("unary_expression", tg.Prec(3, tg.Seq(
			tg.Field("operator", tg.Str("-")),
			tg.Field("operand", tg.Sym("_expression")),
		))),
		tg.Def("call_expression", tg.Seq(
			tg.Field("function", tg.Sym("identifier")),
			tg.Field("arguments", tg.Sym("argument_list")),
		)),
		tg.Def("argument_list", tg.Seq(
			tg.Str("("),
			tg.Optional(tg.Seq(tg.Sym("_expression"), tg.Repeat(tg.Seq(tg.Str(","), tg.Sym("_expression"))))),
			tg.Str(")"),
		)),
		tg.Def("parenthesized_expression", tg.Seq(tg.Str("("), tg.Sym("_expression"), tg.Str(")"))),
		tg.Def("identifier", tg.Pat(`[a-zA-Z_][a-zA-Z0-9_]*`)),
		tg.Def("number", tg.Pat(`[0-9]+`)),
		tg.Def("comment", tg.Pat(`#[^\n]*`)),
	},
	Extras:     []tg.Rule{tg.Pat(`\s`), tg.Sym("comment")},
	Supertypes: []string{"_expression"},
}
