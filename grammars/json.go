package grammars

import tg "github.com/dhamidi/arbor/grammar/tablegen"

var jsonGrammar = tg.Grammar{
	Name: "json",
	Rules: []tg.Definition{
		tg.Def("document", tg.Sym("_value")),
		tg.Def("_value", tg.Choice(
			tg.Sym("object"),
			tg.Sym("array"),
			tg.Sym("string"),
			tg.Sym("number"),
			tg.Sym("true"),
			tg.Sym("false"),
			tg.Sym("null"),
		)),
		tg.Def("object", tg.Seq(
			tg.Str("{"),
			tg.Optional(tg.Seq(tg.Sym("pair"), tg.Repeat(tg.Seq(tg.Str(","), tg.Sym("pair"))))),
			tg.Str("}"),
		)),
		tg.Def("pair", tg.Seq(
			tg.Field("key", tg.Sym("string")),
			tg.Str(":"),
			tg.Field("value", tg.Sym("_value")),
		)),
		tg.Def("array", tg.Seq(
			tg.Str("["),
			tg.Optional(tg.Seq(tg.Sym("_value"), tg.Repeat(tg.Seq(tg.Str(","), tg.Sym("_value"))))),
			tg.Str("]"),
		)),
		tg.Def("string", tg.Pat(`"(?:[^"\\\n]|\\.)*"`)),
		tg.Def("number", tg.Pat(`-?(?:0|[1-9][0-9]*)(?:\.[0-9]+)?(?:[eE][+-]?[0-9]+)?`)),
		tg.Def("true", tg.Str("true")),
		tg.Def("false", tg.Str("false")),
		tg.Def("null", tg.Str("null")),
	},
	Extras: []tg.Rule{tg.Pat(`\s`)},
}
