// Package logging sets up commonlog for the arbor tools and bridges the
// parser's debug hook into it.
package logging

import (
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/dhamidi/arbor/syntax"
)

// Configure selects the verbosity and destination of every logger. An
// empty path logs to stderr. Verbosity 0 shows notices, 1 info and 2 or
// more debug messages; negative values silence more.
func Configure(verbosity int, path string) {
	if path == "" {
		commonlog.Configure(verbosity, nil)
		return
	}
	commonlog.Configure(verbosity, &path)
}

func Get(name string) commonlog.Logger {
	return commonlog.GetLogger("arbor." + name)
}

// ParserLogger returns a parser hook that writes to the named logger at
// debug level.
func ParserLogger(name string) syntax.Logger {
	return ParserLoggerFor(Get(name))
}

func ParserLoggerFor(log commonlog.Logger) syntax.Logger {
	return func(t syntax.LogType, msg string) {
		if !log.AllowLevel(commonlog.Debug) {
			return
		}
		log.Debug(msg, "kind", t.String())
	}
}
