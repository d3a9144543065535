package logging_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/arbor/grammars"
	"github.com/dhamidi/arbor/logging"
	"github.com/dhamidi/arbor/syntax"
)

type entry struct {
	msg  string
	kind string
}

type recorder struct {
	commonlog.MockLogger
	allow   bool
	entries []entry
}

func (r *recorder) AllowLevel(commonlog.Level) bool { return r.allow }

func (r *recorder) Debug(msg string, keysAndValues ...any) {
	e := entry{msg: msg}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if keysAndValues[i] == "kind" {
			e.kind, _ = keysAndValues[i+1].(string)
		}
	}
	r.entries = append(r.entries, e)
}

func TestParserLoggerFor(t *testing.T) {
	rec := &recorder{allow: true}
	p := syntax.NewParser()
	defer p.Close()
	require.NoError(t, p.SetLanguage(grammars.Calc()))
	p.SetLogger(logging.ParserLoggerFor(rec))

	_, err := p.Parse(context.Background(), []byte("x = 1;"), nil)
	require.NoError(t, err)
	require.NotEmpty(t, rec.entries)
	assert.Equal(t, "done", rec.entries[len(rec.entries)-1].msg)
	for _, e := range rec.entries {
		assert.Contains(t, []string{"parse", "lex"}, e.kind)
	}
}

func TestParserLoggerRespectsLevel(t *testing.T) {
	rec := &recorder{}
	logging.ParserLoggerFor(rec)(syntax.LogTypeLex, "skipped")
	assert.Empty(t, rec.entries)
}

func TestConfigure(t *testing.T) {
	logging.Configure(2, "")
	assert.True(t, logging.Get("test").AllowLevel(commonlog.Debug))
	logging.Configure(0, "")
	assert.False(t, logging.Get("test").AllowLevel(commonlog.Debug))
}
