package format

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff returns a unified diff between before and after, styled line by
// line. It is empty when the texts are equal.
func Diff(name string, before, after []byte, styles *Styles) (string, error) {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	})
	if err != nil || diff == "" {
		return diff, err
	}

	var b strings.Builder
	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}
		body := strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(body, "---"), strings.HasPrefix(body, "+++"):
			body = styles.render(styles.DiffHeader, body)
		case strings.HasPrefix(body, "@@"):
			body = styles.render(styles.DiffHunk, body)
		case strings.HasPrefix(body, "+"):
			body = styles.render(styles.DiffAdd, body)
		case strings.HasPrefix(body, "-"):
			body = styles.render(styles.DiffRemove, body)
		}
		b.WriteString(body)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
