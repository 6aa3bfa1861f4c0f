package catalog

import (
	"fmt"
	"strings"
)

// escape normalizes a string for embedding inside a GraphQL document:
// backslashes and quotes are escaped, control whitespace collapses to
// plain spaces.
func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	return s
}

// argList accumulates GraphQL mutation arguments, skipping absent fields so
// the transmitted document only names what was actually extracted.
type argList struct {
	args []string
}

func (a *argList) str(name, value string) {
	if value != "" {
		a.args = append(a.args, fmt.Sprintf("%s: \"%s\"", name, escape(value)))
	}
}

func (a *argList) num(name string, value int64) {
	if value != 0 {
		a.args = append(a.args, fmt.Sprintf("%s: %d", name, value))
	}
}

func (a *argList) String() string {
	return strings.Join(a.args, ", ")
}
