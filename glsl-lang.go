// Package glsllang exposes the GLSL preprocessor in convenient,
// slurp-everything forms. The streaming interface, token model and
// include resolution live in the preprocessor package; this package is
// the surface most callers want: run a shader source through the
// preprocessor and get tokens, directives and diagnostics back.
package glsllang

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/codedhead/glsl-lang/preprocessor"
)

// Result collects everything a full preprocessing run produced.
type Result struct {
	Events      []preprocessor.Event
	Tokens      []preprocessor.Token
	Diagnostics []preprocessor.Diagnostic
	Version     Version
	Extensions  []preprocessor.ExtensionEvent
}

// HasErrors reports whether any diagnostic reached error severity.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity >= preprocessor.SeverityError {
			return true
		}
	}
	return false
}

// Preprocess runs src through the preprocessor and drains the event
// stream.
func Preprocess(src []byte, opts preprocessor.Options) *Result {
	p := preprocessor.New(src, opts)
	res := &Result{}
	for {
		ev := p.Next()
		res.Events = append(res.Events, ev)
		switch ev := ev.(type) {
		case preprocessor.TokenEvent:
			res.Tokens = append(res.Tokens, ev.Token)
		case preprocessor.DiagnosticEvent:
			res.Diagnostics = append(res.Diagnostics, ev.Diagnostic)
		case preprocessor.ExtensionEvent:
			res.Extensions = append(res.Extensions, ev)
		case preprocessor.EndEvent:
			res.Version = ParseVersion(strconv.Itoa(p.Version()))
			return res
		}
	}
}

// Render writes the preprocessed token stream back out as source text.
// Preserved whitespace and comments are emitted verbatim; tokens that
// came out of macro expansions are separated by single spaces where the
// expansion recorded spacing.
func Render(tokens []preprocessor.Token) string {
	var b strings.Builder
	var last byte
	for _, t := range tokens {
		switch t.Kind {
		case preprocessor.EOF:
			continue
		case preprocessor.Newline:
			b.WriteByte('\n')
			last = '\n'
			continue
		case preprocessor.Whitespace, preprocessor.Comment:
			b.WriteString(t.Text)
			last = ' '
			continue
		}
		if t.LeadingWS && b.Len() > 0 && last != ' ' && last != '\n' {
			b.WriteByte(' ')
		}
		b.WriteString(t.Text)
		if len(t.Text) > 0 {
			last = t.Text[len(t.Text)-1]
		}
	}
	return b.String()
}

// Version describes a GLSL version as declared by #version.
type Version struct {
	Major, Minor, Point int
}

// ParseVersion decodes the integer form used by #version and
// __VERSION__, e.g. "460" is 4.6.0. Unparseable input maps to 1.x.
func ParseVersion(s string) Version {
	if i, err := strconv.Atoi(s); err == nil {
		return Version{
			Major: (i / 100) % 10,
			Minor: (i / 10) % 10,
			Point: i % 10,
		}
	}
	return Version{Major: 1}
}

func (v Version) String() string {
	return fmt.Sprintf("%d%d%d", v.Major, v.Minor, v.Point)
}

// GreaterThan reports whether this version is newer than major.minor.
func (v Version) GreaterThan(major, minor int) bool {
	switch {
	case v.Major > major:
		return true
	case v.Major < major:
		return false
	default:
		return v.Minor > minor
	}
}
