package preprocessor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// lexAll drains a lexer, rendering each token as KIND or KIND(text),
// skipping whitespace.
func lexAll(input string) ([]string, []Diagnostic) {
	var diags []Diagnostic
	src := NewSource(0, "test", []byte(input))
	lx := NewLexer(src, func(d Diagnostic) { diags = append(diags, d) })

	var out []string
	for {
		t := lx.Next()
		if t.Kind == EOF {
			return out, diags
		}
		switch t.Kind {
		case Whitespace:
			continue
		case Newline:
			out = append(out, "NEWLINE")
		default:
			out = append(out, fmt.Sprintf("%s(%s)", t.Kind, t.Text))
		}
	}
}

func TestLexer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			"empty",
			"",
			nil,
		},
		{
			"idents and puncts",
			"vec3 pos = a+b;",
			[]string{"IDENT(vec3)", "IDENT(pos)", "PUNCT(=)", "IDENT(a)", "PUNCT(+)", "IDENT(b)", "PUNCT(;)"},
		},
		{
			"numbers",
			"0 123 0x1F 0755 1u 42U 1.5 .5 1. 1e10 1.5e-3 2.0f 3.0lf",
			[]string{
				"INT_CONST(0)", "INT_CONST(123)", "INT_CONST(0x1F)", "INT_CONST(0755)",
				"INT_CONST(1u)", "INT_CONST(42U)", "FLOAT_CONST(1.5)", "FLOAT_CONST(.5)",
				"FLOAT_CONST(1.)", "FLOAT_CONST(1e10)", "FLOAT_CONST(1.5e-3)",
				"FLOAT_CONST(2.0f)", "FLOAT_CONST(3.0lf)",
			},
		},
		{
			"operators longest match",
			"a <<= b >> c <= d ... e ^^ f",
			[]string{
				"IDENT(a)", "PUNCT(<<=)", "IDENT(b)", "PUNCT(>>)", "IDENT(c)",
				"PUNCT(<=)", "IDENT(d)", "PUNCT(...)", "IDENT(e)", "PUNCT(^^)", "IDENT(f)",
			},
		},
		{
			"hash forms",
			"#define A(x) x##_t #x",
			[]string{
				"HASH(#)", "IDENT(define)", "IDENT(A)", "PUNCT(()", "IDENT(x)", "PUNCT())",
				"IDENT(x)", "HASH_HASH(##)", "IDENT(_t)", "HASH(#)", "IDENT(x)",
			},
		},
		{
			"comments kept",
			"a /* b */ c // d",
			[]string{"IDENT(a)", "COMMENT(/* b */)", "IDENT(c)", "COMMENT(// d)"},
		},
		{
			"line comment ends at newline",
			"a // b\nc",
			[]string{"IDENT(a)", "COMMENT(// b)", "NEWLINE", "IDENT(c)"},
		},
		{
			"angle string only in include",
			"#include <foo/bar.h>\na < b > c",
			[]string{
				"HASH(#)", "IDENT(include)", "ANGLE_STRING(<foo/bar.h>)", "NEWLINE",
				"IDENT(a)", "PUNCT(<)", "IDENT(b)", "PUNCT(>)", "IDENT(c)",
			},
		},
		{
			"quoted include path",
			"#include \"lib.glsl\"",
			[]string{"HASH(#)", "IDENT(include)", "STRING(\"lib.glsl\")"},
		},
		{
			"line continuation spliced",
			"#define A 1\\\n2\nA",
			[]string{"HASH(#)", "IDENT(define)", "IDENT(A)", "INT_CONST(12)", "NEWLINE", "IDENT(A)"},
		},
		{
			"crlf normalized",
			"a\r\nb\rc",
			[]string{"IDENT(a)", "NEWLINE", "IDENT(b)", "NEWLINE", "IDENT(c)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, diags := lexAll(tt.input)
			if len(diags) > 0 {
				t.Fatalf("unexpected diagnostics: %v", diags)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLexerFlags(t *testing.T) {
	src := NewSource(0, "test", []byte("a b\n  c\n"))
	lx := NewLexer(src, nil)

	var got []string
	for {
		t := lx.Next()
		if t.Kind == EOF {
			break
		}
		if t.Kind == Whitespace || t.Kind == Newline {
			continue
		}
		got = append(got, fmt.Sprintf("%s sol=%v ws=%v", t.Text, t.StartOfLine, t.LeadingWS))
	}
	want := []string{"a sol=true ws=false", "b sol=false ws=true", "c sol=true ws=true"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLexerUnterminatedComment(t *testing.T) {
	_, diags := lexAll("a /* never closed")
	if len(diags) != 1 || diags[0].Kind != UnterminatedComment || diags[0].Severity != SeverityFatal {
		t.Fatalf("want one fatal UnterminatedComment, got %v", diags)
	}
}

// Spans must address the unspliced buffer: re-splicing the spanned raw
// bytes yields the token text.
func TestLexerSpanFidelity(t *testing.T) {
	input := "#define A 1\\\n2\nfo\\\no bar /*c*/ 0x1Fu\n"
	src := NewSource(0, "test", []byte(input))
	lx := NewLexer(src, nil)

	unsplice := func(s string) string {
		s = strings.ReplaceAll(s, "\\\r\n", "")
		s = strings.ReplaceAll(s, "\\\n", "")
		s = strings.ReplaceAll(s, "\r\n", "\n")
		return s
	}
	for {
		tok := lx.Next()
		if tok.Kind == EOF {
			break
		}
		raw := input[tok.Span.Start:tok.Span.End]
		if got := unsplice(raw); got != tok.Text {
			t.Errorf("span %v: unspliced %q != token text %q", tok.Span, got, tok.Text)
		}
	}
}

func TestSourceLineCol(t *testing.T) {
	src := NewSource(0, "test", []byte("ab\ncd\nef"))
	tests := []struct {
		offset, line, col int
	}{
		{0, 1, 1}, {1, 1, 2}, {3, 2, 1}, {4, 2, 2}, {6, 3, 1}, {7, 3, 2},
	}
	for _, tt := range tests {
		line, col := src.LineCol(tt.offset)
		if line != tt.line || col != tt.col {
			t.Errorf("LineCol(%d) = %d:%d, want %d:%d", tt.offset, line, col, tt.line, tt.col)
		}
	}
}
