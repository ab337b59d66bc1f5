package preprocessor

import "fmt"

// Kind classifies a preprocessor token.
type Kind int

const (
	EOF Kind = iota

	// Structural tokens. Whitespace and comments are preserved so the
	// output can be re-rendered verbatim; they count as a single space
	// during macro expansion.
	Newline
	Whitespace
	Comment
	Hash     // #
	HashHash // ##

	// Lexical tokens.
	Ident
	IntConst
	FloatConst
	String      // "..." inside #include
	AngleString // <...> inside #include

	// Punct covers the full GLSL operator set; the operator text is in
	// Token.Text.
	Punct
)

var kindNames = map[Kind]string{
	EOF:         "EOF",
	Newline:     "NEWLINE",
	Whitespace:  "WS",
	Comment:     "COMMENT",
	Hash:        "HASH",
	HashHash:    "HASH_HASH",
	Ident:       "IDENT",
	IntConst:    "INT_CONST",
	FloatConst:  "FLOAT_CONST",
	String:      "STRING",
	AngleString: "ANGLE_STRING",
	Punct:       "PUNCT",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Span locates a token in the unspliced buffer of a source. Offsets are
// byte offsets, so diagnostics stay accurate even across line
// continuations.
type Span struct {
	SourceID int
	Start    int
	End      int
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.SourceID, s.Start, s.End)
}

// Token is a single preprocessor token. Text is preserved verbatim from
// the source except for tokens synthesized by stringizing, pasting or
// builtin macros.
type Token struct {
	Kind        Kind
	Text        string
	Span        Span
	LeadingWS   bool
	StartOfLine bool
}

func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "EOF"
	case Newline:
		return "NEWLINE"
	}
	return fmt.Sprintf("%s(%q)", t.Kind, t.Text)
}

func (t Token) is(k Kind, text string) bool {
	return t.Kind == k && t.Text == text
}

// isTrivia reports whether the token is invisible to macro expansion.
func (t Token) isTrivia() bool {
	return t.Kind == Whitespace || t.Kind == Comment
}
