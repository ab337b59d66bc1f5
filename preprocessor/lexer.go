package preprocessor

// Lexer turns the spliced text of one source into preprocessor tokens.
// It is stateful: recognizing `#include <...>` as a header name instead
// of relational operators requires knowing that the current line is an
// include directive.
type Lexer struct {
	src  *Source
	pos  int
	diag func(Diagnostic)

	atLineStart bool
	inDirective bool
	inInclude   bool
	hashSeen    bool // inside a directive, before the directive name

	leadingWS bool
}

// NewLexer creates a lexer over src. diag receives lexical diagnostics
// as they are discovered; it may be nil.
func NewLexer(src *Source, diag func(Diagnostic)) *Lexer {
	if diag == nil {
		diag = func(Diagnostic) {}
	}
	return &Lexer{src: src, diag: diag, atLineStart: true}
}

// Source returns the source this lexer reads.
func (lx *Lexer) Source() *Source { return lx.src }

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func isHorizSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\v' || c == '\f'
}

// Operators, longest first so that the scan below can take the first
// prefix match.
var puncts = []string{
	"<<=", ">>=", "...",
	"<<", ">>", "++", "--", "<=", ">=", "==", "!=",
	"&&", "||", "^^", "+=", "-=", "*=", "/=", "%=",
	"&=", "^=", "|=",
	"(", ")", "[", "]", "{", "}", ".", ",", ";", ":",
	"=", "!", "-", "~", "+", "*", "/", "%",
	"<", ">", "|", "^", "&", "?",
}

// Next returns the next token. After the input is exhausted it keeps
// returning EOF tokens.
func (lx *Lexer) Next() Token {
	tok := lx.scan()
	tok.LeadingWS = lx.leadingWS

	switch tok.Kind {
	case Whitespace, Comment:
		lx.leadingWS = true
		return tok
	case Newline:
		lx.atLineStart = true
		lx.inDirective = false
		lx.inInclude = false
		lx.hashSeen = false
		lx.leadingWS = false
		return tok
	case EOF:
		return tok
	}

	lx.leadingWS = false
	if lx.atLineStart {
		tok.StartOfLine = true
		lx.atLineStart = false
		if tok.Kind == Hash {
			lx.inDirective = true
			lx.hashSeen = true
			return tok
		}
	}
	if lx.inDirective && lx.hashSeen && tok.Kind == Ident {
		lx.hashSeen = false
		if tok.Text == "include" {
			lx.inInclude = true
		}
	}
	return tok
}

// hasPrefix reports whether the spliced text at i starts with p.
func (s *Source) hasPrefix(i int, p string) bool {
	if i+len(p) > len(s.text) {
		return false
	}
	for j := 0; j < len(p); j++ {
		if s.text[i+j] != p[j] {
			return false
		}
	}
	return true
}

func (lx *Lexer) scan() Token {
	src := lx.src
	start := lx.pos
	if start >= src.Len() {
		return Token{Kind: EOF, Span: src.Span(start, start)}
	}

	c := src.At(start)

	switch {
	case c == '\n':
		lx.pos++
		return lx.token(Newline, start)

	case isHorizSpace(c):
		for lx.pos < src.Len() && isHorizSpace(src.At(lx.pos)) {
			lx.pos++
		}
		return lx.token(Whitespace, start)

	case c == '/' && src.At(start+1) == '/':
		lx.pos = start + 2
		for lx.pos < src.Len() && src.At(lx.pos) != '\n' {
			lx.pos++
		}
		return lx.token(Comment, start)

	case c == '/' && src.At(start+1) == '*':
		lx.pos = start + 2
		for {
			if lx.pos >= src.Len() {
				lx.diag(Diagnostic{
					Severity: SeverityFatal,
					Kind:     UnterminatedComment,
					Span:     src.Span(start, lx.pos),
					Message:  "unterminated block comment",
				})
				break
			}
			if src.At(lx.pos) == '*' && src.At(lx.pos+1) == '/' {
				lx.pos += 2
				break
			}
			lx.pos++
		}
		return lx.token(Comment, start)

	case c == '#':
		if src.At(start+1) == '#' {
			lx.pos = start + 2
			return lx.token(HashHash, start)
		}
		lx.pos = start + 1
		return lx.token(Hash, start)

	case isIdentStart(c):
		lx.pos = start + 1
		for lx.pos < src.Len() && isIdentPart(src.At(lx.pos)) {
			lx.pos++
		}
		return lx.token(Ident, start)

	case isDigit(c) || (c == '.' && isDigit(src.At(start+1))):
		return lx.scanNumber(start)

	case c == '"' && lx.inDirective:
		return lx.scanString(start)

	case c == '<' && lx.inInclude:
		return lx.scanAngleString(start)
	}

	for _, p := range puncts {
		if src.hasPrefix(start, p) {
			lx.pos = start + len(p)
			return lx.token(Punct, start)
		}
	}

	lx.pos = start + 1
	lx.diag(Diagnostic{
		Severity: SeverityError,
		Kind:     LexicalError,
		Span:     src.Span(start, lx.pos),
		Message:  "unexpected character " + src.Slice(start, lx.pos),
	})
	return lx.token(Punct, start)
}

// scanNumber recognizes GLSL integer and floating constants: decimal,
// octal (leading 0), hex (0x), floats with optional exponent, integer
// suffixes u/U and float suffixes f/F/lf/LF.
func (lx *Lexer) scanNumber(start int) Token {
	src := lx.src
	p := start
	isFloat := false

	if src.At(p) == '0' && (src.At(p+1) == 'x' || src.At(p+1) == 'X') {
		p += 2
		for isHexDigit(src.At(p)) {
			p++
		}
		if src.At(p) == 'u' || src.At(p) == 'U' {
			p++
		}
		lx.pos = p
		return lx.token(IntConst, start)
	}

	for isDigit(src.At(p)) {
		p++
	}
	if src.At(p) == '.' {
		isFloat = true
		p++
		for isDigit(src.At(p)) {
			p++
		}
	}
	if src.At(p) == 'e' || src.At(p) == 'E' {
		q := p + 1
		if src.At(q) == '+' || src.At(q) == '-' {
			q++
		}
		if isDigit(src.At(q)) {
			isFloat = true
			p = q
			for isDigit(src.At(p)) {
				p++
			}
		}
	}

	if isFloat {
		if (src.At(p) == 'l' && src.At(p+1) == 'f') || (src.At(p) == 'L' && src.At(p+1) == 'F') {
			p += 2
		} else if src.At(p) == 'f' || src.At(p) == 'F' {
			p++
		}
		lx.pos = p
		return lx.token(FloatConst, start)
	}

	if src.At(p) == 'u' || src.At(p) == 'U' {
		p++
	}
	lx.pos = p
	return lx.token(IntConst, start)
}

// scanString reads a "..." token. Only meaningful on #include lines;
// GLSL proper has no string literals.
func (lx *Lexer) scanString(start int) Token {
	src := lx.src
	p := start + 1
	for {
		if p >= src.Len() || src.At(p) == '\n' {
			lx.diag(Diagnostic{
				Severity: SeverityError,
				Kind:     LexicalError,
				Span:     src.Span(start, p),
				Message:  "unterminated string",
			})
			break
		}
		if src.At(p) == '"' {
			p++
			break
		}
		p++
	}
	lx.pos = p
	return lx.token(String, start)
}

// scanAngleString reads a <...> header name. The lexer only tries this
// while an include directive is open; everywhere else '<' is an
// operator.
func (lx *Lexer) scanAngleString(start int) Token {
	src := lx.src
	p := start + 1
	for p < src.Len() && src.At(p) != '>' && src.At(p) != '\n' {
		p++
	}
	if p >= src.Len() || src.At(p) != '>' {
		// Not a header name after all; fall back to the operator.
		lx.pos = start + 1
		return lx.token(Punct, start)
	}
	lx.pos = p + 1
	return lx.token(AngleString, start)
}

func (lx *Lexer) token(kind Kind, start int) Token {
	return Token{
		Kind: kind,
		Text: lx.src.Slice(start, lx.pos),
		Span: lx.src.Span(start, lx.pos),
	}
}
