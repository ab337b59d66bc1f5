package preprocessor

// hideSet is the set of macro names a token must not re-expand. It is
// how `#define X X+1` terminates: the X produced by the expansion is
// painted with its own macro name.
type hideSet map[string]struct{}

func (h hideSet) has(name string) bool {
	_, ok := h[name]
	return ok
}

func (h hideSet) with(name string) hideSet {
	ret := make(hideSet, len(h)+1)
	for k := range h {
		ret[k] = struct{}{}
	}
	ret[name] = struct{}{}
	return ret
}

func unionHideSets(a, b hideSet) hideSet {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	ret := make(hideSet, len(a)+len(b))
	for k := range a {
		ret[k] = struct{}{}
	}
	for k := range b {
		ret[k] = struct{}{}
	}
	return ret
}

// xtoken is a token travelling through the expander together with its
// hide set. placeholder marks the empty substitution of a macro
// argument, kept so `##` can see which side was empty.
type xtoken struct {
	tok         Token
	hide        hideSet
	placeholder bool
}

func plain(tok Token) xtoken { return xtoken{tok: tok} }

// tokenReader supplies tokens to the expander once its internal stack
// runs dry, and takes back the ones a failed function-like match did
// not consume. It is nil when expanding a fixed token list (directive
// lines).
type tokenReader interface {
	readExpansionToken() (xtoken, bool)
	unreadExpansionTokens([]xtoken)
}

// builtinExpander produces the replacement for a builtin macro at the
// given invocation site.
type builtinExpander func(name string, site Span) ([]Token, bool)

// expander performs macro replacement with rescan. Substituted tokens
// are pushed back onto an input stack, so re-examination of the result
// (and function-like argument gathering across the substitution
// boundary) falls out of the main loop.
type expander struct {
	macros  *MacroTable
	builtin builtinExpander
	diag    func(Diagnostic)

	stack []xtoken // next token is stack[0]
	src   tokenReader
}

func newExpander(macros *MacroTable, builtin builtinExpander, diag func(Diagnostic)) *expander {
	if diag == nil {
		diag = func(Diagnostic) {}
	}
	return &expander{macros: macros, builtin: builtin, diag: diag}
}

// next pops the internal stack first, then falls back to the source
// reader. fromSrc tells a failed match where to push the token back.
func (e *expander) next() (t xtoken, fromSrc, ok bool) {
	if len(e.stack) > 0 {
		t := e.stack[0]
		e.stack = e.stack[1:]
		return t, false, true
	}
	if e.src == nil {
		return xtoken{}, false, false
	}
	t, k := e.src.readExpansionToken()
	if !k || t.tok.Kind == EOF {
		return xtoken{}, true, false
	}
	return t, true, true
}

// putBack returns unconsumed tokens to their origins. Stack-origin
// tokens always precede source-origin ones, since the stack drains
// before the reader is consulted.
func (e *expander) putBack(toks []xtoken, fromSrc []bool) {
	split := len(toks)
	for i, s := range fromSrc {
		if s {
			split = i
			break
		}
	}
	e.pushFront(toks[:split])
	if split < len(toks) && e.src != nil {
		e.src.unreadExpansionTokens(toks[split:])
	}
}

func (e *expander) pushFront(toks []xtoken) {
	e.stack = append(append(make([]xtoken, 0, len(toks)+len(e.stack)), toks...), e.stack...)
}

// expandList fully expands a fixed token list (an #if expression or an
// #include path after the `defined` rewrite). The result contains no
// placeholder or trivia surprises beyond what the input carried.
func (e *expander) expandList(toks []Token) []Token {
	xs := make([]xtoken, len(toks))
	for i, t := range toks {
		xs[i] = plain(t)
	}
	out := e.run(xs, nil)
	ret := make([]Token, len(out))
	for i, t := range out {
		ret[i] = t.tok
	}
	return ret
}

// expandStream expands one identifier that names a macro, pulling
// further tokens (for function-like argument lists) from src. It
// returns the fully expanded output; tokens read from src but not part
// of the invocation are pushed back to src.
func (e *expander) expandStream(first xtoken, src tokenReader) []xtoken {
	return e.run([]xtoken{first}, src)
}

// run drains the stack, expanding as it goes. Only argument gathering
// reaches past the stack into the source reader, so a streaming run
// stops at the end of the expansion instead of draining the input.
func (e *expander) run(input []xtoken, src tokenReader) []xtoken {
	e.stack = input
	e.src = src

	var out []xtoken
	for len(e.stack) > 0 {
		t := e.stack[0]
		e.stack = e.stack[1:]
		if t.placeholder {
			continue
		}
		if exp, ok := e.tryExpand(t); ok {
			e.pushFront(exp)
			continue
		}
		out = append(out, t)
	}
	return out
}

// tryExpand returns the substitution of t if t names an expandable
// macro. The bool result is false when t is emitted as-is.
func (e *expander) tryExpand(t xtoken) ([]xtoken, bool) {
	if t.tok.Kind != Ident || t.hide.has(t.tok.Text) {
		return nil, false
	}
	m := e.macros.Lookup(t.tok.Text)
	if m == nil {
		return nil, false
	}

	if m.Builtin && e.builtin != nil {
		if repl, ok := e.builtin(m.Name, t.tok.Span); ok {
			hide := t.hide.with(m.Name)
			out := make([]xtoken, len(repl))
			for i, r := range repl {
				out[i] = xtoken{tok: r, hide: hide}
			}
			return out, true
		}
	}

	if !m.IsFunc {
		return e.substitute(m, t, nil), true
	}

	// Function-like: expands only when the next non-trivia token
	// (newlines included) is a '('.
	var buffered []xtoken
	var origins []bool
	for {
		n, fromSrc, ok := e.next()
		if !ok {
			e.putBack(buffered, origins)
			return nil, false
		}
		if n.tok.isTrivia() || n.tok.Kind == Newline || n.placeholder {
			buffered = append(buffered, n)
			origins = append(origins, fromSrc)
			continue
		}
		if !n.tok.is(Punct, "(") {
			e.putBack(append(buffered, n), append(origins, fromSrc))
			return nil, false
		}
		break
	}

	args, ok := e.collectArgs(t.tok.Span)
	if !ok {
		return nil, false
	}

	if len(args) < len(m.Params) || (!m.Variadic && len(args) > len(m.Params) && !(len(m.Params) == 0 && len(args) == 1 && len(args[0]) == 0)) {
		e.diag(Diagnostic{
			Severity: SeverityError,
			Kind:     MacroArity,
			Span:     t.tok.Span,
			Message:  "macro " + m.Name + " invoked with wrong number of arguments",
		})
		for len(args) < len(m.Params) {
			args = append(args, nil)
		}
	}

	if m.Variadic {
		args = foldVariadic(args, len(m.Params))
	}

	return e.substitute(m, t, args), true
}

// collectArgs reads the argument token sequences of a function-like
// invocation, the opening '(' already consumed. Commas split arguments
// at paren depth one; nested parens are balanced. Trivia and newlines
// collapse into LeadingWS flags so stringizing can restore single
// spaces.
func (e *expander) collectArgs(site Span) ([][]xtoken, bool) {
	var args [][]xtoken
	var cur []xtoken
	depth := 1
	pendingWS := false

	for {
		t, _, ok := e.next()
		if !ok {
			e.diag(Diagnostic{
				Severity: SeverityError,
				Kind:     MacroArity,
				Span:     site,
				Message:  "unterminated macro invocation",
			})
			return nil, false
		}
		if t.placeholder {
			continue
		}
		if t.tok.isTrivia() || t.tok.Kind == Newline {
			pendingWS = true
			continue
		}

		switch {
		case t.tok.is(Punct, "("):
			depth++
		case t.tok.is(Punct, ")"):
			depth--
			if depth == 0 {
				args = append(args, cur)
				return args, true
			}
		case t.tok.is(Punct, ",") && depth == 1:
			args = append(args, cur)
			cur = nil
			pendingWS = false
			continue
		}

		t.tok.LeadingWS = pendingWS || t.tok.LeadingWS
		pendingWS = false
		cur = append(cur, t)
	}
}

// foldVariadic concatenates the excess arguments, commas restored, into
// the single __VA_ARGS__ slot.
func foldVariadic(args [][]xtoken, named int) [][]xtoken {
	if len(args) <= named {
		return append(args, nil)
	}
	rest := args[named]
	for _, extra := range args[named+1:] {
		comma := plain(Token{Kind: Punct, Text: ","})
		rest = append(rest, comma)
		rest = append(rest, extra...)
	}
	return append(args[:named], rest)
}

// substitute builds the replacement list for one invocation. args is
// nil for object-like macros. Parameters in plain positions receive
// their fully expanded argument; operands of # and ## receive the raw
// argument tokens.
func (e *expander) substitute(m *Macro, invocation xtoken, args [][]xtoken) []xtoken {
	hide := invocation.hide.with(m.Name)
	site := invocation.tok.Span
	body := m.Body

	var out []xtoken
	for i := 0; i < len(body); i++ {
		t := body[i]

		if t.Kind == HashHash {
			if len(out) == 0 {
				// Rejected at definition time; guard anyway.
				e.pasteDiag(site, "'##' at start of expansion")
				continue
			}
			i++
			if i >= len(body) {
				e.pasteDiag(site, "'##' at end of expansion")
				break
			}
			right := e.pasteOperand(m, body[i], args, hide)
			left := out[len(out)-1]
			out = out[:len(out)-1]
			out = append(out, e.paste(left, right, site)...)
			continue
		}

		if t.Kind == Hash && m.IsFunc {
			if i+1 < len(body) && body[i+1].Kind == Ident && m.paramIndex(body[i+1].Text) >= 0 {
				arg := args[m.paramIndex(body[i+1].Text)]
				out = append(out, xtoken{tok: stringize(arg, t, site), hide: hide})
				i++
				continue
			}
			e.diag(Diagnostic{
				Severity: SeverityError,
				Kind:     StringizeInvalid,
				Span:     site,
				Message:  "'#' is not followed by a macro parameter",
			})
			out = append(out, xtoken{tok: t, hide: hide})
			continue
		}

		if t.Kind == Ident && m.IsFunc {
			if pi := m.paramIndex(t.Text); pi >= 0 {
				arg := args[pi]
				if i+1 < len(body) && body[i+1].Kind == HashHash {
					// Raw operand for the upcoming paste.
					out = append(out, rawCopy(arg, t, hide)...)
				} else {
					out = append(out, e.expandArg(arg, t, hide)...)
				}
				continue
			}
		}

		out = append(out, xtoken{tok: t, hide: hide})
	}

	// Drop surviving placeholders.
	kept := out[:0]
	for _, t := range out {
		if !t.placeholder {
			kept = append(kept, t)
		}
	}
	return kept
}

// pasteOperand resolves the right-hand side of ## to raw tokens.
func (e *expander) pasteOperand(m *Macro, t Token, args [][]xtoken, hide hideSet) []xtoken {
	if m.IsFunc && t.Kind == Ident {
		if pi := m.paramIndex(t.Text); pi >= 0 {
			return rawCopy(args[pi], t, hide)
		}
	}
	return []xtoken{{tok: t, hide: hide}}
}

// rawCopy copies the unexpanded argument, inserting a placeholder when
// it is empty. spacing comes from the position of the parameter in the
// body.
func rawCopy(arg []xtoken, param Token, hide hideSet) []xtoken {
	if len(arg) == 0 {
		return []xtoken{{placeholder: true, hide: hide}}
	}
	out := make([]xtoken, len(arg))
	for i, a := range arg {
		out[i] = xtoken{tok: a.tok, hide: unionHideSets(a.hide, hide)}
	}
	out[0].tok.LeadingWS = param.LeadingWS
	return out
}

// expandArg fully expands an argument for a plain body position. Each
// resulting token inherits both the argument's own hide sets and that
// of the enclosing expansion.
func (e *expander) expandArg(arg []xtoken, param Token, hide hideSet) []xtoken {
	if len(arg) == 0 {
		return nil
	}
	sub := newExpander(e.macros, e.builtin, e.diag)
	in := make([]xtoken, len(arg))
	copy(in, arg)
	expanded := sub.run(in, nil)
	out := make([]xtoken, 0, len(expanded))
	for _, t := range expanded {
		if t.placeholder {
			continue
		}
		out = append(out, xtoken{tok: t.tok, hide: unionHideSets(t.hide, hide)})
	}
	if len(out) > 0 {
		out[0].tok.LeadingWS = param.LeadingWS
	}
	return out
}

// paste concatenates left with the first token of right and re-lexes
// the result. When the concatenation is not a single valid token, both
// operands are kept adjacent and a diagnostic is emitted. Empty
// operands (placeholders) keep the non-empty side.
func (e *expander) paste(left xtoken, right []xtoken, site Span) []xtoken {
	if left.placeholder {
		if len(right) == 1 && right[0].placeholder {
			return nil
		}
		e.pasteDiag(site, "'##' with an empty operand")
		return right
	}
	if len(right) == 0 || right[0].placeholder {
		e.pasteDiag(site, "'##' with an empty operand")
		return append([]xtoken{left}, right[1:]...)
	}

	first := right[0]
	merged, ok := relexOne(left.tok.Text+first.tok.Text, site)
	if !ok {
		e.diag(Diagnostic{
			Severity: SeverityError,
			Kind:     PasteInvalid,
			Span:     site,
			Message:  "pasting \"" + left.tok.Text + "\" and \"" + first.tok.Text + "\" does not give a valid token",
		})
		return append([]xtoken{left}, right...)
	}

	mergedX := xtoken{
		tok:  merged,
		hide: unionHideSets(left.hide, first.hide),
	}
	mergedX.tok.LeadingWS = left.tok.LeadingWS
	return append([]xtoken{mergedX}, right[1:]...)
}

func (e *expander) pasteDiag(site Span, msg string) {
	e.diag(Diagnostic{
		Severity: SeverityWarning,
		Kind:     PasteInvalid,
		Span:     site,
		Message:  msg,
	})
}

// relexOne lexes text and reports whether it forms exactly one token.
// The token's span covers the invocation site: the pasted text exists
// nowhere in any source buffer.
func relexOne(text string, site Span) (Token, bool) {
	src := NewSource(site.SourceID, "", []byte(text))
	bad := false
	lx := NewLexer(src, func(Diagnostic) { bad = true })

	first := lx.Next()
	if bad || first.Kind == EOF || first.Kind == Whitespace || first.Kind == Newline {
		return Token{}, false
	}
	if next := lx.Next(); next.Kind != EOF {
		return Token{}, false
	}
	first.Span = site
	return first, true
}

// stringize renders the raw argument as a single STRING token:
// whitespace runs fold to one space, quotes and backslashes are
// escaped.
func stringize(arg []xtoken, hashTok Token, site Span) Token {
	var b []byte
	b = append(b, '"')
	for i, t := range arg {
		if t.placeholder {
			continue
		}
		if i > 0 && t.tok.LeadingWS {
			b = append(b, ' ')
		}
		for j := 0; j < len(t.tok.Text); j++ {
			c := t.tok.Text[j]
			if c == '"' || c == '\\' {
				b = append(b, '\\')
			}
			b = append(b, c)
		}
	}
	b = append(b, '"')
	return Token{
		Kind:      String,
		Text:      string(b),
		Span:      site,
		LeadingWS: hashTok.LeadingWS,
	}
}
