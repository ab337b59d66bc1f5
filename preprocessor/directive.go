package preprocessor

import (
	"strconv"
	"strings"
)

// foldLine drops trivia from a directive line; spacing survives in the
// LeadingWS flags the lexer already set.
func foldLine(line []Token) []Token {
	out := make([]Token, 0, len(line))
	for _, t := range line {
		if !t.isTrivia() {
			out = append(out, t)
		}
	}
	return out
}

func directiveSpan(hash Token, line []Token) Span {
	span := hash.Span
	if len(line) > 0 {
		span.End = line[len(line)-1].Span.End
	}
	return span
}

// handleDirective interprets one directive line. Inside skipped
// conditional regions only the conditional directives themselves are
// interpreted; everything else is suppressed.
func (p *Processor) handleDirective(hash Token, rawLine []Token) {
	line := foldLine(rawLine)
	if len(line) == 0 {
		return // null directive
	}

	active := p.cond.Active()
	name := line[0]
	if name.Kind != Ident {
		if active {
			p.report(Diagnostic{
				Severity: SeverityError,
				Kind:     StrayDirective,
				Span:     directiveSpan(hash, line),
				Message:  "expected a directive name after '#'",
			})
		}
		return
	}

	rest := line[1:]
	span := directiveSpan(hash, line)

	switch name.Text {
	case "if":
		cond := false
		if active {
			cond = p.evalDirectiveExpr(rest, span)
		}
		p.cond.Push(cond, span)

	case "ifdef", "ifndef":
		cond := false
		if active {
			if len(rest) == 0 || rest[0].Kind != Ident {
				p.report(Diagnostic{
					Severity: SeverityError,
					Kind:     IfExprError,
					Span:     span,
					Message:  "expected an identifier after #" + name.Text,
				})
			} else {
				cond = p.macros.Defined(rest[0].Text)
				if name.Text == "ifndef" {
					cond = !cond
				}
			}
		}
		p.cond.Push(cond, span)

	case "elif":
		if !p.cond.InConditional() || p.cond.ElseSeen() {
			p.report(Diagnostic{
				Severity: SeverityError,
				Kind:     StrayDirective,
				Span:     span,
				Message:  "stray #elif",
			})
			return
		}
		cond := false
		if p.cond.NeedsElifEval() {
			cond = p.evalDirectiveExpr(rest, span)
		}
		p.cond.Elif(cond)

	case "else":
		if !p.cond.Else() {
			p.report(Diagnostic{
				Severity: SeverityError,
				Kind:     StrayDirective,
				Span:     span,
				Message:  "stray #else",
			})
		}

	case "endif":
		if !p.cond.Pop() {
			p.report(Diagnostic{
				Severity: SeverityError,
				Kind:     StrayDirective,
				Span:     span,
				Message:  "stray #endif",
			})
		}

	case "define":
		if active {
			p.handleDefine(rest, span)
		}
	case "undef":
		if active {
			p.handleUndef(rest, span)
		}
	case "include":
		if active {
			p.handleInclude(rest, span)
		}
	case "line":
		if active {
			p.handleLine(rest, span)
		}
	case "version":
		if active {
			p.handleVersion(rest, span)
		}
	case "extension":
		if active {
			p.handleExtension(rest, span)
		}
	case "pragma":
		if active {
			p.handlePragma(rest, span)
		}
	case "error":
		if active {
			p.report(Diagnostic{
				Severity: SeverityFatal,
				Kind:     UserError,
				Span:     span,
				Message:  joinTokens(rest),
			})
		}

	default:
		if active {
			p.report(Diagnostic{
				Severity: SeverityError,
				Kind:     UnknownDirective,
				Span:     span,
				Message:  "unknown directive #" + name.Text,
			})
		}
	}
}

// joinTokens renders a token run back to text, one space per
// whitespace run.
func joinTokens(toks []Token) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 && t.LeadingWS {
			b.WriteByte(' ')
		}
		b.WriteString(t.Text)
	}
	return b.String()
}

// evalDirectiveExpr evaluates an #if/#elif expression: the defined
// operator is rewritten first, then macros are expanded, then the
// arithmetic runs.
func (p *Processor) evalDirectiveExpr(rest []Token, span Span) bool {
	rewritten := p.rewriteDefined(rest, span)
	expanded := p.exp.expandList(rewritten)
	return evalCondition(expanded, span, p.report)
}

// rewriteDefined folds `defined X` and `defined(X)` to 0/1 before any
// macro expansion happens, so X itself is never expanded.
func (p *Processor) rewriteDefined(toks []Token, span Span) []Token {
	var out []Token
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if !t.is(Ident, "defined") {
			out = append(out, t)
			continue
		}

		var name string
		ok := false
		if i+1 < len(toks) && toks[i+1].Kind == Ident {
			name = toks[i+1].Text
			i++
			ok = true
		} else if i+3 < len(toks) && toks[i+1].is(Punct, "(") &&
			toks[i+2].Kind == Ident && toks[i+3].is(Punct, ")") {
			name = toks[i+2].Text
			i += 3
			ok = true
		}
		if !ok {
			p.report(Diagnostic{
				Severity: SeverityError,
				Kind:     IfExprError,
				Span:     span,
				Message:  "expected an identifier after 'defined'",
			})
			out = append(out, Token{Kind: IntConst, Text: "0", Span: t.Span})
			continue
		}

		val := "0"
		if p.macros.Defined(name) {
			val = "1"
		}
		out = append(out, Token{Kind: IntConst, Text: val, Span: t.Span, LeadingWS: t.LeadingWS})
	}
	return out
}

// isReservedName matches the identifiers GLSL reserves: the gl_ prefix
// and any occurrence of two consecutive underscores.
func isReservedName(name string) bool {
	return strings.HasPrefix(name, "gl_") || strings.Contains(name, "__")
}

func (p *Processor) handleDefine(rest []Token, span Span) {
	if len(rest) == 0 || rest[0].Kind != Ident {
		p.report(Diagnostic{
			Severity: SeverityError,
			Kind:     BadDefineSyntax,
			Span:     span,
			Message:  "expected a macro name after #define",
		})
		return
	}
	name := rest[0]

	if existing := p.macros.Lookup(name.Text); existing != nil && existing.Builtin {
		p.report(Diagnostic{
			Severity: SeverityError,
			Kind:     RedefinitionMismatch,
			Span:     span,
			Message:  "cannot redefine builtin macro " + name.Text,
		})
		return
	}
	if isReservedName(name.Text) {
		p.report(Diagnostic{
			Severity: SeverityWarning,
			Kind:     ReservedIdent,
			Span:     name.Span,
			Message:  "defining reserved identifier " + name.Text,
		})
	}

	m, ok := p.parseDefine(name, rest[1:], span)
	if !ok {
		return
	}
	if !p.macros.Define(m) {
		p.report(Diagnostic{
			Severity: SeverityWarning,
			Kind:     RedefinitionMismatch,
			Span:     span,
			Message:  "macro " + m.Name + " redefined with a different definition",
		})
	}
}

// parseDefine parses the parameter list and body of a definition. A
// function-like macro requires the '(' to touch the name; with
// whitespace in between the parenthesis is part of the body.
func (p *Processor) parseDefine(name Token, rest []Token, span Span) (*Macro, bool) {
	m := &Macro{Name: name.Text}

	if len(rest) > 0 && rest[0].is(Punct, "(") && !rest[0].LeadingWS {
		m.IsFunc = true
		i := 1
		seen := map[string]bool{}
		for {
			if i >= len(rest) {
				p.badDefine(span, "unterminated macro parameter list")
				return nil, false
			}
			t := rest[i]
			switch {
			case t.is(Punct, ")"):
				i++
			case t.Kind == Ident:
				if m.Variadic {
					p.badDefine(span, "parameter after '...'")
					return nil, false
				}
				if seen[t.Text] {
					p.badDefine(span, "duplicate macro parameter "+t.Text)
					return nil, false
				}
				seen[t.Text] = true
				m.Params = append(m.Params, t.Text)
				i++
				if i < len(rest) && rest[i].is(Punct, ",") {
					i++
					continue
				}
				if i < len(rest) && rest[i].is(Punct, ")") {
					i++
					break
				}
				p.badDefine(span, "expected ',' or ')' in macro parameter list")
				return nil, false
			case t.is(Punct, "..."):
				m.Variadic = true
				i++
				if i < len(rest) && rest[i].is(Punct, ")") {
					i++
					break
				}
				p.badDefine(span, "'...' must end the parameter list")
				return nil, false
			default:
				p.badDefine(span, "expected a parameter name")
				return nil, false
			}
			break
		}
		rest = rest[i:]
	}

	m.Body = append([]Token(nil), rest...)
	if len(m.Body) > 0 {
		m.Body[0].LeadingWS = false
		if m.Body[0].Kind == HashHash || m.Body[len(m.Body)-1].Kind == HashHash {
			p.report(Diagnostic{
				Severity: SeverityError,
				Kind:     PasteInvalid,
				Span:     span,
				Message:  "'##' cannot appear at either end of a macro body",
			})
		}
	}
	return m, true
}

func (p *Processor) badDefine(span Span, msg string) {
	p.report(Diagnostic{
		Severity: SeverityError,
		Kind:     BadDefineSyntax,
		Span:     span,
		Message:  msg,
	})
}

func (p *Processor) handleUndef(rest []Token, span Span) {
	if len(rest) == 0 || rest[0].Kind != Ident {
		p.report(Diagnostic{
			Severity: SeverityError,
			Kind:     BadDefineSyntax,
			Span:     span,
			Message:  "expected a macro name after #undef",
		})
		return
	}
	if len(rest) > 1 {
		p.report(Diagnostic{
			Severity: SeverityWarning,
			Kind:     StrayDirective,
			Span:     span,
			Message:  "extra tokens after #undef",
		})
	}
	if !p.macros.Undef(rest[0].Text) {
		p.report(Diagnostic{
			Severity: SeverityError,
			Kind:     UndefBuiltin,
			Span:     span,
			Message:  "cannot undefine builtin macro " + rest[0].Text,
		})
	}
}

func (p *Processor) handleInclude(rest []Token, span Span) {
	style := p.exts.ActiveIncludeStyle()
	if style == IncludeDisabled {
		p.report(Diagnostic{
			Severity: SeverityError,
			Kind:     IncludeNotAllowed,
			Span:     span,
			Message:  "#include requires GL_GOOGLE_include_directive or GL_ARB_shading_language_include",
		})
		return
	}

	path, system, ok := p.includePath(rest, span)
	if !ok {
		return
	}

	if len(p.frames) >= p.opts.MaxIncludeDepth {
		p.report(Diagnostic{
			Severity: SeverityFatal,
			Kind:     IncludeDepthExceeded,
			Span:     span,
			Message:  "include depth exceeds " + strconv.Itoa(p.opts.MaxIncludeDepth),
		})
		return
	}
	if p.opts.Resolver == nil {
		p.report(Diagnostic{
			Severity: SeverityError,
			Kind:     IncludeResolveFailed,
			Span:     span,
			Message:  "no include resolver configured",
		})
		return
	}

	id, data, err := p.opts.Resolver.Resolve(p.frame().src.ID, system, path)
	if err != nil {
		p.report(Diagnostic{
			Severity: SeverityError,
			Kind:     IncludeResolveFailed,
			Span:     span,
			Message:  err.Error(),
		})
		return
	}

	if p.once[id] && p.sources[id] != nil {
		return // #pragma once guard
	}

	src := p.sources[id]
	if src == nil {
		src = NewSource(id, path, data)
		p.sources[id] = src
	}
	p.pushFrame(src, path)
	p.emit(IncludeStartEvent{SourceID: id, Path: path})
}

// includePath extracts the include target: a direct "..." or <...>
// token, or a token sequence that expands to one of those forms.
func (p *Processor) includePath(rest []Token, span Span) (path string, system, ok bool) {
	toks := rest
	if !(len(toks) == 1 && (toks[0].Kind == String || toks[0].Kind == AngleString)) {
		toks = foldLine(p.exp.expandList(rest))
	}

	if len(toks) == 1 && toks[0].Kind == String {
		return strings.Trim(toks[0].Text, "\""), false, true
	}
	if len(toks) == 1 && toks[0].Kind == AngleString {
		return strings.Trim(toks[0].Text, "<>"), true, true
	}
	// Reassembled angle form from expansion.
	if len(toks) >= 2 && toks[0].is(Punct, "<") && toks[len(toks)-1].is(Punct, ">") {
		var b strings.Builder
		for _, t := range toks[1 : len(toks)-1] {
			b.WriteString(t.Text)
		}
		return b.String(), true, true
	}

	p.report(Diagnostic{
		Severity: SeverityError,
		Kind:     IncludeResolveFailed,
		Span:     span,
		Message:  "expected \"path\" or <path> after #include",
	})
	return "", false, false
}

func (p *Processor) handleLine(rest []Token, span Span) {
	toks := foldLine(p.exp.expandList(rest))
	if len(toks) == 0 || toks[0].Kind != IntConst {
		p.lineSyntax(span)
		return
	}
	line, err := strconv.Atoi(toks[0].Text)
	if err != nil {
		p.lineSyntax(span)
		return
	}

	ev := LineEvent{Line: line}
	if len(toks) > 1 {
		if len(toks) > 2 || toks[1].Kind != IntConst {
			p.lineSyntax(span)
			return
		}
		srcNum, err := strconv.Atoi(toks[1].Text)
		if err != nil {
			p.lineSyntax(span)
			return
		}
		ev.Source = srcNum
		ev.HasSource = true
	}

	f := p.frame()
	phys, _ := f.src.LineCol(span.Start)
	f.lineAdj = line - (phys + 1) // the next physical line reports `line`
	if ev.HasSource {
		f.fileOverride = ev.Source
		f.hasOverride = true
	}
	p.emit(ev)
}

func (p *Processor) lineSyntax(span Span) {
	p.report(Diagnostic{
		Severity: SeverityError,
		Kind:     LineSyntax,
		Span:     span,
		Message:  "expected #line line-number [source-number]",
	})
}

var validProfiles = map[string]bool{"core": true, "compatibility": true, "es": true}

func (p *Processor) handleVersion(rest []Token, span Span) {
	if p.tokenSeen || p.versionSet || len(p.frames) > 1 {
		p.report(Diagnostic{
			Severity: SeverityError,
			Kind:     VersionMisplaced,
			Span:     span,
			Message:  "#version must appear first in the top-level source",
		})
	}
	if len(rest) == 0 || rest[0].Kind != IntConst {
		p.report(Diagnostic{
			Severity: SeverityError,
			Kind:     VersionMisplaced,
			Span:     span,
			Message:  "expected a version number after #version",
		})
		return
	}
	num, err := strconv.Atoi(rest[0].Text)
	if err != nil {
		p.report(Diagnostic{
			Severity: SeverityError,
			Kind:     VersionMisplaced,
			Span:     span,
			Message:  "bad version number " + rest[0].Text,
		})
		return
	}

	profile := ""
	if len(rest) > 1 {
		if rest[1].Kind != Ident || !validProfiles[rest[1].Text] || len(rest) > 2 {
			p.report(Diagnostic{
				Severity: SeverityError,
				Kind:     VersionMisplaced,
				Span:     span,
				Message:  "expected profile 'core', 'compatibility' or 'es'",
			})
			return
		}
		profile = rest[1].Text
	}

	p.version = num
	p.versionProfile = profile
	p.versionSet = true
	p.emit(VersionEvent{Number: num, Profile: profile})
}

func (p *Processor) handleExtension(rest []Token, span Span) {
	if len(rest) != 3 || rest[0].Kind != Ident || !rest[1].is(Punct, ":") || rest[2].Kind != Ident {
		p.report(Diagnostic{
			Severity: SeverityError,
			Kind:     ExtensionUnknown,
			Span:     span,
			Message:  "expected #extension name : behavior",
		})
		return
	}
	name := rest[0].Text
	behavior, ok := ParseBehavior(rest[2].Text)
	if !ok {
		p.report(Diagnostic{
			Severity: SeverityError,
			Kind:     ExtensionUnknown,
			Span:     span,
			Message:  "unknown extension behavior " + rest[2].Text,
		})
		return
	}

	if name != "all" && !p.exts.Known(name) {
		switch behavior {
		case BehaviorRequire:
			p.report(Diagnostic{
				Severity: SeverityError,
				Kind:     ExtensionUnknown,
				Span:     span,
				Message:  "required extension " + name + " is not supported",
			})
		case BehaviorEnable, BehaviorWarn:
			p.report(Diagnostic{
				Severity: SeverityWarning,
				Kind:     ExtensionUnknown,
				Span:     span,
				Message:  "extension " + name + " is not supported",
			})
		}
	}
	if !p.exts.Set(name, behavior) {
		p.report(Diagnostic{
			Severity: SeverityError,
			Kind:     ExtensionUnknown,
			Span:     span,
			Message:  "'all' only accepts behaviors 'warn' and 'disable'",
		})
		return
	}
	p.emit(ExtensionEvent{Name: name, Behavior: behavior})
}

func (p *Processor) handlePragma(rest []Token, span Span) {
	if len(rest) == 1 && rest[0].is(Ident, "once") {
		id := p.frame().src.ID
		p.once[id] = true
		if len(p.frames) == 1 {
			p.report(Diagnostic{
				Severity: SeverityWarning,
				Kind:     PragmaOnceNoop,
				Span:     span,
				Message:  "#pragma once in the top-level source has no effect",
			})
		}
		return
	}
	p.emit(PragmaEvent{Tokens: append([]Token(nil), rest...)})
}

// installPredefined parses caller-provided macros exactly like #define
// lines and flags them builtin. Each definition gets its own negative
// source id so body token spans stay resolvable for the whole run.
func (p *Processor) installPredefined(defs map[string]string) {
	nextID := builtinSourceID
	for key, val := range defs {
		text := "#define " + key + " " + val + "\n"
		src := NewSource(nextID, "<predefined>", []byte(text))
		p.sources[nextID] = src
		nextID--
		lx := NewLexer(src, p.report)

		var line []Token
		for {
			t := lx.Next()
			if t.Kind == EOF || t.Kind == Newline {
				break
			}
			line = append(line, t)
		}
		line = foldLine(line)
		// line is: HASH define name ...
		if len(line) < 3 || line[2].Kind != Ident {
			p.report(Diagnostic{
				Severity: SeverityError,
				Kind:     BadDefineSyntax,
				Span:     Span{SourceID: src.ID},
				Message:  "bad predefined macro " + key,
			})
			continue
		}
		name := line[2]
		if m, ok := p.parseDefine(name, line[3:], name.Span); ok {
			m.Builtin = true
			p.macros.Define(m)
		}
	}
}
