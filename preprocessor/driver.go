package preprocessor

import "strconv"

// builtinSourceID is the source id of the first caller predefine; each
// further predefine takes the next lower id.
const builtinSourceID = -1

// DefaultVersion is what __VERSION__ reports before any #version
// directive.
const DefaultVersion = 110

// Options configures a preprocessing run.
type Options struct {
	// SourceID identifies the top-level buffer in spans (default 0).
	SourceID int
	// Path names the top-level buffer for IncludeStart-style reporting.
	Path string
	// Predefined macros, parsed exactly like #define bodies. The key
	// may be "NAME" or "NAME(a,b)"; the value is the replacement.
	Predefined map[string]string
	// KnownExtensions preloads the extension registry.
	KnownExtensions []string
	// Resolver handles #include; without one every #include fails.
	Resolver IncludeResolver
	// MaxIncludeDepth caps the include stack (default 256).
	MaxIncludeDepth int
}

// includeFrame is one active source on the include stack.
type includeFrame struct {
	src       *Source
	lex       *Lexer
	path      string
	condDepth int

	// #line state: logical = physical + lineAdj, optional source
	// number override for __FILE__.
	lineAdj      int
	fileOverride int
	hasOverride  bool
}

// Processor is the pull-based driver. Each Next call advances the
// pipeline just far enough to produce one event.
type Processor struct {
	opts   Options
	macros *MacroTable
	exts   *ExtensionRegistry
	cond   condStack
	exp    *expander

	frames  []*includeFrame
	sources map[int]*Source
	once    map[int]bool // sources with #pragma once

	rawPending []xtoken
	out        []Event

	version        int
	versionProfile string
	versionSet     bool
	tokenSeen      bool // a non-trivia token was emitted (gates #version)

	fatal bool
	ended bool
}

// New creates a Processor over the top-level buffer.
func New(input []byte, opts Options) *Processor {
	if opts.MaxIncludeDepth <= 0 {
		opts.MaxIncludeDepth = DefaultMaxIncludeDepth
	}
	p := &Processor{
		opts:    opts,
		macros:  NewMacroTable(),
		exts:    NewExtensionRegistry(opts.KnownExtensions),
		sources: make(map[int]*Source),
		once:    make(map[int]bool),
	}
	p.exp = newExpander(p.macros, p.expandBuiltin, p.report)

	for _, name := range []string{"__LINE__", "__FILE__", "__VERSION__"} {
		p.macros.Define(&Macro{Name: name, Builtin: true})
	}
	p.installPredefined(opts.Predefined)

	src := NewSource(opts.SourceID, opts.Path, input)
	p.sources[src.ID] = src
	p.pushFrame(src, opts.Path)
	return p
}

// Macros exposes the macro table (read-only use intended).
func (p *Processor) Macros() *MacroTable { return p.macros }

// Extensions exposes the extension registry.
func (p *Processor) Extensions() *ExtensionRegistry { return p.exts }

// SourceFor returns the buffer behind a span's source id. Buffers stay
// alive for the whole run so spans can always be resolved.
func (p *Processor) SourceFor(id int) *Source { return p.sources[id] }

// Version returns the declared shader version, or DefaultVersion.
func (p *Processor) Version() int {
	if p.versionSet {
		return p.version
	}
	return DefaultVersion
}

// Profile returns the declared #version profile, or "".
func (p *Processor) Profile() string { return p.versionProfile }

// Next returns the next event. After the first EndEvent every further
// call returns EndEvent.
func (p *Processor) Next() Event {
	for {
		if len(p.out) > 0 {
			ev := p.out[0]
			p.out = p.out[1:]
			return ev
		}
		if p.ended || p.fatal {
			p.ended = true
			return EndEvent{}
		}
		p.step()
	}
}

// Events drains the stream into a slice, EndEvent included.
func (p *Processor) Events() []Event {
	var evs []Event
	for {
		ev := p.Next()
		evs = append(evs, ev)
		if _, end := ev.(EndEvent); end {
			return evs
		}
	}
}

// emit queues an event. Once a fatal diagnostic is queued nothing else
// is, so End follows it directly.
func (p *Processor) emit(ev Event) {
	if p.fatal {
		return
	}
	p.out = append(p.out, ev)
}

func (p *Processor) report(d Diagnostic) {
	p.emit(DiagnosticEvent{Diagnostic: d})
	if d.Fatal() {
		p.fatal = true
	}
}

func (p *Processor) frame() *includeFrame { return p.frames[len(p.frames)-1] }

func (p *Processor) pushFrame(src *Source, path string) {
	f := &includeFrame{
		src:       src,
		path:      path,
		condDepth: p.cond.Depth(),
	}
	f.lex = NewLexer(src, p.report)
	p.frames = append(p.frames, f)
}

// rawNext returns the next unprocessed token: pushed-back tokens first,
// then the current frame's lexer. EOF tokens mark frame boundaries and
// are handled by step.
func (p *Processor) rawNext() xtoken {
	if len(p.rawPending) > 0 {
		t := p.rawPending[0]
		p.rawPending = p.rawPending[1:]
		return t
	}
	return plain(p.frame().lex.Next())
}

// readExpansionToken implements tokenReader for the expander. Frame
// boundaries end the expansion input; the EOF token is pushed back so
// the driver still sees it.
func (p *Processor) readExpansionToken() (xtoken, bool) {
	t := p.rawNext()
	if t.tok.Kind == EOF {
		p.rawPending = append([]xtoken{t}, p.rawPending...)
		return xtoken{}, false
	}
	return t, true
}

func (p *Processor) unreadExpansionTokens(toks []xtoken) {
	p.rawPending = append(append([]xtoken{}, toks...), p.rawPending...)
}

// step advances the pipeline by one raw token (or one directive line).
func (p *Processor) step() {
	t := p.rawNext()
	tok := t.tok

	if tok.Kind == EOF {
		p.popFrame()
		return
	}

	if tok.Kind == Hash && tok.StartOfLine {
		line := p.collectDirectiveLine()
		p.handleDirective(tok, line)
		return
	}

	if !p.cond.Active() {
		return
	}

	if tok.Kind == Ident && !t.hide.has(tok.Text) && p.macros.Defined(tok.Text) {
		for _, x := range p.exp.expandStream(t, p) {
			p.emitToken(x.tok)
		}
		return
	}

	p.emitToken(tok)
}

func (p *Processor) emitToken(tok Token) {
	if !tok.isTrivia() && tok.Kind != Newline {
		p.tokenSeen = true
	}
	p.emit(TokenEvent{Token: tok})
}

// collectDirectiveLine gathers every token up to the terminating
// newline. The newline itself is consumed; an EOF terminator is pushed
// back for the driver.
func (p *Processor) collectDirectiveLine() []Token {
	var line []Token
	for {
		t := p.rawNext()
		switch t.tok.Kind {
		case Newline:
			return line
		case EOF:
			p.rawPending = append([]xtoken{t}, p.rawPending...)
			return line
		}
		line = append(line, t.tok)
	}
}

// popFrame closes the current include frame. Conditionals opened inside
// the frame must have been closed inside it.
func (p *Processor) popFrame() {
	f := p.frame()

	if p.cond.Depth() > f.condDepth {
		p.report(Diagnostic{
			Severity: SeverityError,
			Kind:     UnterminatedConditional,
			Span:     p.cond.OpenSpan(),
			Message:  "unterminated conditional directive",
		})
		for p.cond.Depth() > f.condDepth {
			p.cond.Pop()
		}
	}

	if len(p.frames) == 1 {
		p.ended = true
		p.emit(EndEvent{})
		return
	}

	p.frames = p.frames[:len(p.frames)-1]
	p.emit(IncludeEndEvent{SourceID: f.src.ID})
}

// expandBuiltin produces the dynamic replacement of the builtin macros.
// Predefined caller macros are builtin too but carry ordinary bodies,
// so they fall through to normal expansion.
func (p *Processor) expandBuiltin(name string, site Span) ([]Token, bool) {
	switch name {
	case "__LINE__":
		return []Token{p.synthInt(p.logicalLine(site), site)}, true
	case "__FILE__":
		f := p.frameForSource(site.SourceID)
		if f.hasOverride {
			return []Token{p.synthInt(f.fileOverride, site)}, true
		}
		return []Token{p.synthInt(f.src.ID, site)}, true
	case "__VERSION__":
		return []Token{p.synthInt(p.Version(), site)}, true
	}
	return nil, false
}

func (p *Processor) synthInt(v int, site Span) Token {
	return Token{Kind: IntConst, Text: strconv.Itoa(v), Span: site}
}

// frameForSource finds the innermost frame reading the given source,
// falling back to the current frame for tokens synthesized elsewhere.
func (p *Processor) frameForSource(id int) *includeFrame {
	for i := len(p.frames) - 1; i >= 0; i-- {
		if p.frames[i].src.ID == id {
			return p.frames[i]
		}
	}
	return p.frame()
}

// logicalLine resolves a span to its #line-adjusted line number.
func (p *Processor) logicalLine(site Span) int {
	f := p.frameForSource(site.SourceID)
	var line int
	if src := p.sources[site.SourceID]; src != nil && site.SourceID == f.src.ID {
		line, _ = src.LineCol(site.Start)
	} else {
		// Synthesized span from elsewhere: report the cursor line.
		line, _ = f.src.LineCol(f.src.RawOffset(f.lex.pos))
	}
	return line + f.lineAdj
}
