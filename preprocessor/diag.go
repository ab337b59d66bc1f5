package preprocessor

import "fmt"

// Severity of a diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// DiagKind identifies the class of a diagnostic.
type DiagKind int

const (
	LexicalError DiagKind = iota
	UnterminatedComment
	UnterminatedConditional
	StrayDirective
	UnknownDirective
	BadDefineSyntax
	RedefinitionMismatch
	UndefBuiltin
	IfExprError
	IncludeNotAllowed
	IncludeResolveFailed
	IncludeDepthExceeded
	ExtensionUnknown
	VersionMisplaced
	UserError
	MacroArity
	PasteInvalid
	StringizeInvalid
	LineSyntax
	PragmaOnceNoop
	ReservedIdent
)

var diagKindNames = map[DiagKind]string{
	LexicalError:            "LexicalError",
	UnterminatedComment:     "UnterminatedComment",
	UnterminatedConditional: "UnterminatedConditional",
	StrayDirective:          "StrayDirective",
	UnknownDirective:        "UnknownDirective",
	BadDefineSyntax:         "BadDefineSyntax",
	RedefinitionMismatch:    "RedefinitionMismatch",
	UndefBuiltin:            "UndefBuiltin",
	IfExprError:             "IfExprError",
	IncludeNotAllowed:       "IncludeNotAllowed",
	IncludeResolveFailed:    "IncludeResolveFailed",
	IncludeDepthExceeded:    "IncludeDepthExceeded",
	ExtensionUnknown:        "ExtensionUnknown",
	VersionMisplaced:        "VersionMisplaced",
	UserError:               "UserError",
	MacroArity:              "MacroArity",
	PasteInvalid:            "PasteInvalid",
	StringizeInvalid:        "StringizeInvalid",
	LineSyntax:              "LineSyntax",
	PragmaOnceNoop:          "PragmaOnceNoop",
	ReservedIdent:           "ReservedIdent",
}

func (k DiagKind) String() string {
	if s, ok := diagKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("DiagKind(%d)", int(k))
}

// Diagnostic is a warning or error produced while preprocessing. Fatal
// diagnostics are followed immediately by End.
type Diagnostic struct {
	Severity Severity
	Kind     DiagKind
	Span     Span
	Message  string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Severity, d.Kind, d.Message)
}

// Fatal reports whether this diagnostic terminates the run.
func (d Diagnostic) Fatal() bool { return d.Severity == SeverityFatal }
