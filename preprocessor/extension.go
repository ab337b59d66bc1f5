package preprocessor

// Behavior is the requested state of an extension.
type Behavior int

const (
	BehaviorDisable Behavior = iota
	BehaviorWarn
	BehaviorEnable
	BehaviorRequire
)

var behaviorNames = map[Behavior]string{
	BehaviorDisable: "disable",
	BehaviorWarn:    "warn",
	BehaviorEnable:  "enable",
	BehaviorRequire: "require",
}

func (b Behavior) String() string { return behaviorNames[b] }

// ParseBehavior maps the directive token to a behavior.
func ParseBehavior(s string) (Behavior, bool) {
	switch s {
	case "disable":
		return BehaviorDisable, true
	case "warn":
		return BehaviorWarn, true
	case "enable":
		return BehaviorEnable, true
	case "require":
		return BehaviorRequire, true
	}
	return 0, false
}

// Extension names the core reacts to itself: they gate which #include
// style is in effect.
const (
	ExtArbShadingLanguageInclude = "GL_ARB_shading_language_include"
	ExtGoogleIncludeDirective    = "GL_GOOGLE_include_directive"
)

// ExtensionRegistry tracks the per-run state of shader extensions. The
// host preloads the names it knows; everything else is unknown and only
// recorded.
type ExtensionRegistry struct {
	known map[string]bool
	state map[string]Behavior
}

// NewExtensionRegistry creates a registry knowing the given names. The
// two include extensions are always known.
func NewExtensionRegistry(known []string) *ExtensionRegistry {
	r := &ExtensionRegistry{
		known: make(map[string]bool, len(known)+2),
		state: make(map[string]Behavior),
	}
	r.known[ExtArbShadingLanguageInclude] = true
	r.known[ExtGoogleIncludeDirective] = true
	for _, name := range known {
		r.known[name] = true
	}
	return r
}

// Known reports whether name was declared by the host.
func (r *ExtensionRegistry) Known(name string) bool { return r.known[name] }

// Set records a behavior for name. "all" applies to every known
// extension and is only valid with warn or disable; Set reports whether
// the combination was legal.
func (r *ExtensionRegistry) Set(name string, b Behavior) bool {
	if name == "all" {
		if b != BehaviorWarn && b != BehaviorDisable {
			return false
		}
		for known := range r.known {
			r.state[known] = b
		}
		return true
	}
	r.state[name] = b
	return true
}

// State returns the current behavior of name; extensions start out
// disabled.
func (r *ExtensionRegistry) State(name string) Behavior { return r.state[name] }

// Enabled reports whether name is enabled or required.
func (r *ExtensionRegistry) Enabled(name string) bool {
	s := r.state[name]
	return s == BehaviorEnable || s == BehaviorRequire
}

// IncludeStyle describes which #include semantics are active.
type IncludeStyle int

const (
	IncludeDisabled IncludeStyle = iota
	IncludeArb                   // runtime resolution, GL_ARB_shading_language_include
	IncludeGoogle                // compile-time literal path, GL_GOOGLE_include_directive
)

// ActiveIncludeStyle returns the include style selected by the current
// extension state. When both extensions are on, the Google form wins:
// it is the stricter, compile-time one.
func (r *ExtensionRegistry) ActiveIncludeStyle() IncludeStyle {
	if r.Enabled(ExtGoogleIncludeDirective) {
		return IncludeGoogle
	}
	if r.Enabled(ExtArbShadingLanguageInclude) {
		return IncludeArb
	}
	return IncludeDisabled
}
