package preprocessor

import "testing"

// lexExpr tokenizes a single expression for the evaluator.
func lexExpr(input string) []Token {
	src := NewSource(0, "expr", []byte(input))
	lx := NewLexer(src, nil)
	var toks []Token
	for {
		t := lx.Next()
		if t.Kind == EOF {
			return toks
		}
		toks = append(toks, t)
	}
}

func TestEvalCondition(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{"0", false},
		{"1", true},
		{"01", true},        // octal
		{"0x10", true},      // hex
		{"1 + 2 * 3", true},
		{"2 * 3 == 6", true},
		{"1 + 2 == 2 + 1", true},
		{"10 % 3 == 1", true},
		{"1 << 4 == 16", true},
		{"-8 >> 2 == -2", true}, // arithmetic shift for signed
		{"!1", false},
		{"!0", true},
		{"~0 == -1", true},
		{"-(3) == 0 - 3", true},
		{"+5 == 5", true},
		{"1 && 0", false},
		{"1 || 0", true},
		{"1 ? 2 : 0", true},
		{"0 ? 2 : 0", false},
		{"0 ? 1 : 0 ? 2 : 3", true}, // right-associative ternary
		{"(1 | 2) == 3", true},
		{"(6 & 3) == 2", true},
		{"(5 ^ 1) == 4", true},
		{"1 < 2 && 2 <= 2 && 3 > 2 && 3 >= 3", true},
		{"1 != 2", true},

		// Undefined identifiers are 0.
		{"UNDEFINED", false},
		{"UNDEFINED == 0", true},

		// Signed/unsigned promotion: -1 becomes UINT_MAX next to an
		// unsigned operand.
		{"-1 < 0", true},
		{"-1 < 0u", false},
		{"0xffffffffu == -1", true},
		{"4294967295u + 1u == 0u", true}, // wraps modulo 2^32
		{"2u / 4u == 0u", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			var diags []Diagnostic
			got := evalCondition(lexExpr(tt.expr), Span{}, func(d Diagnostic) { diags = append(diags, d) })
			if got != tt.want {
				t.Errorf("evalCondition(%q) = %v, want %v", tt.expr, got, tt.want)
			}
			if len(diags) > 0 {
				t.Errorf("unexpected diagnostics: %v", diags)
			}
		})
	}
}

func TestEvalConditionErrors(t *testing.T) {
	tests := []struct {
		expr string
		kind DiagKind
	}{
		{"", IfExprError},
		{"1 +", IfExprError},
		{"(1", IfExprError},
		{"1 2", IfExprError},
		{"1.5", IfExprError},
		{"1 ? 2", IfExprError},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			var diags []Diagnostic
			got := evalCondition(lexExpr(tt.expr), Span{}, func(d Diagnostic) { diags = append(diags, d) })
			if got {
				t.Errorf("evalCondition(%q) = true, want false on error", tt.expr)
			}
			if len(diags) == 0 || diags[0].Kind != tt.kind {
				t.Errorf("want %v diagnostic, got %v", tt.kind, diags)
			}
		})
	}
}

// Division by zero reports a diagnostic and the division yields 0; the
// rest of the expression still evaluates.
func TestEvalDivisionByZero(t *testing.T) {
	for _, expr := range []string{"1 / 0", "1 % 0"} {
		var diags []Diagnostic
		got := evalCondition(lexExpr(expr), Span{}, func(d Diagnostic) { diags = append(diags, d) })
		if got {
			t.Errorf("%q = true, want false", expr)
		}
		if len(diags) != 1 || diags[0].Kind != IfExprError {
			t.Errorf("%q: want one IfExprError, got %v", expr, diags)
		}
	}
}
