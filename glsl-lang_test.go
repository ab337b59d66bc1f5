package glsllang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codedhead/glsl-lang/preprocessor"
)

func TestPreprocess(t *testing.T) {
	src := []byte("#version 450\n#define N 3\nint a = N;\n")
	res := Preprocess(src, preprocessor.Options{})

	require.NotEmpty(t, res.Events)
	assert.False(t, res.HasErrors())
	assert.Equal(t, Version{Major: 4, Minor: 5}, res.Version)

	var idents []string
	for _, tok := range res.Tokens {
		if tok.Kind == preprocessor.Ident || tok.Kind == preprocessor.IntConst {
			idents = append(idents, tok.Text)
		}
	}
	assert.Equal(t, []string{"int", "a", "3"}, idents)
}

func TestPreprocessCollectsDiagnostics(t *testing.T) {
	res := Preprocess([]byte("#define M 1\n#define M 2\n"), preprocessor.Options{})
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, preprocessor.RedefinitionMismatch, res.Diagnostics[0].Kind)
	assert.False(t, res.HasErrors()) // redefinition is a warning
}

func TestPreprocessExtensions(t *testing.T) {
	res := Preprocess([]byte("#extension GL_GOOGLE_include_directive : enable\n"), preprocessor.Options{})
	require.Len(t, res.Extensions, 1)
	assert.Equal(t, "GL_GOOGLE_include_directive", res.Extensions[0].Name)
	assert.Equal(t, preprocessor.BehaviorEnable, res.Extensions[0].Behavior)
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"plain source round-trips",
			"vec3 p = a + b; // tail\n",
			"vec3 p = a + b; // tail\n",
		},
		{
			"macro expansion keeps spacing",
			"#define N 3\nint a = N;\n",
			"int a = 3;\n",
		},
		{
			"conditional filtered",
			"#if 0\ngone\n#endif\nkept\n",
			"kept\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Preprocess([]byte(tt.src), preprocessor.Options{})
			require.False(t, res.HasErrors())
			assert.Equal(t, tt.want, Render(res.Tokens))
		})
	}
}

func TestParseVersion(t *testing.T) {
	assert.Equal(t, Version{Major: 4, Minor: 6}, ParseVersion("460"))
	assert.Equal(t, Version{Major: 3, Minor: 3}, ParseVersion("330"))
	assert.Equal(t, Version{Major: 1, Minor: 1}, ParseVersion("110"))
	assert.Equal(t, Version{Major: 1}, ParseVersion("garbage"))
}

func TestVersionCompare(t *testing.T) {
	v := ParseVersion("460")
	assert.Equal(t, "460", v.String())
	assert.True(t, v.GreaterThan(4, 5))
	assert.True(t, v.GreaterThan(3, 9))
	assert.False(t, v.GreaterThan(4, 6))
	assert.False(t, v.GreaterThan(5, 0))
}
