package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "valid",
			config: Config{
				Defines:     map[string]string{"DEBUG": "1", "SCALE(x)": "(x*2)"},
				IncludeDirs: []string{"shaders/include"},
			},
		},
		{
			name:    "negative depth",
			config:  Config{MaxIncludeDepth: -1},
			wantErr: true,
		},
		{
			name:    "bad macro name",
			config:  Config{Defines: map[string]string{"1BAD": "x"}},
			wantErr: true,
		},
		{
			name:    "empty macro name",
			config:  Config{Defines: map[string]string{"": "x"}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yml")

	want := &Config{
		Defines:         map[string]string{"MAX_LIGHTS": "8"},
		IncludeDirs:     []string{"a", "b"},
		Extensions:      []string{"GL_EXT_custom"},
		MaxIncludeDepth: 64,
	}
	require.NoError(t, want.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("max_include_depth: -3\n"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GLSLPP_INCLUDE_PATH", "x"+string(os.PathListSeparator)+"y")
	c := &Config{IncludeDirs: []string{"a"}}
	c.LoadFromEnv()
	assert.Equal(t, []string{"a", "x", "y"}, c.IncludeDirs)
}
