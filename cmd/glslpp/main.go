// Command glslpp runs the GLSL preprocessor over a shader file and
// prints the result as expanded source or as a token listing.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	glsllang "github.com/codedhead/glsl-lang"
	"github.com/codedhead/glsl-lang/internal/config"
	"github.com/codedhead/glsl-lang/preprocessor"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		defines     []string
		includeDirs []string
		extensions  []string
		configPath  string
		format      string
		noColor     bool
	)

	cmd := &cobra.Command{
		Use:   "glslpp <shader-file>",
		Short: "Preprocess a GLSL shader",
		Long: `glslpp interprets the preprocessor directives of a GLSL 4.60 shader:
macros are expanded, conditionals filtered, includes spliced and
line/version/extension state tracked. The output is either the expanded
source text or the raw token stream.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}

			cfg := &config.Config{}
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			} else if loaded, err := config.Load(config.DefaultConfigPath()); err == nil {
				cfg = loaded
			}
			cfg.LoadFromEnv()
			cfg.IncludeDirs = append(cfg.IncludeDirs, includeDirs...)
			cfg.Extensions = append(cfg.Extensions, extensions...)
			if cfg.Defines == nil {
				cfg.Defines = map[string]string{}
			}
			for _, d := range defines {
				name, val := parseDefineFlag(d)
				cfg.Defines[name] = val
			}

			return run(cmd, args[0], cfg, format)
		},
	}

	cmd.Flags().StringArrayVarP(&defines, "define", "D", nil, "predefine a macro, name[=value]")
	cmd.Flags().StringArrayVarP(&includeDirs, "include-dir", "I", nil, "add an include search directory")
	cmd.Flags().StringArrayVar(&extensions, "extension", nil, "declare a supported extension")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default: ~/.config/glslpp/config.yml)")
	cmd.Flags().StringVarP(&format, "format", "f", "source", "output format: source, tokens, json")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored diagnostics")
	return cmd
}

// parseDefineFlag splits -D name=value; a bare name defines it to 1,
// matching the usual compiler convention.
func parseDefineFlag(s string) (string, string) {
	if i := strings.IndexByte(s, '='); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, "1"
}

func run(cmd *cobra.Command, path string, cfg *config.Config, format string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read shader: %w", err)
	}

	const topLevelID = 0
	resolver := preprocessor.NewFileResolver(topLevelID, cfg.IncludeDirs...)
	resolver.Register(topLevelID, path)

	res := glsllang.Preprocess(src, preprocessor.Options{
		SourceID:        topLevelID,
		Path:            path,
		Predefined:      cfg.Defines,
		KnownExtensions: cfg.Extensions,
		Resolver:        resolver,
		MaxIncludeDepth: cfg.MaxIncludeDepth,
	})

	sourceName := func(id int) string {
		if id == topLevelID {
			return filepath.Base(path)
		}
		if p := resolver.PathOf(id); p != "" {
			return filepath.Base(p)
		}
		return fmt.Sprintf("<source %d>", id)
	}
	for _, d := range res.Diagnostics {
		printDiagnostic(cmd.ErrOrStderr(), d, sourceName)
	}

	switch format {
	case "source":
		fmt.Fprint(cmd.OutOrStdout(), glsllang.Render(res.Tokens))
	case "tokens":
		for _, t := range res.Tokens {
			if t.Kind == preprocessor.Whitespace || t.Kind == preprocessor.Comment {
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%q\t%s\n", t.Kind, t.Text, t.Span)
		}
	case "json":
		if err := writeJSON(cmd.OutOrStdout(), res, sourceName); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	if res.HasErrors() {
		return fmt.Errorf("preprocessing failed with errors")
	}
	return nil
}

// tokenJSON and diagnosticJSON are the wire forms of the json output
// format; enum values render as their names.
type tokenJSON struct {
	Kind        string `json:"kind"`
	Text        string `json:"text"`
	Source      string `json:"source"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	LeadingWS   bool   `json:"leading_ws,omitempty"`
	StartOfLine bool   `json:"start_of_line,omitempty"`
}

type diagnosticJSON struct {
	Severity string `json:"severity"`
	Kind     string `json:"kind"`
	Source   string `json:"source"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Message  string `json:"message"`
}

func writeJSON(w io.Writer, res *glsllang.Result, name func(int) string) error {
	out := struct {
		Version     string           `json:"version"`
		Tokens      []tokenJSON      `json:"tokens"`
		Diagnostics []diagnosticJSON `json:"diagnostics,omitempty"`
	}{Version: res.Version.String()}

	for _, t := range res.Tokens {
		if t.Kind == preprocessor.Whitespace || t.Kind == preprocessor.Comment {
			continue
		}
		out.Tokens = append(out.Tokens, tokenJSON{
			Kind:        t.Kind.String(),
			Text:        t.Text,
			Source:      name(t.Span.SourceID),
			Start:       t.Span.Start,
			End:         t.Span.End,
			LeadingWS:   t.LeadingWS,
			StartOfLine: t.StartOfLine,
		})
	}
	for _, d := range res.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, diagnosticJSON{
			Severity: d.Severity.String(),
			Kind:     d.Kind.String(),
			Source:   name(d.Span.SourceID),
			Start:    d.Span.Start,
			End:      d.Span.End,
			Message:  d.Message,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

var (
	warnColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed)
	fatalColor = color.New(color.FgRed, color.Bold)
)

func printDiagnostic(w io.Writer, d preprocessor.Diagnostic, name func(int) string) {
	c := warnColor
	switch d.Severity {
	case preprocessor.SeverityError:
		c = errColor
	case preprocessor.SeverityFatal:
		c = fatalColor
	}
	fmt.Fprintf(w, "%s: %s: %s (%s, at %s)\n",
		name(d.Span.SourceID), c.Sprint(d.Severity), d.Message, d.Kind, d.Span)
}
