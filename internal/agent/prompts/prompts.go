// Package prompts holds the reasoning-model prompt templates.
package prompts

import (
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

//go:embed templates/*.md
var templateFS embed.FS

// Triage is the exploitability assessment template.
const Triage = "triage"

// OverrideEnv names the directory checked for template overrides.
const OverrideEnv = "MINOTAUR_PROMPTS_DIR"

// GetPrompt renders the named template, replacing each {key} with vars[key].
// Unknown placeholders are left as they are.
func GetPrompt(name string, vars map[string]string) (string, error) {
	tmpl, err := load(name)
	if err != nil {
		return "", err
	}
	return render(tmpl, vars), nil
}

// load prefers $MINOTAUR_PROMPTS_DIR/<name>.md over the embedded copy.
func load(name string) (string, error) {
	file := name + ".md"
	if dir := os.Getenv(OverrideEnv); dir != "" {
		if b, err := os.ReadFile(filepath.Join(dir, file)); err == nil && len(b) > 0 {
			return string(b), nil
		}
	}
	b, err := templateFS.ReadFile(path.Join("templates", file))
	if err != nil {
		return "", fmt.Errorf("unknown prompt template %q: %w", name, err)
	}
	return string(b), nil
}

func render(tmpl string, vars map[string]string) string {
	if len(vars) == 0 {
		return tmpl
	}
	oldnew := make([]string, 0, 2*len(vars))
	for k, v := range vars {
		oldnew = append(oldnew, "{"+k+"}", v)
	}
	return strings.NewReplacer(oldnew...).Replace(tmpl)
}
