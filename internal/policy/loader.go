package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// Loader reads the resource policy file. The format follows the extension:
// .toml is TOML, anything else YAML.
type Loader struct {
	filePath string
}

// NewLoader creates a loader for filePath.
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string { return l.filePath }

// Load reads and parses the policy file.
func (l *Loader) Load() (File, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return File{}, fmt.Errorf("failed to read policy file: %w", err)
	}

	// Deployment templates ({{DDC_VAR}}) are not resolved here.
	data = stripTemplateVariables(data)

	var file File
	switch strings.ToLower(filepath.Ext(l.filePath)) {
	case ".toml":
		if err := toml.Unmarshal(data, &file); err != nil {
			return File{}, fmt.Errorf("failed to parse policy toml: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &file); err != nil {
			return File{}, fmt.Errorf("failed to parse policy yaml: %w", err)
		}
	}
	return file, nil
}

// stripTemplateVariables replaces {{...}} placeholders with an empty string
// literal. Example: id: {{DDC_WEB}} -> id: ""
func stripTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAll(data, []byte(`""`))
}
