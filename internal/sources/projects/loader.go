package projects

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Loader handles loading and parsing of projects.yaml
type Loader struct {
	filePath string
	lookup   func(string) (string, bool)
}

// NewLoader creates a new projects loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
		lookup:   os.LookupEnv,
	}
}

// Load reads and parses the projects file
func (l *Loader) Load() (File, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return File{}, fmt.Errorf("failed to read projects file: %w", err)
	}

	data, err = l.expand(data)
	if err != nil {
		return File{}, err
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("failed to parse projects yaml: %w", err)
	}

	return file, nil
}

// expand substitutes ${VAR} references so API keys can stay out of the file.
// An unset variable is an error rather than an empty secret.
func (l *Loader) expand(data []byte) ([]byte, error) {
	var missing []string
	out := envRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		name := string(envRef.FindSubmatch(ref)[1])
		v, ok := l.lookup(name)
		if !ok {
			missing = append(missing, name)
			return ref
		}
		return []byte(v)
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("projects file references unset variables: %v", missing)
	}
	return out, nil
}
