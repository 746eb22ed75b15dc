// Package messages resolves diagnostic codes to human readable text.
package messages

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var defaultCatalog []byte

// Catalog maps diagnostic codes to message text.
type Catalog struct {
	texts map[string]string
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded message catalog: %v", err))
	}
	return c
}

// Load returns the embedded catalog overridden by the entries of the YAML
// file at path. The file maps codes to text.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read message catalog: %w", err)
	}

	overrides, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message catalog %s: %w", path, err)
	}

	c := Default()
	for code, text := range overrides.texts {
		c.texts[code] = text
	}
	return c, nil
}

func parse(data []byte) (*Catalog, error) {
	texts := make(map[string]string)
	if err := yaml.Unmarshal(data, &texts); err != nil {
		return nil, err
	}
	return &Catalog{texts: texts}, nil
}

// Text returns the text for code, or code itself if it is unknown.
func (c *Catalog) Text(code string) string {
	if text, ok := c.texts[code]; ok {
		return text
	}
	return code
}

// Resolve formats a diagnostic as "text" or "text: detail".
func (c *Catalog) Resolve(code, detail string) string {
	text := c.Text(code)
	if detail == "" {
		return text
	}
	return text + ": " + detail
}
