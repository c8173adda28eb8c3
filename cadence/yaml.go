// ABOUTME: YAML loading for cadence catalogs
// ABOUTME: Lets operators replace step delays and intents without rebuilding
package cadence

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/harperreed/warmer/models"
)

type catalogFile struct {
	Cadences map[string][]models.Step `yaml:"cadences"`
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cadence file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog of the form:
//
//	cadences:
//	  RenewalPush:
//	    - delay_days: 0
//	      intent: "..."
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	defs := make(map[Name][]models.Step, len(file.Cadences))
	for raw, steps := range file.Cadences {
		name, ok := ParseName(raw)
		if !ok {
			return nil, fmt.Errorf("%w: unknown cadence %q", ErrInvalidCatalog, raw)
		}
		defs[name] = steps
	}
	return NewCatalog(defs)
}
