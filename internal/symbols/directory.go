// Package symbols resolves Taiwanese listing codes to display names
package symbols

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bobmcallan/twpulse/internal/common"
	"github.com/bobmcallan/twpulse/internal/interfaces"
)

//go:embed names.yaml
var builtinNames []byte

type nameFile struct {
	Symbols map[string]string `yaml:"symbols"`
}

// Directory is an immutable code -> name table
type Directory struct {
	names map[string]string
}

// NewDirectory loads the built-in table and overlays entries from path
// when it is non-empty.
func NewDirectory(path string, logger *common.Logger) (*Directory, error) {
	names, err := parseNames(builtinNames)
	if err != nil {
		return nil, fmt.Errorf("failed to parse built-in symbol table: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read symbols file %s: %w", path, err)
		}
		extra, err := parseNames(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse symbols file %s: %w", path, err)
		}
		for code, name := range extra {
			names[code] = name
		}
		if logger != nil {
			logger.Info().Str("path", path).Int("entries", len(extra)).Msg("Symbol names loaded")
		}
	}

	return &Directory{names: names}, nil
}

func parseNames(data []byte) (map[string]string, error) {
	var f nameFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	names := make(map[string]string, len(f.Symbols))
	for code, name := range f.Symbols {
		code = strings.TrimSpace(code)
		name = strings.TrimSpace(name)
		if code != "" && name != "" {
			names[code] = name
		}
	}
	return names, nil
}

// Name returns the display name for code, or code when unknown
func (d *Directory) Name(code string) string {
	if name, ok := d.names[code]; ok {
		return name
	}
	return code
}

// Len returns the number of known codes
func (d *Directory) Len() int {
	return len(d.names)
}

var _ interfaces.SymbolDirectory = (*Directory)(nil)
