package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/poserisk/internal/pose"
)

// angleDocument is the document of the direct-angle path:
//
//	{"angles": [[hip, knee, shoulder], ...]}
type angleDocument struct {
	Angles *[][]float64 `json:"angles" yaml:"angles"`
}

// ReadAngleFile reads an angle file. Files ending in .yaml or .yml are
// parsed as YAML, everything else as JSON.
func ReadAngleFile(path string) ([]pose.AngleTriple, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read angle file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseAnglesYAML(data)
	default:
		return ParseAnglesJSON(data)
	}
}

// ParseAnglesJSON parses a JSON angle document.
func ParseAnglesJSON(data []byte) ([]pose.AngleTriple, error) {
	var doc angleDocument
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: malformed angle JSON: %v", ErrInvalidInput, err)
	}
	if doc.Angles == nil {
		return nil, fmt.Errorf("%w: missing \"angles\" field", ErrInvalidInput)
	}
	return triples(*doc.Angles)
}

// ParseAnglesYAML parses a YAML angle document.
func ParseAnglesYAML(data []byte) ([]pose.AngleTriple, error) {
	var doc angleDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: malformed angle YAML: %v", ErrInvalidInput, err)
	}
	if doc.Angles == nil {
		return nil, fmt.Errorf("%w: missing \"angles\" field", ErrInvalidInput)
	}
	return triples(*doc.Angles)
}

// triples converts rows to triples. Every row must hold exactly three
// values; range checks are left to the windower.
func triples(rows [][]float64) ([]pose.AngleTriple, error) {
	out := make([]pose.AngleTriple, len(rows))
	for i, row := range rows {
		if len(row) != pose.Features {
			return nil, fmt.Errorf("%w: entry %d has %d values, want %d", ErrInvalidInput, i, len(row), pose.Features)
		}
		out[i] = pose.AngleTriple{Hip: row[0], Knee: row[1], Shoulder: row[2]}
	}
	return out, nil
}
