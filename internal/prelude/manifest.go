// Package prelude assembles the Base prelude (spec §4.3 "Prelude
// composition", §6.1 "Prelude source text"): the ordered chunk manifest,
// the embedded source text those chunks concatenate to, and (since parsing
// that source is the external CST parser's job per §6.1) the hand-authored
// IR standing in for "parse it and lower it" that internal/compiler's Base
// cache tier actually compiles.
package prelude

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed manifest.yaml
var manifestYAML []byte

//go:embed chunks/*.jl
var chunkFS embed.FS

// Chunk is one named source-text chunk, loaded in the order Manifest lists
// it (spec §4.3: "earlier chunks may not reference later identifiers").
type Chunk struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

// Excluded is a chunk deliberately not loaded, with the justification the
// spec's build-time self-check requires ("a build-time self-check
// enumerates all .jl files under the base directory and requires each to
// be either loaded or on an explicit exclusion list with justification").
type Excluded struct {
	File   string `yaml:"file"`
	Reason string `yaml:"reason"`
}

// manifestFile is the YAML document shape of manifest.yaml.
type manifestFile struct {
	Chunks   []Chunk    `yaml:"chunks"`
	Excluded []Excluded `yaml:"excluded"`
}

// Manifest returns the parsed, ordered chunk list and exclusion list.
func Manifest() (*manifestFile, error) {
	var m manifestFile
	if err := yaml.Unmarshal(manifestYAML, &m); err != nil {
		return nil, fmt.Errorf("parsing prelude manifest: %w", err)
	}
	return &m, nil
}

// Source returns the full Base prelude source text: every manifest chunk's
// file content, concatenated in manifest order (spec §6.1: "one
// concatenated string, loaded once").
func Source() (string, error) {
	m, err := Manifest()
	if err != nil {
		return "", err
	}
	out := make([]byte, 0, 1<<16)
	for _, c := range m.Chunks {
		data, err := chunkFS.ReadFile(c.File)
		if err != nil {
			return "", fmt.Errorf("reading chunk %q (%s): %w", c.Name, c.File, err)
		}
		out = append(out, data...)
		out = append(out, '\n')
	}
	return string(out), nil
}

// allEmbeddedFiles lists every .jl file actually embedded under chunks/,
// used by the self-check test to catch a chunk file added to the directory
// but never wired into manifest.yaml (loaded or excluded).
func allEmbeddedFiles() ([]string, error) {
	entries, err := chunkFS.ReadDir("chunks")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, "chunks/"+e.Name())
	}
	return out, nil
}
