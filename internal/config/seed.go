package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"crateworks/internal/app/crates"
	"crateworks/internal/domain/crate"
)

//go:embed seed.schema.json
var seedSchemaJSON string

var ErrInvalidSeed = errors.New("invalid seed catalog")

var (
	seedSchemaOnce sync.Once
	seedSchema     *jsonschema.Schema
	seedSchemaErr  error
)

func compiledSeedSchema() (*jsonschema.Schema, error) {
	seedSchemaOnce.Do(func() {
		seedSchema, seedSchemaErr = jsonschema.CompileString("seed.schema.json", seedSchemaJSON)
	})
	return seedSchema, seedSchemaErr
}

// LoadSeed reads a YAML or JSON seed catalog, validates it against the
// embedded schema and decodes it.
func LoadSeed(path string) (crates.Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return crates.Seed{}, err
	}
	seed, err := ParseSeed(raw)
	if err != nil {
		return crates.Seed{}, fmt.Errorf("%s: %w", path, err)
	}
	return seed, nil
}

func ParseSeed(raw []byte) (crates.Seed, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return crates.Seed{}, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	if doc == nil {
		return crates.Seed{}, nil
	}
	// YAML and JSON disagree on number types; go through JSON so the schema
	// and the decoder see the same document.
	b, err := json.Marshal(doc)
	if err != nil {
		return crates.Seed{}, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return crates.Seed{}, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}

	schema, err := compiledSeedSchema()
	if err != nil {
		return crates.Seed{}, fmt.Errorf("compile seed schema: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return crates.Seed{}, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}

	var parsed seedDocument
	if err := json.Unmarshal(b, &parsed); err != nil {
		return crates.Seed{}, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	seed := crates.Seed{Keys: parsed.Keys, Tags: parsed.Tags}
	for _, c := range parsed.Crates {
		def := c.Definition
		def.Prizes = crates.PrizesFrom(c.Prizes)
		seed.Crates = append(seed.Crates, def)
	}
	return seed, nil
}

// seedDocument keeps prize weights optional until decoding is done.
type seedDocument struct {
	Keys   []crate.Key `json:"keys"`
	Tags   []crate.Tag `json:"tags"`
	Crates []seedCrate `json:"crates"`
}

type seedCrate struct {
	crate.Definition
	Prizes []crates.PrizeRequest `json:"prizes"`
}
