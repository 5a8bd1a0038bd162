package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"
)

// FileName is the scope configuration file consumed as the lowest layer.
const FileName = "rollfwd.yaml"

// fileSchema validates the types of the known fields. Unknown fields pass
// through untouched for forward compatibility.
const fileSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "rollForward": {
      "type": "string",
      "enum": ["disable", "patch", "latestPatch", "feature", "latestFeature", "minor", "latestMinor", "major", "latestMajor"]
    },
    "rollForwardOnNoCandidate": {"type": "integer", "minimum": 0, "maximum": 2},
    "allowPrerelease": {"type": "boolean"}
  }
}`

var compileFileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(fileSchema)))
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(FileName+".schema.json", doc); err != nil {
		return nil, err
	}
	return compiler.Compile(FileName + ".schema.json")
})

// fileDoc is the typed shape of rollfwd.yaml. Unknown fields are ignored.
type fileDoc struct {
	Version                  string `yaml:"version"`
	RollForward              string `yaml:"rollForward"`
	RollForwardOnNoCandidate *int   `yaml:"rollForwardOnNoCandidate"`
	AllowPrerelease          *bool  `yaml:"allowPrerelease"`
}

// LoadFile reads the scope configuration file from dir. A missing file is
// an empty layer, not an error; a file both spelling the current and the
// legacy roll-forward setting is a *ConflictError.
func LoadFile(dir string) (Layer, error) {
	layer := Layer{Name: LayerFile}

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return layer, nil
	}
	if err != nil {
		return layer, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := validateFile(path, data); err != nil {
		return layer, err
	}

	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return layer, fmt.Errorf("parsing %s: %w", path, err)
	}
	return layerFromDoc(doc, path)
}

func validateFile(path string, data []byte) error {
	schema, err := compileFileSchema()
	if err != nil {
		return fmt.Errorf("compiling configuration schema: %w", err)
	}
	jsonData, err := sigsyaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	value, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("validating %s: %w", path, err)
	}
	return nil
}

func layerFromDoc(doc fileDoc, path string) (Layer, error) {
	layer := Layer{Name: LayerFile, AllowPrerelease: doc.AllowPrerelease}

	v, err := version(LayerFile, doc.Version)
	if err != nil {
		return layer, fmt.Errorf("%s: %w", path, err)
	}
	layer.Version = v

	m, err := mode(LayerFile, doc.RollForward, doc.RollForwardOnNoCandidate)
	if err != nil {
		return layer, err
	}
	layer.Mode = m
	return layer, nil
}
