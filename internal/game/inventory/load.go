package inventory

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// definition is a YAML-loaded type that can check itself.
type definition[T any] interface {
	*T
	Validate() error
}

// loadDefs strictly decodes every YAML file directly inside dir as a T and
// validates it. kind names the definition type in errors.
//
// Postcondition: on success the slice is non-nil and every element is valid.
func loadDefs[T any, P definition[T]](dir, kind string) ([]*T, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("loading %s definitions: %w", kind, err)
	}
	out := make([]*T, 0, len(files))
	for _, path := range files {
		def := new(T)
		if err := decodeFile(path, def); err != nil {
			return nil, fmt.Errorf("loading %s definitions: %w", kind, err)
		}
		if err := P(def).Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s in %q: %w", kind, path, err)
		}
		out = append(out, def)
	}
	return out, nil
}

// yamlFiles lists the .yaml and .yml files directly inside dir.
func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %q: %w", dir, err)
	}
	var out []string
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		out = append(out, filepath.Join(dir, entry.Name()))
	}
	return out, nil
}

// decodeFile strictly decodes one YAML document from path into v.
func decodeFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot read file %q: %w", path, err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("cannot parse file %q: %w", path, err)
	}
	return nil
}
