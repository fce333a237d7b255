package config

import (
	"fmt"
	"os"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/catalog"
)

// LoadCatalog returns the built-in catalog when path is empty, else the YAML file at path.
func LoadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	cat, err := catalog.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return cat, nil
}
