package config

import (
	"fmt"
	"os"

	"github.com/BartekS5/reviewflow/pkg/models"
)

// LoadTableManifest reads the table manifest from the given path.
// An empty path yields the default manifest.
func LoadTableManifest(filePath string) (*models.TableManifest, error) {
	if filePath == "" {
		return models.DefaultManifest(), nil
	}

	bytes, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read table manifest '%s': %w", filePath, err)
	}

	m, err := models.LoadManifest(bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse table manifest '%s': %w", filePath, err)
	}
	if len(m.Tables) == 0 {
		return nil, fmt.Errorf("table manifest '%s' lists no tables", filePath)
	}
	return m, nil
}
