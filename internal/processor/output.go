package processor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Encode writes fc as indented GeoJSON or as its YAML rendition.
func Encode(w io.Writer, fc *geojson.FeatureCollection, format string) error {
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	switch format {
	case FormatJSON, "":
		data = append(data, '\n')
	case FormatYAML:
		// through a generic tree so keys follow the GeoJSON names
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("decode features: %w", err)
		}
		if data, err = yaml.Marshal(doc); err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	_, err = w.Write(data)
	return err
}

// Save writes the feature collection to path, creating parent directories.
func Save(path string, fc *geojson.FeatureCollection, format string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	// We care about write errors on close
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", path).Msg("Failed to close file")
		}
	}()

	return Encode(f, fc, format)
}
