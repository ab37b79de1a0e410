package ingest

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/restomaps/internal/model"
	"gopkg.in/yaml.v3"
)

// catalogEntry is one restaurant in a catalog file
type catalogEntry struct {
	ExternalID string   `yaml:"external_id"`
	Name       string   `yaml:"name"`
	PlaceType  string   `yaml:"place_type"`
	City       string   `yaml:"city"`
	MapsURL    string   `yaml:"maps_url"`
	Address    string   `yaml:"address"`
	Latitude   *float64 `yaml:"latitude"`
	Longitude  *float64 `yaml:"longitude"`
	MapsRating *float64 `yaml:"maps_rating"`
	Visited    bool     `yaml:"visited"`
}

type catalogFile struct {
	Restaurants []catalogEntry `yaml:"restaurants"`
}

// DecodeCatalog reads a YAML restaurant catalog. The document is either a
// mapping with a restaurants list or the list itself. Every entry needs an
// external_id, unique within the catalog; the name defaults to it.
func DecodeCatalog(r io.Reader) ([]model.Restaurant, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return []model.Restaurant{}, nil
		}
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	var entries []catalogEntry
	if len(doc.Content) > 0 && doc.Content[0].Kind == yaml.SequenceNode {
		if err := doc.Decode(&entries); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
	} else {
		var f catalogFile
		if err := doc.Decode(&f); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
		entries = f.Restaurants
	}

	out := make([]model.Restaurant, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		id := strings.TrimSpace(e.ExternalID)
		if id == "" {
			return nil, fmt.Errorf("catalog entry %d: missing external_id", i+1)
		}
		if seen[id] {
			return nil, fmt.Errorf("catalog entry %d: duplicate external_id %q", i+1, id)
		}
		seen[id] = true

		if e.MapsRating != nil && (*e.MapsRating < 0 || *e.MapsRating > 5) {
			return nil, fmt.Errorf("catalog entry %d: maps_rating %.2f out of range 0-5", i+1, *e.MapsRating)
		}

		name := strings.TrimSpace(e.Name)
		if name == "" {
			name = id
		}
		out = append(out, model.Restaurant{
			ExternalID: id,
			Name:       name,
			PlaceType:  strings.TrimSpace(e.PlaceType),
			City:       strings.TrimSpace(e.City),
			MapsURL:    strings.TrimSpace(e.MapsURL),
			Address:    strings.TrimSpace(e.Address),
			Latitude:   e.Latitude,
			Longitude:  e.Longitude,
			MapsRating: e.MapsRating,
			Visited:    e.Visited,
		})
	}
	return out, nil
}
