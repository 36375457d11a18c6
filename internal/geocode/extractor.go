package geocode

import (
	"context"
	"fmt"

	prose "github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/telefeed/backend/pkg/logger"
)

// Place is one extracted place mention. Resolved is false when the
// geocoder could not produce coordinates; such entries survive until the
// enrichment pipeline's aggregation step, which drops them from the
// persisted record.
type Place struct {
	Name      string
	Latitude  float64
	Longitude float64
	Resolved  bool
}

// Extractor finds location-type named entities in English text and
// resolves them to coordinates through an injected Resolver.
type Extractor struct {
	resolver Resolver
}

func NewExtractor(resolver Resolver) *Extractor {
	return &Extractor{resolver: resolver}
}

// ExtractLocations runs NER over the text, deduplicates place names by
// surface form in first-mention order, and resolves each unique name.
func (e *Extractor) ExtractLocations(ctx context.Context, text string) ([]Place, error) {
	names, err := locationEntities(text)
	if err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(names))
	for _, name := range names {
		lat, lon, found, err := e.resolver.Resolve(ctx, name)
		if err != nil {
			logger.Warn("Geocode lookup failed",
				zap.String("name", name),
				zap.Error(err),
			)
			places = append(places, Place{Name: name})
			continue
		}
		places = append(places, Place{
			Name:      name,
			Latitude:  lat,
			Longitude: lon,
			Resolved:  found,
		})
	}

	return places, nil
}

// locationEntities returns the unique GPE-labelled entities of the text,
// ordered by first mention.
func locationEntities(text string) ([]string, error) {
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, fmt.Errorf("failed to run NER: %w", err)
	}

	seen := make(map[string]struct{})
	var names []string
	for _, ent := range doc.Entities() {
		if ent.Label != "GPE" {
			continue
		}
		if _, ok := seen[ent.Text]; ok {
			continue
		}
		seen[ent.Text] = struct{}{}
		names = append(names, ent.Text)
	}

	return names, nil
}
