package maptype

import (
	"embed"
	"errors"
	"fmt"
	"path"
)

// DefaultMapType is preselected by the authoring form.
const DefaultMapType = "hc-nl-provinces"

//go:embed examples/*.csv
var exampleFiles embed.FS

// ErrNoExampleDataset is returned when a map type has no bundled example file.
var ErrNoExampleDataset = errors.New("no example dataset")

// Catalog returns the compiled-in map outlines.
func Catalog() []Descriptor {
	return []Descriptor{
		{
			ID:             "ec-europe",
			Label:          "Europe (European Commission)",
			ResourceID:     "sdv_highcharts_maps/ec-europe",
			JoinKey:        "iso-a2",
			NameField:      "name",
			ExampleDataset: "ec-europe.example.csv",
		},
		{
			ID:             "hc-nl-municipalities",
			Label:          "NL municipalities (Highcharts)",
			ResourceID:     "sdv_highcharts_maps/hc-nl-municipalities",
			JoinKey:        "hc-key",
			NameField:      "name",
			ExampleDataset: "hc-nl-municipalities.example.csv",
		},
		{
			ID:             "hc-nl-provinces",
			Label:          "NL provinces (by Highcharts)",
			ResourceID:     "sdv_highcharts_maps/hc-nl-provinces",
			JoinKey:        "hc-key",
			NameField:      "name",
			ExampleDataset: "hc-nl-provinces.example.csv",
		},
		{
			ID:             "hc-world",
			Label:          "World (by Highcharts)",
			ResourceID:     "sdv_highcharts_maps/hc-world",
			JoinKey:        "hc-key",
			NameField:      "name",
			ExampleDataset: "hc-world.example.csv",
		},
		{
			ID:             "rivm-nl-ggd-regions",
			Label:          "NL GGD regions (RIVM)",
			ResourceID:     "sdv_highcharts_maps/rivm-nl-ggd-regions",
			JoinKey:        "GGDnr",
			NameField:      "GGDnaam",
			ExampleDataset: "rivm-nl-ggd-regions.example.csv",
		},
		{
			ID:             "rivm-nl-municipalities",
			Label:          "NL municipalities (RIVM)",
			ResourceID:     "sdv_highcharts_maps/rivm-nl-municipalities",
			JoinKey:        "gemnr",
			NameField:      "gemnaam",
			ExampleDataset: "rivm-nl-municipalities.example.csv",
		},
		{
			// The RIVM province outline carries no name property, so the
			// province number doubles as the label.
			ID:             "rivm-nl-provinces",
			Label:          "NL provinces (RIVM)",
			ResourceID:     "sdv_highcharts_maps/rivm-nl-provinces",
			JoinKey:        "PROVNR",
			NameField:      "PROVNR",
			ExampleDataset: "rivm-nl-provinces.example.csv",
		},
	}
}

// Default returns a registry holding the compiled-in catalog.
func Default() *Registry {
	return NewRegistry(Catalog()...)
}

// ExampleDataset returns the bundled example CSV for a descriptor.
func ExampleDataset(d Descriptor) ([]byte, error) {
	if d.ExampleDataset == "" {
		return nil, fmt.Errorf("%w for map type %q", ErrNoExampleDataset, d.ID)
	}
	// path.Base keeps lookups inside the examples directory.
	data, err := exampleFiles.ReadFile(path.Join("examples", path.Base(d.ExampleDataset)))
	if err != nil {
		return nil, fmt.Errorf("%w for map type %q: %v", ErrNoExampleDataset, d.ID, err)
	}
	return data, nil
}
