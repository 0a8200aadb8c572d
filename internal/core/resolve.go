package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JonMunkholm/mapfield/internal/maptype"
)

// LibraryJoinProperty is the property name the map library joins dataset
// keys on. The outline's own join key is mapped onto it.
const LibraryJoinProperty = "hc-key"

// ResolvedConfig is a stored document with every section made explicit.
// A nil pointer section is omitted from the rendered options.
type ResolvedConfig struct {
	Chart         ChartOptions          `json:"chart"`
	Title         *TextOptions          `json:"title,omitempty"`
	Subtitle      *TextOptions          `json:"subtitle,omitempty"`
	Tooltip       *ToggleOptions        `json:"tooltip,omitempty"`
	MapNavigation *MapNavigationOptions `json:"mapNavigation,omitempty"`
	Legend        LegendOptions         `json:"legend"`
	Credits       Credits               `json:"credits"`
	ColorAxis     ColorAxisOptions      `json:"colorAxis"`
	Series        SeriesOptions         `json:"series"`
}

type ChartOptions struct {
	Map    string `json:"map"`
	Height string `json:"height,omitempty"`
}

type TextOptions struct {
	Text string `json:"text"`
}

type ToggleOptions struct {
	Enabled bool `json:"enabled"`
}

type MapNavigationOptions struct {
	Enabled       bool           `json:"enabled"`
	ButtonOptions *ButtonOptions `json:"buttonOptions,omitempty"`
}

type ButtonOptions struct {
	VerticalAlign *string `json:"verticalAlign,omitempty"`
}

// LegendOptions carries the raw Ranges text; classification happens when
// the render call is built.
type LegendOptions struct {
	Enabled       bool         `json:"enabled"`
	Title         *TextOptions `json:"title,omitempty"`
	Ranges        string       `json:"ranges,omitempty"`
	Align         *string      `json:"align,omitempty"`
	VerticalAlign *string      `json:"verticalAlign,omitempty"`
	Layout        *string      `json:"layout,omitempty"`
}

// Credits is either the literal false or an options block.
type Credits struct {
	Block *CreditsOptions
}

type CreditsOptions struct {
	Enabled  bool             `json:"enabled"`
	Text     *string          `json:"text,omitempty"`
	Href     *string          `json:"href,omitempty"`
	Position *PositionOptions `json:"position,omitempty"`
}

type PositionOptions struct {
	Align *string `json:"align,omitempty"`
}

// Enabled reports whether credits are shown.
func (c Credits) Enabled() bool {
	return c.Block != nil
}

// MarshalJSON writes false for hidden credits.
func (c Credits) MarshalJSON() ([]byte, error) {
	if c.Block == nil {
		return []byte("false"), nil
	}
	return json.Marshal(c.Block)
}

// UnmarshalJSON accepts false (hidden) or a credits block.
func (c *Credits) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("false")) || bytes.Equal(trimmed, []byte("null")) {
		c.Block = nil
		return nil
	}
	var block CreditsOptions
	if err := json.Unmarshal(trimmed, &block); err != nil {
		return err
	}
	c.Block = &block
	return nil
}

type ColorAxisOptions struct {
	Min         float64      `json:"min"`
	Max         *float64     `json:"max,omitempty"`
	MinColor    *string      `json:"minColor,omitempty"`
	MaxColor    *string      `json:"maxColor,omitempty"`
	DataClasses []ColorRange `json:"dataClasses,omitempty"`
}

type SeriesOptions struct {
	Data       []DatasetRow       `json:"data"`
	JoinBy     [2]string          `json:"joinBy"`
	Name       string             `json:"name,omitempty"`
	States     *SeriesStates      `json:"states,omitempty"`
	DataLabels *DataLabelsOptions `json:"dataLabels,omitempty"`
}

type SeriesStates struct {
	Hover HoverState `json:"hover"`
}

type HoverState struct {
	Color string `json:"color"`
}

type DataLabelsOptions struct {
	Enabled bool `json:"enabled"`
}

// Resolver fills in a stored document against a map type registry.
type Resolver struct {
	registry *maptype.Registry
}

// NewResolver creates a resolver backed by reg.
func NewResolver(reg *maptype.Registry) *Resolver {
	return &Resolver{registry: reg}
}

// Resolve looks up the stored map type and resolves the document against it.
// Fails with ErrMissingMapType when chart.map is empty or unknown.
func (r *Resolver) Resolve(stored StoredMapConfig) (*ResolvedConfig, maptype.Descriptor, error) {
	id := strings.TrimSpace(stored.Chart.Map)
	if id == "" {
		return nil, maptype.Descriptor{}, fmt.Errorf("%w: chart.map is empty", ErrMissingMapType)
	}

	desc, err := r.registry.Lookup(id)
	if err != nil {
		return nil, maptype.Descriptor{}, fmt.Errorf("%w: %w", ErrMissingMapType, err)
	}

	return ResolveWith(stored, desc), desc, nil
}

// ResolveWith resolves stored against an already selected map type.
func ResolveWith(stored StoredMapConfig, mapType maptype.Descriptor) *ResolvedConfig {
	return &ResolvedConfig{
		Chart: ChartOptions{
			Map:    mapType.ID,
			Height: string(stored.Chart.Height),
		},
		Title:         resolveText(stored.Title),
		Subtitle:      resolveText(stored.Subtitle),
		Tooltip:       resolveTooltip(stored.Tooltip),
		MapNavigation: resolveMapNavigation(stored.MapNavigation),
		Legend:        resolveLegend(stored.Legend),
		Credits:       resolveCredits(stored.Credits),
		ColorAxis:     resolveColorAxis(stored.ColorAxis),
		Series:        resolveSeries(stored.Series, mapType),
	}
}

func resolveText(s *string) *TextOptions {
	if s == nil {
		return nil
	}
	return &TextOptions{Text: *s}
}

// resolveTooltip only emits a block to switch tooltips off; on is the
// library default.
func resolveTooltip(t StoredToggle) *ToggleOptions {
	if t.Enabled.Disabled() {
		return &ToggleOptions{Enabled: false}
	}
	return nil
}

func resolveMapNavigation(n StoredMapNavigation) *MapNavigationOptions {
	if !n.Enabled.Truthy() {
		return nil
	}
	nav := &MapNavigationOptions{Enabled: true}
	if n.ButtonOptions != nil {
		nav.ButtonOptions = &ButtonOptions{VerticalAlign: n.ButtonOptions.VerticalAlign}
	}
	return nav
}

func resolveLegend(l StoredLegend) LegendOptions {
	if !l.Enabled.Truthy() {
		return LegendOptions{Enabled: false}
	}

	legend := LegendOptions{
		Enabled:       true,
		Ranges:        string(l.Ranges),
		Align:         l.Align,
		VerticalAlign: l.VerticalAlign,
		Layout:        l.Layout,
	}
	if l.Title != nil {
		legend.Title = resolveText(l.Title.Text)
	}
	return legend
}

func resolveCredits(c StoredCredits) Credits {
	if !c.Enabled.Truthy() {
		return Credits{}
	}

	block := &CreditsOptions{
		Enabled: true,
		Text:    c.Text,
		Href:    c.Href,
	}
	if c.Position != nil {
		block.Position = &PositionOptions{Align: c.Position.Align}
	}
	return Credits{Block: block}
}

func resolveColorAxis(c StoredColorAxis) ColorAxisOptions {
	axis := ColorAxisOptions{
		MinColor: c.MinColor,
		MaxColor: c.MaxColor,
	}
	if v, ok := axisBound(c.Min); ok {
		axis.Min = v
	}
	if v, ok := axisBound(c.Max); ok {
		axis.Max = &v
	}
	return axis
}

func resolveSeries(s StoredSeries, mapType maptype.Descriptor) SeriesOptions {
	series := SeriesOptions{
		JoinBy: [2]string{mapType.JoinKey, LibraryJoinProperty},
	}
	if s.Name != nil {
		series.Name = *s.Name
	}
	if s.Color != nil && *s.Color != "" {
		series.States = &SeriesStates{Hover: HoverState{Color: *s.Color}}
	}
	if s.DataLabels.Enabled.Set {
		series.DataLabels = &DataLabelsOptions{Enabled: s.DataLabels.Enabled.Value}
	}
	return series
}
