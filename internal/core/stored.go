package core

// stored.go models the author-editable map document as it is persisted.
//
// The document comes from a form, so values arrive loosely typed:
//   - Checkboxes may be true/false, 0/1, or the strings "0"/"1"
//   - Number inputs may be numbers or strings, with "" for "left empty"
//
// Flag, LooseString and LooseInt normalize these at decode time so the
// resolver only ever sees explicit values.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/mapfield/internal/maptype"
)

// StoredMapConfig is the partial map document. Only Chart.Map is required.
type StoredMapConfig struct {
	Title         *string             `json:"title,omitempty"`
	Subtitle      *string             `json:"subtitle,omitempty"`
	Tooltip       StoredToggle        `json:"tooltip"`
	Chart         StoredChart         `json:"chart"`
	Series        StoredSeries        `json:"series"`
	MapNavigation StoredMapNavigation `json:"mapNavigation"`
	ColorAxis     StoredColorAxis     `json:"colorAxis"`
	Legend        StoredLegend        `json:"legend"`
	Credits       StoredCredits       `json:"credits"`
}

// StoredToggle is a section that only carries an enabled checkbox.
type StoredToggle struct {
	Enabled Flag `json:"enabled"`
}

// StoredChart holds the chosen outline and optional height.
type StoredChart struct {
	Map    string      `json:"map"`
	Height LooseString `json:"height"`
}

// StoredSeries holds the raw dataset and how to read it.
type StoredSeries struct {
	Data        LooseString  `json:"data"`
	Delimiter   *string      `json:"delimiter,omitempty"`
	KeyColumn   LooseInt     `json:"key_column"`
	ValueColumn LooseInt     `json:"value_column"`
	Name        *string      `json:"name,omitempty"`
	Color       *string      `json:"color,omitempty"`
	DataLabels  StoredToggle `json:"dataLabels"`
}

// UnmarshalJSON accepts both key_column and keyColumn spellings.
func (s *StoredSeries) UnmarshalJSON(data []byte) error {
	type plain StoredSeries
	var aux struct {
		plain
		KeyColumnCamel   LooseInt `json:"keyColumn"`
		ValueColumnCamel LooseInt `json:"valueColumn"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*s = StoredSeries(aux.plain)
	if s.KeyColumn == 0 {
		s.KeyColumn = aux.KeyColumnCamel
	}
	if s.ValueColumn == 0 {
		s.ValueColumn = aux.ValueColumnCamel
	}
	return nil
}

// StoredMapNavigation holds the zoom/pan button settings.
type StoredMapNavigation struct {
	Enabled       Flag                 `json:"enabled"`
	ButtonOptions *StoredButtonOptions `json:"buttonOptions,omitempty"`
}

// StoredButtonOptions positions the navigation buttons.
type StoredButtonOptions struct {
	VerticalAlign *string `json:"verticalAlign,omitempty"`
}

// StoredColorAxis holds the colour gradient bounds.
type StoredColorAxis struct {
	MinColor *string    `json:"minColor,omitempty"`
	MaxColor *string    `json:"maxColor,omitempty"`
	Min      LooseString `json:"min"`
	Max      LooseString `json:"max"`
}

// StoredLegend holds the legend box settings and the raw ranges text.
type StoredLegend struct {
	Enabled       Flag        `json:"enabled"`
	Title         *StoredText `json:"title,omitempty"`
	Ranges        LooseString `json:"ranges"`
	Align         *string     `json:"align,omitempty"`
	VerticalAlign *string     `json:"verticalAlign,omitempty"`
	Layout        *string     `json:"layout,omitempty"`
}

// StoredText is a {text: ...} block.
type StoredText struct {
	Text *string `json:"text,omitempty"`
}

// StoredCredits holds the credits label settings.
type StoredCredits struct {
	Enabled  Flag            `json:"enabled"`
	Text     *string         `json:"text,omitempty"`
	Href     *string         `json:"href,omitempty"`
	Position *StoredPosition `json:"position,omitempty"`
}

// StoredPosition aligns the credits label.
type StoredPosition struct {
	Align *string `json:"align,omitempty"`
}

// DecodeStoredConfig parses the persisted JSON text.
func DecodeStoredConfig(data []byte) (StoredMapConfig, error) {
	var cfg StoredMapConfig

	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, fmt.Errorf("%w: empty document", ErrInvalidConfig)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// DatasetOptions returns the parser settings stored with the dataset.
// maxRows is an operational guard (0 = unlimited).
func (c StoredMapConfig) DatasetOptions(maxRows int) DatasetOptions {
	opts := DatasetOptions{
		KeyColumn:   int(c.Series.KeyColumn),
		ValueColumn: int(c.Series.ValueColumn),
		MaxRows:     maxRows,
	}
	if c.Series.Delimiter != nil {
		opts.Delimiter = *c.Series.Delimiter
	}
	return opts
}

// Validate checks the document the way the authoring form does before saving.
// Returns an error describing all validation failures.
func (c StoredMapConfig) Validate(reg *maptype.Registry) error {
	var errs []string

	mapID := strings.TrimSpace(c.Chart.Map)
	if mapID == "" {
		errs = append(errs, "chart.map is required")
	} else if _, ok := reg.Get(mapID); !ok {
		errs = append(errs, fmt.Sprintf("chart.map %q is not a known map type", mapID))
	}

	if c.Series.KeyColumn < 0 {
		errs = append(errs, "key column must be 1 or greater")
	}
	if c.Series.ValueColumn < 0 {
		errs = append(errs, "value column must be 1 or greater")
	}
	if c.Series.KeyColumn != 0 && c.Series.KeyColumn == c.Series.ValueColumn {
		errs = append(errs, "Key and value column cannot be the same")
	}

	if c.Series.Delimiter != nil {
		if _, err := datasetDelimiter(*c.Series.Delimiter); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}
	return nil
}

// DefaultStoredConfig returns the values the authoring form starts with.
func DefaultStoredConfig() StoredMapConfig {
	return StoredMapConfig{
		Title:    ptr(""),
		Subtitle: ptr(""),
		Tooltip:  StoredToggle{Enabled: BoolFlag(true)},
		Chart:    StoredChart{Map: maptype.DefaultMapType},
		Series: StoredSeries{
			Delimiter:   ptr(","),
			KeyColumn:   1,
			ValueColumn: 2,
			Name:        ptr(""),
			Color:       ptr("#BADA55"),
			DataLabels:  StoredToggle{Enabled: BoolFlag(true)},
		},
		MapNavigation: StoredMapNavigation{
			Enabled:       BoolFlag(true),
			ButtonOptions: &StoredButtonOptions{VerticalAlign: ptr("bottom")},
		},
		ColorAxis: StoredColorAxis{
			MinColor: ptr("#e6ebf5"),
			MaxColor: ptr("#003399"),
		},
		Legend: StoredLegend{
			Enabled:       BoolFlag(true),
			Title:         &StoredText{Text: ptr("")},
			Align:         ptr("center"),
			VerticalAlign: ptr("bottom"),
			Layout:        ptr("horizontal"),
		},
		Credits: StoredCredits{
			Enabled:  BoolFlag(true),
			Text:     ptr("Copyright (c) 2020 Highsoft AS"),
			Href:     ptr("http://highcharts.com"),
			Position: &StoredPosition{Align: ptr("right")},
		},
	}
}

// ----------------------------------------------------------------------------
// Loose scalar types
// ----------------------------------------------------------------------------

// Flag is a checkbox value. Set is false when the key was absent or null.
type Flag struct {
	Set   bool
	Value bool
}

// BoolFlag returns a present flag with the given value.
func BoolFlag(v bool) Flag {
	return Flag{Set: true, Value: v}
}

// Truthy reports whether the flag is present and on.
func (f Flag) Truthy() bool {
	return f.Set && f.Value
}

// Disabled reports whether the flag is present and explicitly off.
func (f Flag) Disabled() bool {
	return f.Set && !f.Value
}

// UnmarshalJSON accepts booleans, numbers and strings.
func (f *Flag) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))

	switch {
	case raw == "null":
		*f = Flag{}
	case raw == "true" || raw == "false":
		*f = BoolFlag(raw == "true")
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = BoolFlag(ParseFlag(s))
	default:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid flag value %s", raw)
		}
		*f = BoolFlag(n != 0)
	}
	return nil
}

// MarshalJSON writes the flag as a boolean, or null when absent.
func (f Flag) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// ParseFlag converts a form string to a boolean.
// "", "0", "false", "f", "no", "n" and "off" are false; anything else is true.
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "f", "no", "n", "off":
		return false
	default:
		return true
	}
}

// LooseString is a string that may have been stored as a JSON number.
// null and absent both decode to "".
type LooseString string

// UnmarshalJSON accepts strings, numbers and null.
func (s *LooseString) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))

	switch {
	case raw == "null":
		*s = ""
	case strings.HasPrefix(raw, `"`):
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = LooseString(v)
	default:
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return fmt.Errorf("invalid value %s: expected string or number", raw)
		}
		*s = LooseString(raw)
	}
	return nil
}

// LooseInt is an integer that may have been stored as a string.
// "" and null decode to 0.
type LooseInt int

// UnmarshalJSON accepts integers, numeric strings, "" and null.
func (n *LooseInt) UnmarshalJSON(data []byte) error {
	var s LooseString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}

	v := strings.TrimSpace(string(s))
	if v == "" {
		*n = 0
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != float64(int(f)) {
			return fmt.Errorf("invalid integer %q", v)
		}
		i = int(f)
	}
	*n = LooseInt(i)
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
