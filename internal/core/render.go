package core

import (
	"fmt"

	"github.com/JonMunkholm/mapfield/internal/maptype"
)

// DefaultMountPoint is the element ID the page bootstrap renders into.
const DefaultMountPoint = "map_container"

// RenderCall is everything the page needs to draw one map.
type RenderCall struct {
	MountPoint string         `json:"mountPoint"`
	MapType    MapTypeRef     `json:"mapType"`
	Formatter  PointFormatter `json:"formatter"`
	Options    MapOptions     `json:"options"`
}

// MapTypeRef identifies the outline to load and how to join it.
type MapTypeRef struct {
	ID         string `json:"id"`
	ResourceID string `json:"resourceId"`
	JoinKey    string `json:"joinKey"`
}

// MapOptions is the options tree handed to the map library.
type MapOptions struct {
	Chart         ChartOptions          `json:"chart"`
	Title         *TextOptions          `json:"title,omitempty"`
	Subtitle      *TextOptions          `json:"subtitle,omitempty"`
	ColorAxis     ColorAxisOptions      `json:"colorAxis"`
	Series        []SeriesOptions       `json:"series"`
	MapNavigation *MapNavigationOptions `json:"mapNavigation,omitempty"`
	Legend        LegendOptions         `json:"legend"`
	Tooltip       *ToggleOptions        `json:"tooltip,omitempty"`
	Credits       Credits               `json:"credits"`
}

// BuildRenderCall combines a resolved config, parsed rows and legend classes.
// resolved is not modified.
func BuildRenderCall(resolved *ResolvedConfig, rows []DatasetRow, ranges []ColorRange, mapType maptype.Descriptor) RenderCall {
	series := resolved.Series
	series.Data = make([]DatasetRow, len(rows))
	copy(series.Data, rows)

	axis := resolved.ColorAxis
	axis.DataClasses = nil
	if len(ranges) > 0 {
		axis.DataClasses = make([]ColorRange, len(ranges))
		copy(axis.DataClasses, ranges)
	}

	return RenderCall{
		MountPoint: DefaultMountPoint,
		MapType: MapTypeRef{
			ID:         mapType.ID,
			ResourceID: mapType.ResourceID,
			JoinKey:    mapType.JoinKey,
		},
		Formatter: PointFormatter{NameField: mapType.NameField},
		Options: MapOptions{
			Chart:         resolved.Chart,
			Title:         resolved.Title,
			Subtitle:      resolved.Subtitle,
			ColorAxis:     axis,
			Series:        []SeriesOptions{series},
			MapNavigation: resolved.MapNavigation,
			Legend:        resolved.Legend,
			Tooltip:       resolved.Tooltip,
			Credits:       resolved.Credits,
		},
	}
}

// PointFormatter labels a region by one of its feature properties. The
// property name differs per outline, so it travels with the render call.
type PointFormatter struct {
	NameField string `json:"nameField"`
}

// LookupProperty returns props[key]. A missing or null property is not found.
func LookupProperty(props map[string]any, key string) (any, bool) {
	if props == nil || key == "" {
		return nil, false
	}
	v, ok := props[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// DataLabel returns the region label, or false when the feature has no name.
func (f PointFormatter) DataLabel(props map[string]any) (string, bool) {
	v, ok := LookupProperty(props, f.NameField)
	if !ok {
		return "", false
	}
	if n, isNum := v.(float64); isNum {
		return FormatNumber(n), true
	}
	return fmt.Sprint(v), true
}

// Tooltip returns "<name>: <value>", or just the value for an unnamed region.
func (f PointFormatter) Tooltip(props map[string]any, value float64) string {
	name, ok := f.DataLabel(props)
	if !ok {
		return FormatNumber(value)
	}
	return name + ": " + FormatNumber(value)
}
