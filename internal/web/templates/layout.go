// Package templates renders the HTML pages of the map server.
package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// HighmapsScript is the charting library the map page loads.
const HighmapsScript = "https://code.highcharts.com/maps/highmaps.js"

// Layout wraps body in the shared page chrome.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1"><title>`+
			templ.EscapeString(title)+`</title><link rel="stylesheet" href="/static/mapfield.css"></head><body><main>`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}
