package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/mapfield/internal/core"
	"github.com/JonMunkholm/mapfield/internal/maptype"
	"github.com/a-h/templ"
)

// RenderCallScriptID is the element ID of the embedded render call.
const RenderCallScriptID = "map-render-call"

// Index lists saved maps and the map types they can use.
func Index(maps []core.MapField, types []maptype.Descriptor) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<h1>Maps</h1>`)

		if len(maps) == 0 {
			b.WriteString(`<p class="empty">No maps saved yet.</p>`)
		} else {
			b.WriteString(`<ul class="maps">`)
			for _, m := range maps {
				fmt.Fprintf(&b, `<li><a href="%s">%s</a> <small>updated %s</small></li>`,
					templ.EscapeString(string(templ.URL("/maps/"+m.ID))),
					templ.EscapeString(m.Name),
					m.UpdatedAt.Format("2006-01-02 15:04"))
			}
			b.WriteString(`</ul>`)
		}

		b.WriteString(`<h2>Map types</h2><table class="maptypes"><thead><tr><th>Map</th><th>Join key</th><th>Example</th></tr></thead><tbody>`)
		for _, d := range types {
			fmt.Fprintf(&b, `<tr><td>%s</td><td><code>%s</code></td><td>`,
				templ.EscapeString(d.Label), templ.EscapeString(d.JoinKey))
			if d.ExampleDataset != "" {
				fmt.Fprintf(&b, `<a href="%s">%s</a>`,
					templ.EscapeString(string(templ.URL("/api/maptypes/"+d.ID+"/example"))),
					templ.EscapeString(d.ExampleDataset))
			}
			b.WriteString(`</td></tr>`)
		}
		b.WriteString(`</tbody></table>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
	return Layout("Maps", body)
}

// MapPage renders one saved map. call is the serialized render call; the
// bootstrap script reads it and draws into the mount point.
func MapPage(field core.MapField, mountPoint string, call json.RawMessage) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<h1>%s</h1><div id="%s" class="map"></div>`,
			templ.EscapeString(field.Name), templ.EscapeString(mountPoint)); err != nil {
			return err
		}
		if err := templ.JSONScript(RenderCallScriptID, call).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `<script src="`+HighmapsScript+`"></script><script src="/static/mapfield.js"></script>`)
		return err
	})
	return Layout(field.Name, body)
}

// ErrorPage shows a mapped error to a browser.
func ErrorPage(msg core.UserMessage, status int) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="error" role="alert"><h1>%d</h1><p>%s</p><p>%s</p><p><small>Code: %s</small></p></div>`,
			status, templ.EscapeString(msg.Message), templ.EscapeString(msg.Action), templ.EscapeString(msg.Code))
		return err
	})
	return Layout("Error", body)
}
