package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/mapfield/internal/config"
	"github.com/JonMunkholm/mapfield/internal/core"
	"github.com/JonMunkholm/mapfield/internal/maptype"
	"github.com/xuri/excelize/v2"
)

type memStore struct {
	mu     sync.Mutex
	fields map[string]core.MapField
	next   int
}

func (m *memStore) CreateMapField(_ context.Context, name, configJSON string) (core.MapField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	now := time.Unix(int64(m.next), 0)
	f := core.MapField{ID: fmt.Sprint(m.next), Name: name, ConfigJSON: configJSON, CreatedAt: now, UpdatedAt: now}
	m.fields[f.ID] = f
	return f, nil
}

func (m *memStore) GetMapField(_ context.Context, id string) (core.MapField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.fields[id]
	if !ok {
		return core.MapField{}, core.ErrMapNotFound
	}
	return f, nil
}

func (m *memStore) ListMapFields(context.Context) ([]core.MapField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.MapField, 0, len(m.fields))
	for _, f := range m.fields {
		out = append(out, f)
	}
	return out, nil
}

func (m *memStore) UpdateMapField(_ context.Context, id, name, configJSON string) (core.MapField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.fields[id]
	if !ok {
		return core.MapField{}, core.ErrMapNotFound
	}
	m.next++
	f.Name, f.ConfigJSON, f.UpdatedAt = name, configJSON, time.Unix(int64(m.next), 0)
	m.fields[id] = f
	return f, nil
}

func (m *memStore) DeleteMapField(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.fields[id]; !ok {
		return core.ErrMapNotFound
	}
	delete(m.fields, id)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, RequestTimeout: 5 * time.Second},
		Render:   config.RenderConfig{MaxDatasetBytes: 1 << 20, MaxDatasetRows: 1000, MountPoint: "map_container"},
		Import:   config.ImportConfig{MaxFileSize: 1 << 20, MaxConcurrent: 2, MaxWaitTime: time.Second},
		Security: config.SecurityConfig{EnableCSP: true},
		Logging:  config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	svc := core.NewService(maptype.Default(), core.ServiceOptions{
		Store:           &memStore{fields: map[string]core.MapField{}},
		MountPoint:      cfg.Render.MountPoint,
		MaxDatasetBytes: cfg.Render.MaxDatasetBytes,
		MaxDatasetRows:  cfg.Render.MaxDatasetRows,
	})
	s := NewServer(svc, cfg)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, target string, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func TestRender(t *testing.T) {
	s := newTestServer(t, testConfig())

	doc := `{"chart":{"map":"hc-nl-provinces"},"series":{"data":"nl-fr,12\nnl-gr,25"},"legend":{"enabled":"1","ranges":"10,10-20,20"}}`
	rec := do(t, s, http.MethodPost, "/api/render", doc)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	call := decodeBody[core.RenderCall](t, rec)
	if call.MountPoint != "map_container" || call.MapType.JoinKey != "hc-key" {
		t.Errorf("call = %+v", call)
	}
	if len(call.Options.Series[0].Data) != 2 || len(call.Options.ColorAxis.DataClasses) != 3 {
		t.Errorf("series/dataClasses = %+v / %+v", call.Options.Series[0].Data, call.Options.ColorAxis.DataClasses)
	}
}

func TestRender_Errors(t *testing.T) {
	s := newTestServer(t, testConfig())

	tests := []struct {
		name   string
		doc    string
		status int
		code   string
	}{
		{"not json", `{`, http.StatusBadRequest, "CFG001"},
		{"missing map", `{"chart":{}}`, http.StatusBadRequest, "MAP001"},
		{"unknown map", `{"chart":{"map":"hc-mars"}}`, http.StatusBadRequest, "MAP001"},
		{"short row", `{"chart":{"map":"hc-world"},"series":{"data":"a,1\nb","value_column":2}}`, http.StatusBadRequest, "DATA001"},
		{"bad delimiter", `{"chart":{"map":"hc-world"},"series":{"data":"a,1","delimiter":"::"}}`, http.StatusBadRequest, "DATA002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/render", tt.doc)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			resp := decodeBody[ErrorResponse](t, rec)
			if resp.Code != tt.code || resp.Detail == "" {
				t.Errorf("response = %+v, want code %s with detail", resp, tt.code)
			}
		})
	}
}

func TestRanges(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodPost, "/api/ranges", "100,100-200,200")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"dataClasses":[{"to":100},{"from":100,"to":200},{"from":200}]}` {
		t.Errorf("body = %s", got)
	}

	rec = do(t, s, http.MethodPost, "/api/ranges", "")
	if got := strings.TrimSpace(rec.Body.String()); got != `{"dataClasses":[]}` {
		t.Errorf("blank body = %s", got)
	}

	rec = do(t, s, http.MethodPost, "/api/ranges", "1,x-2,3")
	if rec.Code != http.StatusBadRequest || decodeBody[ErrorResponse](t, rec).Code != "RNG001" {
		t.Errorf("malformed = %d %s", rec.Code, rec.Body.String())
	}
}

func TestMapLifecycle(t *testing.T) {
	s := newTestServer(t, testConfig())

	create := `{"name":"Provincies","config":{"chart":{"map":"hc-nl-provinces"},"series":{"data":"nl-fr,1"}}}`
	rec := do(t, s, http.MethodPost, "/api/maps", create)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[mapFieldResponse](t, rec)
	if rec.Header().Get("Location") != "/api/maps/"+created.ID {
		t.Errorf("Location = %q", rec.Header().Get("Location"))
	}

	rec = do(t, s, http.MethodGet, "/api/maps/"+created.ID+"/render", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"nl-fr"`) {
		t.Fatalf("render = %d %s", rec.Code, rec.Body.String())
	}

	// Config given as a string holding the document.
	update := `{"name":"Gemeenten","config":"{\"chart\":{\"map\":\"hc-nl-municipalities\"}}"}`
	rec = do(t, s, http.MethodPut, "/api/maps/"+created.ID, update)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[mapFieldResponse](t, rec); got.Name != "Gemeenten" || !strings.Contains(string(got.Config), "hc-nl-municipalities") {
		t.Errorf("updated = %+v", got)
	}

	rec = do(t, s, http.MethodGet, "/api/maps", "")
	if list := decodeBody[[]mapFieldResponse](t, rec); len(list) != 1 {
		t.Errorf("list = %+v", list)
	}

	rec = do(t, s, http.MethodGet, "/maps/"+created.ID, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `id="map_container"`) {
		t.Errorf("map page = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodDelete, "/api/maps/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/api/maps/"+created.ID, "")
	if rec.Code != http.StatusNotFound || decodeBody[ErrorResponse](t, rec).Code != "MAP404" {
		t.Errorf("get after delete = %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateMap_Invalid(t *testing.T) {
	s := newTestServer(t, testConfig())

	tests := []struct {
		name string
		body string
		code string
	}{
		{"no config", `{"name":"x"}`, "CFG001"},
		{"same columns", `{"name":"x","config":{"chart":{"map":"hc-world"},"series":{"key_column":2,"value_column":2}}}`, "CFG001"},
		{"bad body", `[`, "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/maps", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			if got := decodeBody[ErrorResponse](t, rec).Code; got != tt.code {
				t.Errorf("code = %s, want %s", got, tt.code)
			}
		})
	}
}

func TestMapPage_NotFoundIsHTML(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodGet, "/maps/404", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") || !strings.Contains(rec.Body.String(), "MAP404") {
		t.Errorf("response = %s %s", rec.Header().Get("Content-Type"), rec.Body.String())
	}
}

func TestMapTypes(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodGet, "/api/maptypes", "")
	if all := decodeBody[[]maptype.Descriptor](t, rec); len(all) != len(maptype.Catalog()) {
		t.Errorf("maptypes = %d entries", len(all))
	}

	rec = do(t, s, http.MethodGet, "/api/maptypes?view=options", "")
	if opts := decodeBody[[]maptype.Option](t, rec); len(opts) == 0 || opts[0].Label == "" {
		t.Errorf("options = %+v", opts)
	}
}

func TestExampleDownloads(t *testing.T) {
	s := newTestServer(t, testConfig())

	tests := []struct {
		target string
		status int
	}{
		{"/api/maptypes/hc-world/example", http.StatusOK},
		{"/api/examples/hc-world.example.csv", http.StatusOK},
		{"/api/maptypes/hc-mars/example", http.StatusBadRequest},
		{"/api/examples/secrets.csv", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.target, "")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
				t.Errorf("Content-Type = %q", ct)
			}
			if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="hc-world.example.csv"` {
				t.Errorf("Content-Disposition = %q", cd)
			}
			if rec.Body.Len() == 0 {
				t.Error("empty example")
			}
		})
	}
}

func TestImportXLSX(t *testing.T) {
	s := newTestServer(t, testConfig())

	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "nl-fr")
	f.SetCellValue("Sheet1", "B1", 12)
	f.SetCellValue("Sheet1", "A2", "nl-gr")
	f.SetCellValue("Sheet1", "B2", 25)
	xlsx, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	f.Close()

	var body bytes.Buffer
	mp := multipart.NewWriter(&body)
	part, _ := mp.CreateFormFile("file", "data.xlsx")
	part.Write(xlsx.Bytes())
	mp.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import/xlsx?delimiter=;", &body)
	req.Header.Set("Content-Type", mp.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	res := decodeBody[struct {
		Sheet string `json:"sheet"`
		Rows  int    `json:"rows"`
		Data  string `json:"data"`
	}](t, rec)
	if res.Sheet != "Sheet1" || res.Rows != 2 || res.Data != "nl-fr;12\nnl-gr;25\n" {
		t.Errorf("result = %+v", res)
	}

	rec = do(t, s, http.MethodPost, "/api/import/xlsx", "", "Content-Type", "text/plain")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing form status = %d", rec.Code)
	}
}

func TestAPIKeyProtectsMutations(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	s := newTestServer(t, cfg)

	create := `{"name":"x","config":{"chart":{"map":"hc-world"}}}`
	if rec := do(t, s, http.MethodPost, "/api/maps", create); rec.Code != http.StatusUnauthorized {
		t.Errorf("without key = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/maps", create, "X-API-Key", "secret"); rec.Code != http.StatusCreated {
		t.Errorf("with key = %d", rec.Code)
	}
	// Rendering stays open.
	if rec := do(t, s, http.MethodPost, "/api/render", `{"chart":{"map":"hc-world"}}`); rec.Code != http.StatusOK {
		t.Errorf("render = %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, ImportLimit: 1}
	s := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		if rec := do(t, s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i, rec.Code)
		}
	}
	rec := do(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Errorf("third request = %d", rec.Code)
	}
}

func TestSecurityHeadersAndHealth(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("Content-Security-Policy") == "" {
		t.Errorf("headers = %v", rec.Header())
	}
	health := decodeBody[map[string]any](t, rec)
	if health["status"] != "ok" {
		t.Errorf("health = %v", health)
	}
}

func TestIndexAndStatic(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Map types") {
		t.Errorf("index = %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/static/mapfield.js", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "map-render-call") {
		t.Errorf("static = %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrMapNotFound, http.StatusNotFound},
		{core.ErrTooManyImports, http.StatusServiceUnavailable},
		{fmt.Errorf("x: %w", core.ErrDatasetTooLarge), http.StatusRequestEntityTooLarge},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
