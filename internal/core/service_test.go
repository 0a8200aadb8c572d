package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/mapfield/internal/maptype"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

type memStore struct {
	mu     sync.Mutex
	fields map[string]MapField
	next   int
}

func newMemStore() *memStore {
	return &memStore{fields: make(map[string]MapField)}
}

func (m *memStore) CreateMapField(_ context.Context, name, configJSON string) (MapField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	now := time.Unix(int64(m.next), 0)
	f := MapField{ID: fmt.Sprint(m.next), Name: name, ConfigJSON: configJSON, CreatedAt: now, UpdatedAt: now}
	m.fields[f.ID] = f
	return f, nil
}

func (m *memStore) GetMapField(_ context.Context, id string) (MapField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.fields[id]
	if !ok {
		return MapField{}, ErrMapNotFound
	}
	return f, nil
}

func (m *memStore) ListMapFields(context.Context) ([]MapField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MapField, 0, len(m.fields))
	for _, f := range m.fields {
		out = append(out, f)
	}
	return out, nil
}

func (m *memStore) UpdateMapField(_ context.Context, id, name, configJSON string) (MapField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.fields[id]
	if !ok {
		return MapField{}, ErrMapNotFound
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
		return ErrMapNotFound
	}
	delete(m.fields, id)
	return nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
	degraded int
	hits     int
	misses   int
	imports  []string
}

func (o *recordingObserver) RenderFinished(outcome string, _ int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) RangesDegraded() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.degraded++
}

func (o *recordingObserver) CacheLookup(hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func (o *recordingObserver) ImportFinished(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.imports = append(o.imports, outcome)
}

func newTestService(t *testing.T) (*Service, *recordingObserver) {
	t.Helper()
	obs := &recordingObserver{}
	svc := NewService(maptype.Default(), ServiceOptions{
		Store:          newMemStore(),
		Cache:          &memCache{data: make(map[string][]byte)},
		Observer:       obs,
		MountPoint:     "field_map_1",
		MaxDatasetRows: 100,
	})
	return svc, obs
}

func TestService_RenderJSON(t *testing.T) {
	svc, obs := newTestService(t)

	doc := `{"chart":{"map":"hc-nl-provinces"},"series":{"data":"nl-fr,12\nnl-gr,7"},
		"legend":{"enabled":"1","ranges":"5,5-10,10"}}`
	call, err := svc.RenderJSON(context.Background(), []byte(doc))
	if err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}

	if call.MountPoint != "field_map_1" {
		t.Errorf("MountPoint = %q", call.MountPoint)
	}
	if n := len(call.Options.Series[0].Data); n != 2 {
		t.Errorf("rows = %d, want 2", n)
	}
	if n := len(call.Options.ColorAxis.DataClasses); n != 3 {
		t.Errorf("dataClasses = %d, want 3", n)
	}
	if len(obs.outcomes) != 1 || obs.outcomes[0] != "ok" {
		t.Errorf("outcomes = %v", obs.outcomes)
	}
}

func TestService_Render_MalformedRangesDegrade(t *testing.T) {
	svc, obs := newTestService(t)

	doc := `{"chart":{"map":"hc-world"},"series":{"data":"nl,1"},"legend":{"enabled":1,"ranges":"10,ten-20,20"}}`
	call, err := svc.RenderJSON(context.Background(), []byte(doc))
	if err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}

	if call.Options.ColorAxis.DataClasses != nil {
		t.Errorf("dataClasses = %v, want none", call.Options.ColorAxis.DataClasses)
	}
	if obs.degraded != 1 {
		t.Errorf("degraded = %d, want 1", obs.degraded)
	}
}

func TestService_Render_RangesIgnoredWhenLegendDisabled(t *testing.T) {
	svc, obs := newTestService(t)

	doc := `{"chart":{"map":"hc-world"},"legend":{"enabled":"0","ranges":"garbage"}}`
	call, err := svc.RenderJSON(context.Background(), []byte(doc))
	if err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}
	if call.Options.ColorAxis.DataClasses != nil || obs.degraded != 0 {
		t.Error("ranges should not be classified for a disabled legend")
	}
}

func TestService_Render_Errors(t *testing.T) {
	svc, obs := newTestService(t)

	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"not json", `nope`, ErrInvalidConfig},
		{"no map", `{"series":{"data":"A,1"}}`, ErrMissingMapType},
		{"short row", `{"chart":{"map":"hc-world"},"series":{"data":"A"}}`, ErrColumnOutOfRange},
		{"bad delimiter", `{"chart":{"map":"hc-world"},"series":{"delimiter":"::"}}`, ErrInvalidDelimiter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RenderJSON(context.Background(), []byte(tt.doc))
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	want := []string{"CFG001", "MAP001", "DATA001", "DATA002"}
	if fmt.Sprint(obs.outcomes) != fmt.Sprint(want) {
		t.Errorf("outcomes = %v, want %v", obs.outcomes, want)
	}
}

func TestService_MapLifecycle(t *testing.T) {
	svc, obs := newTestService(t)
	ctx := context.Background()

	doc := []byte(`{
		"chart": {"map": "hc-world"},
		"series": {"data": "nl,5\nbe,6", "key_column": 1, "value_column": 2}
	}`)

	field, err := svc.CreateMap(ctx, "  Population  ", doc)
	if err != nil {
		t.Fatalf("CreateMap: %v", err)
	}
	if field.Name != "Population" {
		t.Errorf("Name = %q", field.Name)
	}
	if bytes.ContainsAny([]byte(field.ConfigJSON), "\n\t") {
		t.Errorf("stored JSON not compact: %q", field.ConfigJSON)
	}

	first, _, err := svc.RenderMap(ctx, field.ID)
	if err != nil {
		t.Fatalf("RenderMap: %v", err)
	}
	second, _, err := svc.RenderMap(ctx, field.ID)
	if err != nil {
		t.Fatalf("RenderMap (cached): %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("cached render differs")
	}
	if obs.misses != 1 || obs.hits != 1 {
		t.Errorf("cache misses/hits = %d/%d, want 1/1", obs.misses, obs.hits)
	}

	var call struct {
		Options struct {
			Series []struct {
				Data [][2]any `json:"data"`
			} `json:"series"`
		} `json:"options"`
	}
	if err := json.Unmarshal(first, &call); err != nil {
		t.Fatalf("render JSON: %v", err)
	}
	if len(call.Options.Series) != 1 || len(call.Options.Series[0].Data) != 2 {
		t.Errorf("rendered series = %+v", call.Options.Series)
	}

	updated, err := svc.UpdateMap(ctx, field.ID, "Population", []byte(`{"chart":{"map":"hc-world"},"series":{"data":"nl,1"}}`))
	if err != nil {
		t.Fatalf("UpdateMap: %v", err)
	}
	if RenderCacheKey(updated) == RenderCacheKey(field) {
		t.Error("cache key should change after an update")
	}

	if err := svc.DeleteMap(ctx, field.ID); err != nil {
		t.Fatalf("DeleteMap: %v", err)
	}
	if _, _, err := svc.RenderMap(ctx, field.ID); !errors.Is(err, ErrMapNotFound) {
		t.Errorf("RenderMap after delete error = %v, want ErrMapNotFound", err)
	}
}

func TestService_CreateMap_Validates(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateMap(context.Background(), "x", []byte(`{"chart":{"map":"hc-world"},"series":{"key_column":2,"value_column":2}}`))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestService_NoStore(t *testing.T) {
	svc := NewService(maptype.Default(), ServiceOptions{})

	if _, err := svc.ListMaps(context.Background()); !errors.Is(err, ErrNoStore) {
		t.Errorf("ListMaps error = %v, want ErrNoStore", err)
	}
	if _, _, err := svc.RenderMap(context.Background(), "1"); !errors.Is(err, ErrNoStore) {
		t.Errorf("RenderMap error = %v, want ErrNoStore", err)
	}
}

func TestService_ExampleDataset(t *testing.T) {
	svc, _ := newTestService(t)

	desc, data, err := svc.ExampleDataset("rivm-nl-provinces.example.csv")
	if err != nil {
		t.Fatalf("ExampleDataset: %v", err)
	}
	if desc.ID != "rivm-nl-provinces" || len(data) == 0 {
		t.Errorf("ExampleDataset = %q, %d bytes", desc.ID, len(data))
	}

	if _, _, err := svc.ExampleDataset("../secrets.csv"); !errors.Is(err, maptype.ErrNoExampleDataset) {
		t.Errorf("error = %v, want ErrNoExampleDataset", err)
	}
}

func TestService_MapTypeExample(t *testing.T) {
	svc, _ := newTestService(t)

	desc, data, err := svc.MapTypeExample("hc-world")
	if err != nil {
		t.Fatalf("MapTypeExample: %v", err)
	}
	if desc.ExampleDataset != "hc-world.example.csv" || len(data) == 0 {
		t.Errorf("MapTypeExample = %q, %d bytes", desc.ExampleDataset, len(data))
	}

	// Both lookups serve the same bytes.
	_, byFile, err := svc.ExampleDataset(desc.ExampleDataset)
	if err != nil || !bytes.Equal(byFile, data) {
		t.Errorf("ExampleDataset(%q) differs: %v", desc.ExampleDataset, err)
	}

	if _, _, err := svc.MapTypeExample("hc-mars"); !errors.Is(err, maptype.ErrUnknownMapType) {
		t.Errorf("error = %v, want ErrUnknownMapType", err)
	}
}

func TestService_ImportWorkbook(t *testing.T) {
	svc, obs := newTestService(t)

	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "nl-fr")
	f.SetCellValue("Sheet1", "B1", 4)
	path := filepath.Join(t.TempDir(), "import.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	res, err := svc.ImportWorkbook(context.Background(), bytes.NewReader(data), ImportOptions{Delimiter: `\t`})
	if err != nil {
		t.Fatalf("ImportWorkbook: %v", err)
	}
	if res.Data != "nl-fr\t4\n" {
		t.Errorf("Data = %q", res.Data)
	}
	if _, err := uuid.Parse(res.ID); err != nil {
		t.Errorf("ID = %q, want a UUID", res.ID)
	}

	// The imported text parses with the same delimiter setting.
	rows, err := ParseDataset(res.Data, DatasetOptions{Delimiter: `\t`})
	if err != nil || len(rows) != 1 || rows[0] != (DatasetRow{"nl-fr", 4}) {
		t.Errorf("ParseDataset(import) = %v, %v", rows, err)
	}

	if _, err := svc.ImportWorkbook(context.Background(), bytes.NewReader([]byte("x")), ImportOptions{}); err == nil {
		t.Error("expected error for a non-workbook")
	}
	if fmt.Sprint(obs.imports) != "[ok IMP001]" {
		t.Errorf("imports = %v", obs.imports)
	}
	if svc.Limiter().ActiveCount() != 0 {
		t.Error("import slot not released")
	}
}
