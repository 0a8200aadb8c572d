package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/mapfield/internal/importer"
	"github.com/JonMunkholm/mapfield/internal/logging"
	"github.com/JonMunkholm/mapfield/internal/maptype"
	"github.com/google/uuid"
)

// ErrNoStore is returned by map field operations on a service built
// without storage (the CLI).
var ErrNoStore = errors.New("map storage is not configured")

// ServiceOptions wires optional collaborators and limits.
type ServiceOptions struct {
	Store    MapStore       // nil disables saved maps
	Cache    RenderCache    // nil disables render caching
	Observer RenderObserver // nil discards events
	Limiter  *ImportLimiter // nil uses defaults

	MountPoint      string // "" means DefaultMountPoint
	MaxDatasetBytes int64
	MaxDatasetRows  int
}

// Service runs the render pipeline and manages saved maps.
type Service struct {
	registry *maptype.Registry
	resolver *Resolver
	store    MapStore
	cache    RenderCache
	observer RenderObserver
	limiter  *ImportLimiter

	mountPoint string
	maxBytes   int64
	maxRows    int
}

// NewService creates a Service over reg.
func NewService(reg *maptype.Registry, opts ServiceOptions) *Service {
	s := &Service{
		registry:   reg,
		resolver:   NewResolver(reg),
		store:      opts.Store,
		cache:      opts.Cache,
		observer:   opts.Observer,
		limiter:    opts.Limiter,
		mountPoint: opts.MountPoint,
		maxBytes:   opts.MaxDatasetBytes,
		maxRows:    opts.MaxDatasetRows,
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.limiter == nil {
		s.limiter = NewImportLimiter(0, 0)
	}
	if s.mountPoint == "" {
		s.mountPoint = DefaultMountPoint
	}
	return s
}

// Registry returns the map type registry.
func (s *Service) Registry() *maptype.Registry {
	return s.registry
}

// Limiter returns the import limiter.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// MapTypeExample returns the bundled example CSV of a map type.
func (s *Service) MapTypeExample(id string) (maptype.Descriptor, []byte, error) {
	desc, err := s.registry.Lookup(id)
	if err != nil {
		return maptype.Descriptor{}, nil, err
	}
	data, err := maptype.ExampleDataset(desc)
	if err != nil {
		return maptype.Descriptor{}, nil, err
	}
	return desc, data, nil
}

// ExampleDataset returns the bundled example CSV with the given file name.
func (s *Service) ExampleDataset(fileName string) (maptype.Descriptor, []byte, error) {
	desc, ok := s.registry.ByExampleDataset(fileName)
	if !ok {
		return maptype.Descriptor{}, nil, fmt.Errorf("%w: %q", maptype.ErrNoExampleDataset, fileName)
	}
	data, err := maptype.ExampleDataset(desc)
	if err != nil {
		return maptype.Descriptor{}, nil, err
	}
	return desc, data, nil
}

// ----------------------------------------------------------------------------
// Render pipeline
// ----------------------------------------------------------------------------

// Render turns a stored document into a render call.
//
// Map type, dataset and delimiter problems fail the render. A malformed
// legend range only drops the legend classes and is logged.
func (s *Service) Render(ctx context.Context, stored StoredMapConfig) (*RenderCall, error) {
	start := time.Now()

	call, rows, err := s.render(ctx, stored)

	outcome := "ok"
	if err != nil {
		outcome = MapError(err).Code
	}
	s.observer.RenderFinished(outcome, rows, time.Since(start))

	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Debug("map rendered",
		"map_type", call.MapType.ID,
		"rows", rows,
		"data_classes", len(call.Options.ColorAxis.DataClasses),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return call, nil
}

// RenderJSON decodes a stored document and renders it.
func (s *Service) RenderJSON(ctx context.Context, doc []byte) (*RenderCall, error) {
	stored, err := DecodeStoredConfig(doc)
	if err != nil {
		s.observer.RenderFinished(MapError(err).Code, 0, 0)
		return nil, err
	}
	return s.Render(ctx, stored)
}

func (s *Service) render(ctx context.Context, stored StoredMapConfig) (*RenderCall, int, error) {
	resolved, mapType, err := s.resolver.Resolve(stored)
	if err != nil {
		return nil, 0, err
	}

	opts := stored.DatasetOptions(s.maxRows)
	opts.MaxBytes = s.maxBytes
	rows, err := ParseDataset(string(stored.Series.Data), opts)
	if err != nil {
		return nil, 0, err
	}

	var ranges []ColorRange
	if resolved.Legend.Enabled && strings.TrimSpace(resolved.Legend.Ranges) != "" {
		ranges, err = ClassifyRanges(resolved.Legend.Ranges)
		if err != nil {
			logging.FromContext(ctx).Warn("legend ranges ignored",
				"map_type", mapType.ID,
				"error", err,
			)
			s.observer.RangesDegraded()
			ranges = nil
		}
	}

	call := BuildRenderCall(resolved, rows, ranges, mapType)
	call.MountPoint = s.mountPoint
	return &call, len(rows), nil
}

// ----------------------------------------------------------------------------
// Saved maps
// ----------------------------------------------------------------------------

// CreateMap validates and saves a new map field.
func (s *Service) CreateMap(ctx context.Context, name string, doc []byte) (MapField, error) {
	if s.store == nil {
		return MapField{}, ErrNoStore
	}
	configJSON, err := s.checkDocument(doc)
	if err != nil {
		return MapField{}, err
	}

	field, err := s.store.CreateMapField(ctx, strings.TrimSpace(name), configJSON)
	if err != nil {
		return MapField{}, fmt.Errorf("create map: %w", err)
	}

	logging.WithFields(ctx, "map_id", field.ID).Info("map created", "name", field.Name)
	return field, nil
}

// UpdateMap validates and replaces a saved map field.
func (s *Service) UpdateMap(ctx context.Context, id, name string, doc []byte) (MapField, error) {
	if s.store == nil {
		return MapField{}, ErrNoStore
	}
	configJSON, err := s.checkDocument(doc)
	if err != nil {
		return MapField{}, err
	}

	field, err := s.store.UpdateMapField(ctx, id, strings.TrimSpace(name), configJSON)
	if err != nil {
		return MapField{}, fmt.Errorf("update map %s: %w", id, err)
	}

	logging.WithFields(ctx, "map_id", id).Info("map updated")
	return field, nil
}

// GetMap returns one saved map field.
func (s *Service) GetMap(ctx context.Context, id string) (MapField, error) {
	if s.store == nil {
		return MapField{}, ErrNoStore
	}
	field, err := s.store.GetMapField(ctx, id)
	if err != nil {
		return MapField{}, fmt.Errorf("get map %s: %w", id, err)
	}
	return field, nil
}

// ListMaps returns all saved map fields, newest first.
func (s *Service) ListMaps(ctx context.Context) ([]MapField, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	fields, err := s.store.ListMapFields(ctx)
	if err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	return fields, nil
}

// DeleteMap removes a saved map field.
func (s *Service) DeleteMap(ctx context.Context, id string) error {
	if s.store == nil {
		return ErrNoStore
	}
	if err := s.store.DeleteMapField(ctx, id); err != nil {
		return fmt.Errorf("delete map %s: %w", id, err)
	}
	logging.WithFields(ctx, "map_id", id).Info("map deleted")
	return nil
}

// RenderMap renders a saved map field and returns the render call as JSON.
//
// Results are cached under the field's ID and update time, so an edit
// never serves a stale render.
func (s *Service) RenderMap(ctx context.Context, id string) (json.RawMessage, MapField, error) {
	ctx = logging.WithMapID(ctx, id)

	field, err := s.GetMap(ctx, id)
	if err != nil {
		return nil, MapField{}, err
	}

	key := RenderCacheKey(field)
	if s.cache != nil {
		data, hit, err := s.cache.Get(ctx, key)
		if err != nil {
			logging.FromContext(ctx).Warn("render cache read failed", "error", err)
		}
		s.observer.CacheLookup(hit)
		if hit {
			return data, field, nil
		}
	}

	call, err := s.RenderJSON(ctx, []byte(field.ConfigJSON))
	if err != nil {
		return nil, field, err
	}

	data, err := json.Marshal(call)
	if err != nil {
		return nil, field, fmt.Errorf("encode render call: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, data); err != nil {
			logging.FromContext(ctx).Warn("render cache write failed", "error", err)
		}
	}
	return data, field, nil
}

// RenderCacheKey identifies one revision of a saved map.
func RenderCacheKey(field MapField) string {
	return fmt.Sprintf("render:%s:%d", field.ID, field.UpdatedAt.UnixNano())
}

// checkDocument decodes and validates doc, returning it as compact JSON.
func (s *Service) checkDocument(doc []byte) (string, error) {
	stored, err := DecodeStoredConfig(doc)
	if err != nil {
		return "", err
	}
	if err := stored.Validate(s.registry); err != nil {
		return "", err
	}

	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(json.RawMessage(doc)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// ----------------------------------------------------------------------------
// Spreadsheet import
// ----------------------------------------------------------------------------

// ImportOptions selects what to import from a workbook.
type ImportOptions struct {
	Sheet     string
	Delimiter string // Same rules as series.delimiter
}

// ImportWorkbook converts one sheet of an xlsx workbook to dataset text.
// Imports share a bounded number of slots; see ImportLimiter.
func (s *Service) ImportWorkbook(ctx context.Context, r io.Reader, opts ImportOptions) (*importer.Result, error) {
	start := time.Now()
	importID := uuid.NewString()

	res, err := s.importWorkbook(ctx, r, opts)

	outcome := "ok"
	if err != nil {
		outcome = MapError(err).Code
	}
	s.observer.ImportFinished(outcome, time.Since(start))

	log := logging.WithFields(ctx, "import_id", importID)
	if err != nil {
		log.Debug("workbook import failed", "error", err)
		return nil, err
	}
	res.ID = importID
	log.Info("workbook imported",
		"sheet", res.Sheet,
		"rows", res.Rows,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (s *Service) importWorkbook(ctx context.Context, r io.Reader, opts ImportOptions) (*importer.Result, error) {
	comma, err := datasetDelimiter(opts.Delimiter)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	res, err := importer.SheetToText(r, importer.Options{
		Sheet:   opts.Sheet,
		Comma:   comma,
		MaxRows: s.maxRows,
	})
	if err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && int64(len(res.Data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrDatasetTooLarge, s.maxBytes)
	}
	return res, nil
}
