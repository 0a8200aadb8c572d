package core

import (
	"context"
	"time"
)

// MapField is a saved map: a name plus the stored document as JSON text.
type MapField struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ConfigJSON string    `json:"mapconfig_json"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// MapStore persists map fields. Get, Update and Delete return an error
// wrapping ErrMapNotFound for unknown IDs.
type MapStore interface {
	CreateMapField(ctx context.Context, name, configJSON string) (MapField, error)
	GetMapField(ctx context.Context, id string) (MapField, error)
	ListMapFields(ctx context.Context) ([]MapField, error)
	UpdateMapField(ctx context.Context, id, name, configJSON string) (MapField, error)
	DeleteMapField(ctx context.Context, id string) error
}

// RenderCache holds serialized render calls. A miss is (nil, false, nil).
type RenderCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
}

// RenderObserver receives pipeline events for metrics.
type RenderObserver interface {
	RenderFinished(outcome string, rows int, elapsed time.Duration)
	RangesDegraded()
	CacheLookup(hit bool)
	ImportFinished(outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) RenderFinished(string, int, time.Duration) {}
func (nopObserver) RangesDegraded()                           {}
func (nopObserver) CacheLookup(bool)                          {}
func (nopObserver) ImportFinished(string, time.Duration)      {}
