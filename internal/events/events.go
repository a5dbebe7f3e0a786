package events

import (
	"context"
	"time"
)

const (
	KindMealLogged  = "meal.logged"
	KindWaterLogged = "water.logged"
)

// LedgerEvent announces one appended ledger row.
type LedgerEvent struct {
	Kind       string    `json:"kind"`
	UserID     int64     `json:"user_id"`
	Name       string    `json:"name,omitempty"`
	Calories   int       `json:"calories,omitempty"`
	VolumeML   int       `json:"volume_ml,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event LedgerEvent) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, LedgerEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
