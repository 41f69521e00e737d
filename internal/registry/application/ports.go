package application

import (
	"context"
	"time"

	registry "utility-registry/internal/registry/domain"
)

// SubscriberStore is the read side of subscriber and reading persistence.
type SubscriberStore interface {
	// ListSubscribers returns all subscribers in the store's natural order.
	ListSubscribers(ctx context.Context) ([]registry.Subscriber, error)
	// GetReading returns nil, nil when no reading exists for the period.
	GetReading(ctx context.Context, subscriberID int64, period registry.Period) (*registry.Reading, error)
}

// SubscriberRepository adds the write operations used to maintain sample data.
type SubscriberRepository interface {
	SubscriberStore
	// AddSubscriber stores sub and returns its id; a zero ID is assigned by the store.
	AddSubscriber(ctx context.Context, sub registry.Subscriber) (int64, error)
	// PutReading inserts or replaces the reading for (SubscriberID, Period).
	PutReading(ctx context.Context, reading registry.Reading) error
}

// SettingsProvider supplies registry settings for a run.
type SettingsProvider interface {
	Load(ctx context.Context) (registry.Settings, error)
}

// DocumentRenderer persists a composed registry to a file.
type DocumentRenderer interface {
	// Format is the document format, also used as the file extension.
	Format() string
	Render(ctx context.Context, report registry.RegistryReport, path string) error
}

// ProgressSink receives human-readable progress lines in order.
type ProgressSink interface {
	Emit(line string)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
