package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	registry "utility-registry/internal/registry/domain"
)

// ErrUnknownSubscriber is returned when a reading references a missing subscriber.
var ErrUnknownSubscriber = errors.New("memory store: unknown subscriber")

type readingKey struct {
	subscriberID int64
	month        int
	year         int
}

// Store is an in-memory subscriber store for demo/testing.
type Store struct {
	mu          sync.RWMutex
	nextID      int64
	subscribers map[int64]registry.Subscriber
	readings    map[readingKey]registry.Reading
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		subscribers: make(map[int64]registry.Subscriber),
		readings:    make(map[readingKey]registry.Reading),
	}
}

// ListSubscribers returns subscribers ordered by id.
func (s *Store) ListSubscribers(ctx context.Context) ([]registry.Subscriber, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]registry.Subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetReading returns nil, nil when the period has no reading.
func (s *Store) GetReading(ctx context.Context, subscriberID int64, period registry.Period) (*registry.Reading, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.readings[readingKey{subscriberID, period.Month, period.Year}]
	if !ok {
		return nil, nil
	}
	return copyReading(r), nil
}

// AddSubscriber stores sub. A zero ID is assigned from an internal sequence.
// Names are unique.
func (s *Store) AddSubscriber(ctx context.Context, sub registry.Subscriber) (int64, error) {
	_ = ctx
	if strings.TrimSpace(sub.Name) == "" {
		return 0, registry.ErrEmptySubscriberName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.subscribers {
		if existing.Name == sub.Name {
			return 0, fmt.Errorf("memory store: subscriber %q already exists", sub.Name)
		}
	}
	if sub.ID == 0 {
		s.nextID++
		for s.subscribers[s.nextID].ID != 0 {
			s.nextID++
		}
		sub.ID = s.nextID
	} else if _, exists := s.subscribers[sub.ID]; exists {
		return 0, fmt.Errorf("memory store: subscriber %d already exists", sub.ID)
	} else if sub.ID > s.nextID {
		s.nextID = sub.ID
	}
	s.subscribers[sub.ID] = sub
	return sub.ID, nil
}

// PutReading inserts or replaces a reading.
func (s *Store) PutReading(ctx context.Context, reading registry.Reading) error {
	_ = ctx
	if err := reading.Period.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[reading.SubscriberID]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSubscriber, reading.SubscriberID)
	}
	s.readings[readingKey{reading.SubscriberID, reading.Period.Month, reading.Period.Year}] = *copyReading(reading)
	return nil
}

func copyReading(r registry.Reading) *registry.Reading {
	out := r
	out.Electricity = copyValue(r.Electricity)
	out.Water = copyValue(r.Water)
	out.Wastewater = copyValue(r.Wastewater)
	out.Gas = copyValue(r.Gas)
	return &out
}

func copyValue(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return registry.Float(*v)
}
