// Package store implements the campus event repository.
//
// EventStore keeps the whole event collection in one storage.Blob. Every
// operation loads the full collection, works on that fresh copy and, for
// mutations, writes the full collection back. Nothing is cached between
// calls, so a failed write never leaves memory ahead of durable state and
// changes saved by another process show up on the next read.
//
// Operations are serialized within one EventStore by a mutex. Two processes
// sharing a blob still race: the last one to save wins.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/campushub/campushub/internal/event"
	"github.com/campushub/campushub/internal/logger"
	"github.com/campushub/campushub/internal/storage"
)

var (
	ErrNotFound              = errors.New("event not found")
	ErrDuplicateRegistration = errors.New("email already registered for this event")
	ErrCorrupt               = errors.New("event collection is unreadable")
	ErrWriteFailed           = errors.New("writing event collection failed")
	ErrNoFreeID              = errors.New("no unused event id")
)

// maxIDDraws bounds how often Create asks the generator for an unused id
const maxIDDraws = 16

// EventStore is the persisted event collection
type EventStore struct {
	mu      sync.Mutex
	blob    storage.Blob
	log     *logger.Logger
	metrics *logger.Metrics
	newID   func() string
}

// Option configures an EventStore
type Option func(*EventStore)

// WithLogger sets the logger, logger.Default() otherwise
func WithLogger(l *logger.Logger) Option {
	return func(s *EventStore) {
		s.log = l
	}
}

// WithMetrics sets the metrics tracker
func WithMetrics(m *logger.Metrics) Option {
	return func(s *EventStore) {
		s.metrics = m
	}
}

// WithIDGenerator replaces the UUID generator used for events and attendees
func WithIDGenerator(fn func() string) Option {
	return func(s *EventStore) {
		s.newID = fn
	}
}

// New creates an EventStore over blob
func New(blob storage.Blob, opts ...Option) *EventStore {
	s := &EventStore{
		blob:    blob,
		log:     logger.Default(),
		metrics: logger.NewMetrics(),
		newID:   event.GenerateID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics returns the tracker the store records into
func (s *EventStore) Metrics() *logger.Metrics {
	return s.metrics
}

// List returns every event in persisted order. A missing, unloadable or
// unparsable collection yields an empty list. Load failures are counted as
// store.unavailable, parse failures as store.corrupt.
func (s *EventStore) List(ctx context.Context) ([]*event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.timed("list", time.Now())

	return s.loadLenient(ctx)
}

// GetByID returns the event with id, or ErrNotFound
func (s *EventStore) GetByID(ctx context.Context, id string) (*event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.timed("get", time.Now())

	events, err := s.loadLenient(ctx)
	if err != nil {
		return nil, err
	}

	if i := indexOf(events, id); i >= 0 {
		return events[i], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Create stores a new event built from payload with a fresh ID and no attendees
func (s *EventStore) Create(ctx context.Context, payload event.NewEventPayload) (*event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.timed("create", time.Now())

	events, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	id, err := s.uniqueID(events)
	if err != nil {
		return nil, err
	}
	evt := event.NewEvent(id, payload)
	events = append(events, evt)

	if err := s.save(ctx, events); err != nil {
		return nil, err
	}

	s.metrics.IncrCounter("store.create")
	s.log.Info("event created", logger.Fields{"event_id": evt.ID, "name": evt.Name})
	return evt.Clone(), nil
}

// Update replaces the stored event having evt.ID with evt as a whole.
// Fields are not merged: the caller passes the complete record, attendees included.
func (s *EventStore) Update(ctx context.Context, evt *event.Event) error {
	if evt == nil {
		return fmt.Errorf("%w: nil event", ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.timed("update", time.Now())

	events, err := s.load(ctx)
	if err != nil {
		return err
	}

	i := indexOf(events, evt.ID)
	if i < 0 {
		s.metrics.IncrCounter("store.update.not_found")
		return fmt.Errorf("%w: %s", ErrNotFound, evt.ID)
	}

	replacement := evt.Clone()
	events[i] = replacement

	if err := s.save(ctx, events); err != nil {
		return err
	}

	s.metrics.IncrCounter("store.update")
	s.log.Info("event updated", logger.Fields{"event_id": evt.ID})
	return nil
}

// Delete removes the event with id. It reports false, and writes nothing,
// when no such event exists.
func (s *EventStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.timed("delete", time.Now())

	events, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	i := indexOf(events, id)
	if i < 0 {
		s.metrics.IncrCounter("store.delete.not_found")
		return false, nil
	}

	remaining := make([]*event.Event, 0, len(events)-1)
	remaining = append(remaining, events[:i]...)
	remaining = append(remaining, events[i+1:]...)

	if err := s.save(ctx, remaining); err != nil {
		return false, err
	}

	s.metrics.IncrCounter("store.delete")
	s.log.Info("event deleted", logger.Fields{"event_id": id})
	return true, nil
}

// Register appends a new attendee to the event. At most one attendee per
// (event, email) pair exists; a repeated email fails with
// ErrDuplicateRegistration and changes nothing.
func (s *EventStore) Register(ctx context.Context, eventID, name, email string) (*event.Attendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.timed("register", time.Now())

	events, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	i := indexOf(events, eventID)
	if i < 0 {
		s.metrics.IncrCounter("store.register.not_found")
		return nil, fmt.Errorf("%w: %s", ErrNotFound, eventID)
	}

	evt := events[i]
	if evt.HasAttendee(email) {
		s.metrics.IncrCounter("store.register.duplicate")
		s.log.Debug("duplicate registration rejected", logger.Fields{"event_id": eventID})
		return nil, ErrDuplicateRegistration
	}

	attendee := event.Attendee{
		ID:    s.newID(),
		Name:  name,
		Email: email,
	}
	evt.Attendees = append(evt.Attendees, attendee)

	if err := s.save(ctx, events); err != nil {
		return nil, err
	}

	s.metrics.IncrCounter("store.register")
	s.log.Info("attendee registered", logger.Fields{
		"event_id":    eventID,
		"attendee_id": attendee.ID,
		"attendees":   len(evt.Attendees),
	})
	return &attendee, nil
}

// load reads the collection. A missing blob is an empty collection;
// an unparsable one is ErrCorrupt.
func (s *EventStore) load(ctx context.Context) ([]*event.Event, error) {
	data, err := s.blob.Load(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return []*event.Event{}, nil
		}
		return nil, fmt.Errorf("loading events: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []*event.Event{}, nil
	}

	var events []*event.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	cleaned := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		if evt == nil {
			continue
		}
		if evt.Attendees == nil {
			evt.Attendees = []event.Attendee{}
		}
		cleaned = append(cleaned, evt)
	}
	return cleaned, nil
}

// loadLenient is load for read paths: any failure reads as an empty collection
func (s *EventStore) loadLenient(ctx context.Context) ([]*event.Event, error) {
	events, err := s.load(ctx)
	switch {
	case err == nil:
		return events, nil
	case errors.Is(err, ErrCorrupt):
		s.metrics.IncrCounter("store.corrupt")
		s.log.Warn("event collection unreadable, treating as empty", logger.Fields{"error": err.Error()})
	default:
		s.metrics.IncrCounter("store.unavailable")
		s.log.Warn("event collection could not be loaded, treating as empty", logger.Fields{"error": err.Error()})
	}
	return []*event.Event{}, nil
}

func (s *EventStore) save(ctx context.Context, events []*event.Event) error {
	for _, evt := range events {
		if evt.Attendees == nil {
			evt.Attendees = []event.Attendee{}
		}
	}

	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("encoding events: %w", err)
	}

	if err := s.blob.Save(ctx, data); err != nil {
		s.metrics.IncrCounter("store.write_failed")
		s.log.Error("saving event collection failed", logger.Fields{"events": len(events)}, err)
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// uniqueID draws IDs until one is non-empty and unused in events
func (s *EventStore) uniqueID(events []*event.Event) (string, error) {
	for range maxIDDraws {
		id := s.newID()
		if id != "" && indexOf(events, id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w after %d draws", ErrNoFreeID, maxIDDraws)
}

func (s *EventStore) timed(op string, start time.Time) {
	s.metrics.RecordTiming("store."+op, time.Since(start))
}

func indexOf(events []*event.Event, id string) int {
	for i, evt := range events {
		if evt.ID == id {
			return i
		}
	}
	return -1
}
