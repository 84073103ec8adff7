// Package recordstore provides a thread-safe in-memory store holding one
// ordered collection of records per declared type.
package recordstore

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/hmans/speako/internal/record"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrUnknownIDPolicy   = errors.New("unknown id policy")
)

// IDPolicy selects how identifiers are assigned on insert.
type IDPolicy int

const (
	// IDPolicyLength assigns the collection length at insertion plus one.
	// After a delete, a later insert can receive an id that is still in use.
	IDPolicyLength IDPolicy = iota
	// IDPolicyMonotonic assigns one more than the largest id ever seen in the
	// collection, so ids are never reused.
	IDPolicyMonotonic
)

// String returns the configuration name of the policy.
func (p IDPolicy) String() string {
	switch p {
	case IDPolicyLength:
		return "length"
	case IDPolicyMonotonic:
		return "monotonic"
	default:
		return "unknown"
	}
}

// ParseIDPolicy converts a configuration name into an IDPolicy.
func ParseIDPolicy(name string) (IDPolicy, error) {
	switch name {
	case "", "length":
		return IDPolicyLength, nil
	case "monotonic":
		return IDPolicyMonotonic, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownIDPolicy, name)
	}
}

// collection is the ordered record sequence of one type.
type collection struct {
	records []record.Record
	maxID   int64 // largest id ever held, for IDPolicyMonotonic
}

// Store holds the collections of every registered type.
type Store struct {
	policy IDPolicy

	mu          sync.RWMutex
	collections map[string]*collection
	order       []string // type names in registration order

	subMu       sync.RWMutex
	subscribers map[uint64]*subscription
	nextSubID   uint64
}

// Option configures a Store.
type Option func(*Store)

// WithIDPolicy sets the identifier assignment policy.
func WithIDPolicy(p IDPolicy) Option {
	return func(s *Store) {
		s.policy = p
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string]*collection),
		subscribers: make(map[uint64]*subscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IDPolicy returns the store's identifier assignment policy.
func (s *Store) IDPolicy() IDPolicy {
	return s.policy
}

// Register adds an empty collection for typename. Registering a type twice is
// a no-op.
func (s *Store) Register(typename string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.register(typename)
}

// register must be called with the lock held.
func (s *Store) register(typename string) *collection {
	if c, ok := s.collections[typename]; ok {
		return c
	}
	c := &collection{}
	s.collections[typename] = c
	s.order = append(s.order, typename)
	return c
}

// Types returns the registered type names in registration order.
func (s *Store) Types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.order)
}

// Seed replaces the records of typename, registering the type if needed.
// Records are stored as given; their ids are not reassigned.
func (s *Store) Seed(typename string, records []record.Record) {
	s.mu.Lock()
	c := s.register(typename)
	c.records = slices.Clone(records)
	c.maxID = maxID(c.records)
	s.mu.Unlock()

	s.fanOut([]Event{{Type: EventReloaded, TypeName: typename}})
}

// Reset replaces the records of every type named in collections in one step.
// Types absent from collections keep their records.
func (s *Store) Reset(collections map[string][]record.Record) {
	s.mu.Lock()
	events := make([]Event, 0, len(collections))
	for _, typename := range sortedKeys(collections) {
		c := s.register(typename)
		c.records = slices.Clone(collections[typename])
		c.maxID = maxID(c.records)
		events = append(events, Event{Type: EventReloaded, TypeName: typename})
	}
	s.mu.Unlock()

	s.fanOut(events)
}

// All returns the records of typename in store order.
// The returned slice is a copy; the records themselves are shared.
func (s *Store) All(typename string) ([]record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.get(typename)
	if err != nil {
		return nil, err
	}
	return slices.Clone(c.records), nil
}

// Len returns the number of records of typename.
func (s *Store) Len(typename string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.get(typename)
	if err != nil {
		return 0, err
	}
	return len(c.records), nil
}

// Filter returns the records of typename for which match returns true,
// preserving store order.
func (s *Store) Filter(typename string, match func(record.Record) bool) ([]record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.get(typename)
	if err != nil {
		return nil, err
	}

	var result []record.Record
	for _, r := range c.records {
		if match(r) {
			result = append(result, r)
		}
	}
	return result, nil
}

// Insert assigns rec an id according to the store's policy, appends it to
// the collection of typename and returns it. rec is modified in place.
func (s *Store) Insert(typename string, rec record.Record) (record.Record, error) {
	s.mu.Lock()
	c, err := s.get(typename)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	var id int64
	switch s.policy {
	case IDPolicyMonotonic:
		id = c.maxID + 1
	default:
		id = int64(len(c.records)) + 1
	}
	rec.SetID(id)
	if id > c.maxID {
		c.maxID = id
	}
	c.records = append(c.records, rec)
	s.mu.Unlock()

	s.fanOut([]Event{{Type: EventCreated, TypeName: typename, Record: rec}})
	return rec, nil
}

// RemoveMatching partitions the collection of typename into records for
// which match returns true and the rest, keeps the rest and returns the
// removed records. Relative order is preserved in both partitions.
func (s *Store) RemoveMatching(typename string, match func(record.Record) bool) ([]record.Record, error) {
	s.mu.Lock()
	c, err := s.get(typename)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	var removed []record.Record
	remaining := make([]record.Record, 0, len(c.records))
	for _, r := range c.records {
		if match(r) {
			removed = append(removed, r)
		} else {
			remaining = append(remaining, r)
		}
	}
	c.records = remaining
	s.mu.Unlock()

	if len(removed) > 0 {
		events := make([]Event, 0, len(removed))
		for _, r := range removed {
			events = append(events, Event{Type: EventDeleted, TypeName: typename, Record: r})
		}
		s.fanOut(events)
	}
	return removed, nil
}

// get must be called with the lock held.
func (s *Store) get(typename string) (*collection, error) {
	c, ok := s.collections[typename]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, typename)
	}
	return c, nil
}

func maxID(records []record.Record) int64 {
	var m int64
	for _, r := range records {
		if id, ok := r.ID(); ok && id > m {
			m = id
		}
	}
	return m
}

func sortedKeys(m map[string][]record.Record) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
