// Package resolver implements the query, create and delete operations a
// schema engine invokes for each declared record type.
package resolver

import (
	"context"
	"fmt"

	"github.com/hmans/speako/internal/logging"
	"github.com/hmans/speako/internal/predicate"
	"github.com/hmans/speako/internal/record"
	"github.com/hmans/speako/internal/recordstore"
	"github.com/hmans/speako/internal/schema"
)

// Handler serves the operations of a single record type.
type Handler interface {
	Query(ctx context.Context, p predicate.Predicate) ([]record.Record, error)
	Create(ctx context.Context, fields record.Record) (record.Record, error)
	Delete(ctx context.Context, fields record.Record) (record.Record, error)
}

// Resolver dispatches operations to the handler registered for a type name.
// Handlers are built once in New.
type Resolver struct {
	store    *recordstore.Store
	schema   *schema.Schema
	log      *logging.Logger
	handlers map[string]Handler
	order    []string

	deletable map[string]bool // nil means every type is deletable
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for per-call debug output.
func WithLogger(l *logging.Logger) Option {
	return func(r *Resolver) {
		r.log = l
	}
}

// WithDeletable restricts delete to the named types. Without this option,
// or with no names, every type is deletable.
func WithDeletable(typenames ...string) Option {
	return func(r *Resolver) {
		if len(typenames) == 0 {
			r.deletable = nil
			return
		}
		r.deletable = make(map[string]bool, len(typenames))
		for _, name := range typenames {
			r.deletable[name] = true
		}
	}
}

// New creates a Resolver serving every type declared in sch. Each type is
// registered with store so it has a collection, empty unless seeded.
func New(store *recordstore.Store, sch *schema.Schema, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		store:    store,
		schema:   sch,
		log:      logging.Noop(),
		handlers: make(map[string]Handler),
	}
	for _, opt := range opts {
		opt(r)
	}

	for name := range r.deletable {
		if _, ok := sch.Type(name); !ok {
			return nil, fmt.Errorf("deletable %w", &UnknownTypeError{TypeName: name})
		}
	}

	for _, t := range sch.Types() {
		store.Register(t.Name)
		r.handlers[t.Name] = &collectionHandler{
			typ:       t,
			store:     store,
			log:       r.log.WithType(t.Name),
			deletable: r.deletable == nil || r.deletable[t.Name],
		}
		r.order = append(r.order, t.Name)
	}

	return r, nil
}

// Types returns the served type names in schema declaration order.
func (r *Resolver) Types() []string {
	return append([]string(nil), r.order...)
}

// Store returns the record store the resolver reads and writes.
func (r *Resolver) Store() *recordstore.Store {
	return r.store
}

// Schema returns the type declarations the resolver serves.
func (r *Resolver) Schema() *schema.Schema {
	return r.schema
}

// Handler returns the handler for typename.
func (r *Resolver) Handler(typename string) (Handler, error) {
	h, ok := r.handlers[typename]
	if !ok {
		return nil, &UnknownTypeError{TypeName: typename}
	}
	return h, nil
}

// Query decodes an encoded predicate and returns the matching records of
// typename in store order. The encoded form {"all": true} selects every
// record.
func (r *Resolver) Query(ctx context.Context, typename, encoded string) ([]record.Record, error) {
	h, err := r.Handler(typename)
	if err != nil {
		return nil, err
	}
	p, err := predicate.Decode(encoded)
	if err != nil {
		return nil, err
	}
	return h.Query(ctx, p)
}

// QueryPredicate returns the records of typename matching an already
// decoded predicate.
func (r *Resolver) QueryPredicate(ctx context.Context, typename string, p predicate.Predicate) ([]record.Record, error) {
	h, err := r.Handler(typename)
	if err != nil {
		return nil, err
	}
	return h.Query(ctx, p)
}

// Create assigns fields an id, appends it to the collection of typename and
// returns it. fields is modified in place.
func (r *Resolver) Create(ctx context.Context, typename string, fields record.Record) (record.Record, error) {
	h, err := r.Handler(typename)
	if err != nil {
		return nil, err
	}
	return h.Create(ctx, fields)
}

// Delete removes every record of typename matching the example fields and
// returns the first one removed, or nil when nothing matched.
func (r *Resolver) Delete(ctx context.Context, typename string, fields record.Record) (record.Record, error) {
	h, err := r.Handler(typename)
	if err != nil {
		return nil, err
	}
	return h.Delete(ctx, fields)
}
