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

// collectionHandler serves one declared type from its store collection.
type collectionHandler struct {
	typ       *schema.Type
	store     *recordstore.Store
	log       *logging.Logger
	deletable bool
}

func (h *collectionHandler) Query(ctx context.Context, p predicate.Predicate) ([]record.Record, error) {
	log := h.log.WithOp("query")

	if p.IsAll() {
		recs, err := h.store.All(h.typ.Name)
		if err != nil {
			return nil, err
		}
		log.DebugContext(ctx, "resolved", "predicate", p.String(), "matched", len(recs))
		return recs, nil
	}

	if err := h.checkNested(p); err != nil {
		return nil, err
	}

	recs, err := h.store.Filter(h.typ.Name, predicate.MatchAll(predicate.Compile(p)))
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []record.Record{}
	}
	log.DebugContext(ctx, "resolved", "predicate", p.String(), "matched", len(recs))
	return recs, nil
}

func (h *collectionHandler) Create(ctx context.Context, fields record.Record) (record.Record, error) {
	if fields == nil {
		fields = record.Record{}
	}
	if err := normalizeFields(fields); err != nil {
		return nil, fmt.Errorf("%s: %w", h.typ.Name, err)
	}
	rec, err := h.store.Insert(h.typ.Name, fields)
	if err != nil {
		return nil, err
	}
	id, _ := rec.ID()
	h.log.WithOp("create").DebugContext(ctx, "resolved", "id", id)
	return rec, nil
}

func (h *collectionHandler) Delete(ctx context.Context, fields record.Record) (record.Record, error) {
	if !h.deletable {
		return nil, fmt.Errorf("%w: %s", ErrNotDeletable, h.typ.Name)
	}

	p, err := predicate.FromFields(fields)
	if err != nil {
		return nil, err
	}
	if err := h.checkNested(p); err != nil {
		return nil, err
	}

	removed, err := h.store.RemoveMatching(h.typ.Name, predicate.MatchAll(predicate.Compile(p)))
	if err != nil {
		return nil, err
	}
	h.log.WithOp("delete").DebugContext(ctx, "resolved", "predicate", p.String(), "matched", len(removed))

	if len(removed) == 0 {
		return nil, nil
	}
	return removed[0], nil
}

// checkNested rejects nested constraints on fields the type declares as
// scalars. Fields the type does not declare are left to match nothing.
func (h *collectionHandler) checkNested(p predicate.Predicate) error {
	for _, c := range p.Constraints() {
		if !c.Nested() {
			continue
		}
		f, ok := h.typ.Field(c.Field)
		if ok && !f.Related {
			return fmt.Errorf("%w: %s.%s is a %s field", predicate.ErrUnsupportedNestedPredicate, h.typ.Name, f.Name, f.TypeName)
		}
	}
	return nil
}

// normalizeFields converts the values of fields to their canonical forms in
// place. Related records are normalized one level deep, as far as a
// predicate can reach, and left untouched when already canonical so that
// linked store records are not written to.
func normalizeFields(fields record.Record) error {
	for k, v := range fields {
		rel, ok := record.AsRecord(v)
		if !ok {
			n, err := record.Normalize(v)
			if err != nil {
				return fmt.Errorf("field %q: %w", k, err)
			}
			fields[k] = n
			continue
		}
		for rk, rv := range rel {
			if _, nested := record.AsRecord(rv); nested {
				continue
			}
			n, err := record.Normalize(rv)
			if err != nil {
				return fmt.Errorf("field %q: %w", k+"."+rk, err)
			}
			if n != rv {
				rel[rk] = n
			}
		}
		if _, isRecord := v.(record.Record); !isRecord {
			fields[k] = rel
		}
	}
	return nil
}
