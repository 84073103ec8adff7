package search

import (
	"sync"

	"github.com/hmans/speako/internal/recordstore"
	"github.com/hmans/speako/internal/schema"
)

// Live is an index kept current with a store. Store events are applied
// before every search, so a search sees every mutation that returned
// before it started.
type Live struct {
	*Index

	mu          sync.Mutex
	store       *recordstore.Store
	events      <-chan []recordstore.Event
	unsubscribe func()
}

// Follow indexes every record in store and subscribes to its events.
func Follow(store *recordstore.Store, sch *schema.Schema) (*Live, error) {
	// Subscribe first so no mutation falls between the build and the
	// subscription. Replaying one that is already indexed is harmless.
	events, unsubscribe := store.Subscribe()

	idx, err := Build(store, sch)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	return &Live{
		Index:       idx,
		store:       store,
		events:      events,
		unsubscribe: unsubscribe,
	}, nil
}

// Sync applies the pending store events to the index.
func (l *Live) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sync()
}

func (l *Live) sync() error {
	// A full buffer means the store may have dropped events.
	if len(l.events) == cap(l.events) {
		l.discardPending()
		return l.rebuild()
	}

	for {
		select {
		case batch, ok := <-l.events:
			if !ok {
				return nil
			}
			if err := l.apply(batch); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (l *Live) discardPending() {
	for {
		select {
		case _, ok := <-l.events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (l *Live) apply(batch []recordstore.Event) error {
	for _, ev := range batch {
		switch ev.Type {
		case recordstore.EventCreated:
			if err := l.IndexRecord(ev.TypeName, ev.Record); err != nil {
				return err
			}
		case recordstore.EventDeleted:
			if id, ok := ev.Record.ID(); ok {
				if err := l.DeleteRecord(ev.TypeName, id); err != nil {
					return err
				}
			}
		case recordstore.EventReloaded:
			if err := l.reindexType(ev.TypeName); err != nil {
				return err
			}
		}
	}
	return nil
}

// reindexType replaces the documents of typename with the store's records.
func (l *Live) reindexType(typename string) error {
	if err := l.deleteType(typename); err != nil {
		return err
	}
	recs, err := l.store.All(typename)
	if err != nil {
		return err
	}
	return l.IndexRecords(typename, recs)
}

func (l *Live) rebuild() error {
	for _, typename := range l.store.Types() {
		if err := l.reindexType(typename); err != nil {
			return err
		}
	}
	return nil
}

// deleteType removes every document of typename.
func (l *Live) deleteType(typename string) error {
	count, err := l.index.DocCount()
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	hits, err := l.run(typeQuery(typename), int(count))
	if err != nil {
		return err
	}
	batch := l.index.NewBatch()
	for _, h := range hits {
		batch.Delete(DocID(h.TypeName, h.ID))
	}
	return l.index.Batch(batch)
}

// Search syncs the index and runs Index.Search.
func (l *Live) Search(queryStr, typename string, limit int) ([]Hit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.sync(); err != nil {
		return nil, err
	}
	return l.Index.Search(queryStr, typename, limit)
}

// FindReferences syncs the index and runs Index.FindReferences.
func (l *Live) FindReferences(typename string, id int64) ([]Hit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.sync(); err != nil {
		return nil, err
	}
	return l.Index.FindReferences(typename, id)
}

// Close unsubscribes from the store and closes the index.
func (l *Live) Close() error {
	l.unsubscribe()
	return l.Index.Close()
}
