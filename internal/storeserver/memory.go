package storeserver

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps records in process memory. It backs the store
// server when no Postgres is available (single-host party setups) and the
// handler tests.
type MemoryRepository struct {
	mu      sync.Mutex
	seq     int
	records map[string]map[string]memoryRecord // collection -> id -> record
}

type memoryRecord struct {
	data  Record
	order int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]map[string]memoryRecord)}
}

func clone(data Record) Record {
	out := make(Record, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

func (r *MemoryRepository) Create(ctx context.Context, collection string, data Record) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New().String()
	stored := clone(data)
	delete(stored, "id")
	stored["created_date"] = time.Now().UTC().Format(time.RFC3339)

	if r.records[collection] == nil {
		r.records[collection] = make(map[string]memoryRecord)
	}
	r.seq++
	r.records[collection][id] = memoryRecord{data: stored, order: r.seq}

	return withID(stored, id), nil
}

// matches compares a stored field to a filter value by its text rendering,
// the same way the Postgres ->> operator does.
func matches(value any, want string) bool {
	switch v := value.(type) {
	case string:
		return v == want
	default:
		text, err := json.Marshal(v)
		if err != nil {
			return false
		}
		return string(text) == want
	}
}

func (r *MemoryRepository) List(ctx context.Context, collection string, filters map[string]string) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	type entry struct {
		rec   Record
		order int
	}
	var out []entry

next:
	for id, stored := range r.records[collection] {
		for key, want := range filters {
			if key == "id" {
				if id != want {
					continue next
				}
				continue
			}
			value, ok := stored.data[key]
			if !ok || !matches(value, want) {
				continue next
			}
		}
		out = append(out, entry{rec: withID(clone(stored.data), id), order: stored.order})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].order < out[j].order })
	records := make([]Record, len(out))
	for i, e := range out {
		records[i] = e.rec
	}
	return records, nil
}

func (r *MemoryRepository) Update(ctx context.Context, collection, id string, patch Record) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		stored.data[k] = v
	}
	r.records[collection][id] = stored
	return withID(clone(stored.data), id), nil
}

func (r *MemoryRepository) Delete(ctx context.Context, collection, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[collection][id]; !ok {
		return ErrNotFound
	}
	delete(r.records[collection], id)
	return nil
}
