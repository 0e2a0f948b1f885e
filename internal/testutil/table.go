package testutil

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// table is an insertion-ordered in-memory collection.
type table[T any] struct {
	mu   sync.Mutex
	rows []T
	id   func(*T) primitive.ObjectID
}

func newTable[T any](id func(*T) primitive.ObjectID) *table[T] {
	return &table[T]{id: id}
}

func (t *table[T]) insert(row T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, row)
}

func (t *table[T]) get(id primitive.ObjectID) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.rows {
		if t.id(&t.rows[i]) == id {
			return t.rows[i], true
		}
	}
	var zero T
	return zero, false
}

func (t *table[T]) filter(pred func(*T) bool) []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := []T{}
	for i := range t.rows {
		if pred(&t.rows[i]) {
			out = append(out, t.rows[i])
		}
	}
	return out
}

func (t *table[T]) update(pred func(*T) bool, fn func(*T)) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var n int64
	for i := range t.rows {
		if pred(&t.rows[i]) {
			fn(&t.rows[i])
			n++
		}
	}
	return n
}

func (t *table[T]) remove(pred func(*T) bool) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.rows[:0]
	var n int64
	for _, row := range t.rows {
		if pred(&row) {
			n++
			continue
		}
		kept = append(kept, row)
	}
	t.rows = kept
	return n
}

func (t *table[T]) byID(id primitive.ObjectID) func(*T) bool {
	return func(row *T) bool { return t.id(row) == id }
}

func all[T any](*T) bool { return true }

func idSet(ids []primitive.ObjectID) map[primitive.ObjectID]bool {
	set := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
