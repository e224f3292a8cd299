package taskstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/af-corp/taskmind/internal/types"
)

type memoryEntry struct {
	seq  uint64
	data types.Task
}

// MemoryStore is a process-local Store. Reads and writes deep-copy task data.
type MemoryStore struct {
	mu    sync.RWMutex
	seq   uint64
	users map[string]map[string]*memoryEntry

	addCalls, listCalls, updateCalls int

	// Error injection for testing
	AddErr    error
	ListErr   error
	UpdateErr error
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]map[string]*memoryEntry)}
}

func (m *MemoryStore) Add(ctx context.Context, uid string, task types.Task) (string, error) {
	m.count(&m.addCalls)
	if m.AddErr != nil {
		return "", m.AddErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tasks := m.users[uid]
	if tasks == nil {
		tasks = make(map[string]*memoryEntry)
		m.users[uid] = tasks
	}

	var id string
	for {
		candidate, err := NewDocumentID()
		if err != nil {
			return "", fmt.Errorf("generate id: %w", err)
		}
		if _, taken := tasks[candidate]; !taken {
			id = candidate
			break
		}
	}

	m.seq++
	data := task.Clone()
	if data == nil {
		data = types.Task{}
	}
	tasks[id] = &memoryEntry{seq: m.seq, data: data}
	return id, nil
}

// List returns tasks in insertion order.
func (m *MemoryStore) List(ctx context.Context, uid string) ([]Document, error) {
	m.count(&m.listCalls)
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	tasks := m.users[uid]
	docs := make([]Document, 0, len(tasks))
	seqs := make(map[string]uint64, len(tasks))
	for id, entry := range tasks {
		docs = append(docs, Document{ID: id, Data: entry.data.Clone()})
		seqs[id] = entry.seq
	}
	sort.Slice(docs, func(i, j int) bool { return seqs[docs[i].ID] < seqs[docs[j].ID] })
	return docs, nil
}

// Update merges top-level fields; keys are taken literally.
func (m *MemoryStore) Update(ctx context.Context, uid, taskID string, fields types.Task) error {
	m.count(&m.updateCalls)
	if m.UpdateErr != nil {
		return m.UpdateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.users[uid][taskID]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields.Clone() {
		entry.data[k] = v
	}
	return nil
}

// Calls reports how many times each operation was invoked, failed ones included.
func (m *MemoryStore) Calls() (add, list, update int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.addCalls, m.listCalls, m.updateCalls
}

func (m *MemoryStore) count(n *int) {
	m.mu.Lock()
	*n++
	m.mu.Unlock()
}
