package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/RudyLabor/squadplanner-sub013/internal/mutation"
)

// Memory is a process-local Backend. Records are copied on the way in and out
// so callers cannot mutate stored state through shared maps or pointers.
type Memory struct {
	mu        sync.Mutex
	order     []string
	records   map[string]mutation.QueuedMutation
	snapshots map[string]mutation.Snapshot
	closed    bool
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		records:   make(map[string]mutation.QueuedMutation),
		snapshots: make(map[string]mutation.Snapshot),
	}
}

func (s *Memory) Add(ctx context.Context, m mutation.QueuedMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.records[m.ID]; ok {
		return fmt.Errorf("add mutation %s: %w", m.ID, ErrDuplicateID)
	}
	s.records[m.ID] = cloneMutation(m)
	s.order = append(s.order, m.ID)
	return nil
}

func (s *Memory) ListAll(ctx context.Context) ([]mutation.QueuedMutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]mutation.QueuedMutation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneMutation(s.records[id]))
	}
	return out, nil
}

func (s *Memory) DeleteByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.records[id]; !ok {
		return nil
	}
	delete(s.records, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Memory) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.records = make(map[string]mutation.QueuedMutation)
	s.order = nil
	return nil
}

func (s *Memory) PutSnapshot(ctx context.Context, key string, snap mutation.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	snap.ClientState = append([]byte(nil), snap.ClientState...)
	s.snapshots[key] = snap
	return nil
}

func (s *Memory) GetSnapshot(ctx context.Context, key string) (mutation.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return mutation.Snapshot{}, false, ErrClosed
	}
	snap, ok := s.snapshots[key]
	if !ok {
		return mutation.Snapshot{}, false, nil
	}
	snap.ClientState = append([]byte(nil), snap.ClientState...)
	return snap, true, nil
}

func (s *Memory) DeleteSnapshot(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.snapshots, key)
	return nil
}

// Close marks the backend closed; later calls fail with ErrClosed.
func (s *Memory) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func cloneMutation(m mutation.QueuedMutation) mutation.QueuedMutation {
	if m.Headers != nil {
		h := make(map[string]string, len(m.Headers))
		for k, v := range m.Headers {
			h[k] = v
		}
		m.Headers = h
	}
	if m.Body != nil {
		b := *m.Body
		m.Body = &b
	}
	return m
}
