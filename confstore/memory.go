// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package confstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/repstream/replog/errors"
)

// buffered events per watcher, notifications beyond this while the
// watcher routine is stalled close the watch
const watchBufferLength = 1024

type entryKey struct {
	kind ScopeKind
	name string
	key  string
}

type watchEvent struct {
	op string
	e  Entry
}

type memWatcher struct {
	ch chan watchEvent
}

// MemoryStore is an in-process Store implementation, used by tests and
// single-process clusters. Notifications are delivered in write order
// per watcher, off the writer's critical section.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[entryKey]string
	watchers map[uuid.UUID]*memWatcher
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:  make(map[entryKey]string),
		watchers: make(map[uuid.UUID]*memWatcher),
	}
}

func (s *MemoryStore) Get(ctx context.Context, scope Scope, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[entryKey{scope.Kind, scope.Name, key}]
	if !ok {
		return "", errors.Wrapf(errors.NotFound, "no entry %s/%s/%s", scope.Kind, scope.Name, key)
	}
	return v, nil
}

func (s *MemoryStore) List(ctx context.Context, kind ScopeKind, key string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []Entry
	for k, v := range s.entries {
		if k.kind == kind && k.key == key {
			list = append(list, Entry{
				Scope: Scope{Kind: k.kind, Name: k.name},
				Key:   k.key,
				Value: v,
			})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Scope.Name < list[j].Scope.Name })
	return list, nil
}

func (s *MemoryStore) Set(ctx context.Context, e Entry) error {
	if e.Key == "" || e.Scope.Name == "" {
		return errors.Wrap(errors.InvalidArgument, "config entry requires scope name and key")
	}
	k := entryKey{e.Scope.Kind, e.Scope.Name, e.Key}
	s.mu.Lock()
	_, existed := s.entries[k]
	s.entries[k] = e.Value
	op := AddOp
	if existed {
		op = UpdateOp
	}
	s.notifyLocked(op, e)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, scope Scope, key string) error {
	k := entryKey{scope.Kind, scope.Name, key}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[k]; !ok {
		return errors.Wrapf(errors.NotFound, "no entry %s/%s/%s", scope.Kind, scope.Name, key)
	}
	delete(s.entries, k)
	s.notifyLocked(DeleteOp, Entry{Scope: scope, Key: key})
	return nil
}

// enqueue the event for every live watcher; called with mu held so
// events are ordered consistently with writes
func (s *MemoryStore) notifyLocked(op string, e Entry) {
	for id, w := range s.watchers {
		select {
		case w.ch <- watchEvent{op: op, e: e}:
		default:
			// watcher is not keeping up, drop it rather than
			// blocking every writer behind it
			close(w.ch)
			delete(s.watchers, id)
		}
	}
}

func (s *MemoryStore) Watch(ctx context.Context, fn WatchFn) error {
	if fn == nil {
		return errors.Wrap(errors.InvalidArgument, "watch callback not specified")
	}
	w := &memWatcher{
		ch: make(chan watchEvent, watchBufferLength),
	}
	id := uuid.New()
	s.mu.Lock()
	s.watchers[id] = w
	s.mu.Unlock()

	// run the loop in a separate go routine, allowing the watch
	// starter to resume control, mirroring how a remote change
	// stream would behave
	go func() {
		defer func() {
			s.mu.Lock()
			if cur, ok := s.watchers[id]; ok && cur == w {
				delete(s.watchers, id)
				close(w.ch)
			}
			s.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.ch:
				if !ok {
					return
				}
				fn(ev.op, ev.e)
			}
		}
	}()
	return nil
}
