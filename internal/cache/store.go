package cache

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/d60-Lab/reveal-client/pkg/logger"
)

// Ref identifies an entity a cached value holds a copy of.
type Ref struct {
	Kind string
	ID   string
}

// RefetchFunc reloads the value for a key from the backend.
type RefetchFunc func(ctx context.Context) (any, error)

// Updater returns the replacement for a cached value. Values must be treated
// as immutable: return a modified copy, never mutate in place.
type Updater func(v any) any

type entry struct {
	value    any
	stale    bool
	fetching bool
	refs     []Ref
	subs     int
}

// Store 进程内缓存：按确定性 key 寻址服务端数据的最新副本。
// 显式构造、显式 Clear，测试可各自持有独立实例。
type Store struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	refIndex map[Ref]map[string]struct{}
	refetch  map[string]RefetchFunc
}

func New() *Store {
	return &Store{
		entries:  make(map[string]*entry),
		refIndex: make(map[Ref]map[string]struct{}),
		refetch:  make(map[string]RefetchFunc),
	}
}

// Read returns the cached value for key. A stale entry is still returned;
// when it is actively subscribed and a refetcher is registered, a background
// refetch is kicked off so the next read observes fresh data.
func (s *Store) Read(key string) (any, bool) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	v := e.value
	if e.stale && e.subs > 0 && !e.fetching {
		if fn, ok := s.refetch[key]; ok {
			e.fetching = true
			go s.runRefetch(key, fn)
		}
	}
	s.mu.Unlock()
	return v, true
}

func (s *Store) runRefetch(key string, fn RefetchFunc) {
	v, err := fn(context.Background())
	if err != nil {
		logger.Warn("cache refetch failed", zap.String("key", key), zap.Error(err))
		s.mu.Lock()
		if e, ok := s.entries[key]; ok {
			e.fetching = false
		}
		s.mu.Unlock()
		return
	}
	s.Write(key, v)
}

// Write unconditionally replaces the value for key, keeping any refs already
// registered for it.
func (s *Store) Write(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	e.value = v
	e.stale = false
	e.fetching = false
}

// WriteWithRefs replaces the value for key and records which entities the
// value contains, so ReconcileEntity can fan changes out to it.
func (s *Store) WriteWithRefs(key string, v any, refs ...Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	s.dropRefsLocked(key, e.refs)
	e.value = v
	e.stale = false
	e.fetching = false
	e.refs = refs
	for _, r := range refs {
		keys, ok := s.refIndex[r]
		if !ok {
			keys = make(map[string]struct{})
			s.refIndex[r] = keys
		}
		keys[key] = struct{}{}
	}
}

func (s *Store) dropRefsLocked(key string, refs []Ref) {
	for _, r := range refs {
		if keys, ok := s.refIndex[r]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(s.refIndex, r)
			}
		}
	}
}

// Patch applies fn to the existing value for key. Absent keys are left
// absent: a patch describes how a value changes, never what it should become.
func (s *Store) Patch(key string, fn Updater) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	e.value = fn(e.value)
	return true
}

// PatchMany applies fn to every cached entry whose key satisfies pred.
func (s *Store) PatchMany(pred func(key string) bool, fn func(key string, v any) any) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.entries {
		if pred(k) {
			e.value = fn(k, e.value)
			n++
		}
	}
	return n
}

// ReconcileEntity applies fn to every cached entry known to hold a copy of
// the referenced entity. One entity change, every view updated.
func (s *Store) ReconcileEntity(ref Ref, fn func(key string, v any) any) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.refIndex[ref] {
		if e, ok := s.entries[k]; ok {
			e.value = fn(k, e.value)
			n++
		}
	}
	return n
}

// Invalidate marks every entry whose key starts with prefix as stale.
func (s *Store) Invalidate(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		if strings.HasPrefix(k, prefix) {
			e.stale = true
		}
	}
}

// Drop removes entries whose key starts with prefix.
func (s *Store) Drop(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		if strings.HasPrefix(k, prefix) {
			s.dropRefsLocked(k, e.refs)
			delete(s.entries, k)
		}
	}
}

// Clear drops everything. Called on sign-out.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
	s.refIndex = make(map[Ref]map[string]struct{})
	s.refetch = make(map[string]RefetchFunc)
}

// Subscribe marks key as actively consumed and returns a release func.
// Release is safe to call exactly once per Subscribe.
func (s *Store) Subscribe(key string) func() {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	e.subs++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if e, ok := s.entries[key]; ok && e.subs > 0 {
				e.subs--
			}
			s.mu.Unlock()
		})
	}
}

// RegisterRefetch installs the reload function used for stale subscribed keys.
func (s *Store) RegisterRefetch(key string, fn RefetchFunc) {
	s.mu.Lock()
	s.refetch[key] = fn
	s.mu.Unlock()
}

// Stale reports whether key is present and marked stale.
func (s *Store) Stale(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return ok && e.stale
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Get reads a typed value; ok is false when the key is absent or holds a
// different type.
func Get[T any](s *Store, key string) (T, bool) {
	v, ok := s.Read(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// PatchValue applies a typed updater, skipping entries of another type.
func PatchValue[T any](s *Store, key string, fn func(T) T) bool {
	return s.Patch(key, func(v any) any {
		t, ok := v.(T)
		if !ok {
			return v
		}
		return fn(t)
	})
}
