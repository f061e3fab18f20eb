// Package session keeps per-conversation entity memory for the gateway.
// The store lives for the process lifetime and is never evicted; that is a
// deliberate simplification, not a cache.
package session

import "sync"

// Store maps an opaque session key (e.g. "telegram:12345") to the small set
// of entities remembered for that conversation. It is safe for concurrent
// use by request handlers; the engine itself never touches it.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]map[string]string
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]map[string]string)}
}

// Get returns a copy of the remembered entities for key. A session that has
// never been seen yields an empty map.
func (s *Store) Get(key string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.sessions[key]))
	for k, v := range s.sessions[key] {
		out[k] = v
	}
	return out
}

// Remember stores the given entities for key, creating the session on first
// contact. Existing keys are overwritten: a new utterance of a name replaces
// the one learned earlier.
func (s *Store) Remember(key string, entities map[string]string) {
	if len(entities) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mem, ok := s.sessions[key]
	if !ok {
		mem = make(map[string]string, len(entities))
		s.sessions[key] = mem
	}
	for k, v := range entities {
		mem[k] = v
	}
}

// Len reports how many sessions the store currently holds.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Merge combines remembered memory with freshly extracted entities. Fresh
// values win on key collision; memory fills the gaps. Reversing this
// precedence would change user-visible behavior (a previously learned name
// could no longer be overwritten), so keep it as is.
func Merge(memory, fresh map[string]string) map[string]string {
	merged := make(map[string]string, len(memory)+len(fresh))
	for k, v := range memory {
		merged[k] = v
	}
	for k, v := range fresh {
		merged[k] = v
	}
	return merged
}
