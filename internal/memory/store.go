// Package memory holds the facts TerBot remembers about the user and the
// override rules that turn those facts into personalized replies.
package memory

import (
	"maps"
	"sort"
	"strings"
)

// Reader is the read-only view strategies receive
type Reader interface {
	Get(key string) (string, bool)
	Facts() map[string]string
	Len() int
}

// Store is a last-write-wins mapping of fact keys to values.
// It is owned by the turn engine; nothing else mutates it.
type Store struct {
	facts map[string]string
}

// NewStore creates a store seeded with the given facts
func NewStore(initial map[string]string) *Store {
	s := &Store{facts: make(map[string]string, len(initial))}
	for k, v := range initial {
		s.Set(k, v)
	}
	return s
}

func (s *Store) Get(key string) (string, bool) {
	v, ok := s.facts[normalizeKey(key)]
	return v, ok
}

// Set overwrites the fact; empty keys and values are ignored
func (s *Store) Set(key, value string) {
	key = normalizeKey(key)
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return
	}
	s.facts[key] = value
}

// Apply writes every fact in updates
func (s *Store) Apply(updates map[string]string) {
	for k, v := range updates {
		s.Set(k, v)
	}
}

// Facts returns a copy of all facts
func (s *Store) Facts() map[string]string {
	return maps.Clone(s.facts)
}

// Len returns the number of remembered facts
func (s *Store) Len() int {
	return len(s.facts)
}

// Summarize renders facts as one line, sorted by key. Empty facts give "".
func Summarize(facts map[string]string) string {
	if len(facts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(facts))
	for k := range facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, "user's "+k+" is "+facts[k])
	}
	return "Known facts: " + strings.Join(parts, "; ") + "."
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
