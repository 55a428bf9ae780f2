package session

import (
	"sync"

	"github.com/google/uuid"
)

// Store holds the conversational context bag, the active language and the
// session identifier.
//
// It owns the invariant that the context's language always equals the
// store's language: every replace re-asserts it, whatever the backend sent.
type Store struct {
	id string

	mu       sync.Mutex
	language Language
	ctx      Context
}

type StoreOption func(*Store)

// WithSessionID pins the session identifier instead of generating one.
func WithSessionID(id string) StoreOption {
	return func(s *Store) {
		if id != "" {
			s.id = id
		}
	}
}

// NewStore creates a store with a generated SessionID and a language-only context.
func NewStore(lang Language, options ...StoreOption) *Store {
	if !lang.Valid() {
		lang = DefaultLanguage
	}
	s := &Store{
		id:       uuid.NewString(),
		language: lang,
		ctx:      LanguageOnly(lang),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// SessionID is fixed for the lifetime of the store.
func (s *Store) SessionID() string {
	return s.id
}

func (s *Store) Language() Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// SetLanguage switches the active language. This is the only way the
// context's language can change.
func (s *Store) SetLanguage(lang Language) error {
	if !lang.Valid() {
		return ErrUnknownLanguage
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
	s.ctx = s.ctx.WithLanguage(lang)
	return nil
}

// Snapshot returns a deep copy of the current context.
func (s *Store) Snapshot() Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx.Clone()
}

// Get reads a single key from the current context.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.ctx[key]
	return v, ok
}

// Replace swaps the whole mapping for next, overwriting its language with
// the store's own.
func (s *Store) Replace(next Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = next.WithLanguage(s.language)
}

// ClearToLanguage drops everything but the language.
func (s *Store) ClearToLanguage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = LanguageOnly(s.language)
}
