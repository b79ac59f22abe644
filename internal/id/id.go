package id

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Kind is the entity an id is generated for. It doubles as the id prefix.
type Kind string

const (
	KindSignoff Kind = "signoff"
	KindDiagram Kind = "diagram"
)

// Provider generates ids for rows appended by the write path.
type Provider interface {
	New(kind Kind) (string, error)
}

// Format joins a kind and a unique token into an id.
func Format(kind Kind, token string) string {
	return string(kind) + "-" + token
}

// FormatSeq formats a sequence-numbered id, e.g. signoff-00001.
func FormatSeq(kind Kind, seq int) string {
	return Format(kind, fmt.Sprintf("%05d", seq))
}

// UUIDProvider issues time-ordered UUIDv7 tokens, so ids sort by creation.
type UUIDProvider struct{}

func (UUIDProvider) New(kind Kind) (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		u, err = uuid.NewRandom()
		if err != nil {
			return "", fmt.Errorf("generate %s id: %w", kind, err)
		}
	}
	return Format(kind, u.String()), nil
}

// Sequence issues zero-padded counters per kind. It is deterministic and
// meant for tests and seeding.
type Sequence struct {
	mu   sync.Mutex
	next map[Kind]int
}

// NewSequence returns a Sequence starting at 1 for every kind.
func NewSequence() *Sequence {
	return &Sequence{next: make(map[Kind]int)}
}

func (s *Sequence) New(kind Kind) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next[kind]++
	return FormatSeq(kind, s.next[kind]), nil
}
