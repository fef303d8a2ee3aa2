package id

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator creates opaque IDs for groups, periods, payments and draws.
type Generator interface {
	NewID() (string, error)
}

// UUIDGenerator issues time-ordered UUIDv7 values so primary keys sort by creation.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() (string, error) {
	v, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return v.String(), nil
}

// Sequence returns prefix-1, prefix-2, ... and is meant for tests.
type Sequence struct {
	Prefix string

	mu   sync.Mutex
	next int
}

func (s *Sequence) NewID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("%s-%d", s.Prefix, s.next), nil
}
