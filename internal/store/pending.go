package store

import (
	"context"
	"sync"

	"github.com/example/fleetledger/internal/models"
)

// MemoryPending is a PendingStore held in process memory.
type MemoryPending struct {
	mu      sync.Mutex
	entries map[string]models.PendingSignup
}

func NewMemoryPending() *MemoryPending {
	return &MemoryPending{entries: make(map[string]models.PendingSignup)}
}

func (p *MemoryPending) SavePending(_ context.Context, pending models.PendingSignup) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries[pending.Phone] = pending
	return nil
}

func (p *MemoryPending) GetPending(_ context.Context, phone string) (*models.PendingSignup, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[phone]
	if !ok {
		return nil, ErrNotFound
	}
	return &entry, nil
}

func (p *MemoryPending) DeletePending(_ context.Context, phone string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.entries, phone)
	return nil
}

func (p *MemoryPending) ConsumePending(_ context.Context, phone, code string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[phone]
	if !ok || entry.Code != code {
		return false, nil
	}
	delete(p.entries, phone)
	return true, nil
}
