package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/fleetledger/internal/models"
)

// MemoryStore is a process-lifetime Store. Every mutation is serialised and
// readers receive copies, so a reader never observes a half-written record.
type MemoryStore struct {
	mu       sync.RWMutex
	now      func() time.Time
	users    map[uuid.UUID]models.User
	phones   map[string]uuid.UUID
	emails   map[string]uuid.UUID
	vehicles map[uuid.UUID]models.Vehicle
	incomes  []models.IncomeRecord
	expenses []models.ExpenseRecord
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      time.Now,
		users:    make(map[uuid.UUID]models.User),
		phones:   make(map[string]uuid.UUID),
		emails:   make(map[string]uuid.UUID),
		vehicles: make(map[uuid.UUID]models.Vehicle),
	}
}

func (s *MemoryStore) stamp(b *models.BaseModel) {
	b.EnsureID()
	now := s.now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.phones[user.Phone]; ok {
		return ErrDuplicate
	}
	if _, ok := s.emails[user.Email]; ok && user.Email != "" {
		return ErrDuplicate
	}

	s.stamp(&user.BaseModel)
	s.users[user.ID] = *user
	s.phones[user.Phone] = user.ID
	if user.Email != "" {
		s.emails[user.Email] = user.ID
	}
	return nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	s.mu.RLock()
	id, ok := s.phones[phone]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetUserByID(ctx, id)
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	id, ok := s.emails[email]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetUserByID(ctx, id)
}

func (s *MemoryStore) CreateVehicle(_ context.Context, vehicle *models.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&vehicle.BaseModel)
	s.vehicles[vehicle.ID] = cloneVehicle(*vehicle)
	return nil
}

func (s *MemoryStore) GetVehicle(_ context.Context, id uuid.UUID) (*models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vehicles[id]
	if !ok {
		return nil, ErrNotFound
	}
	v = cloneVehicle(v)
	return &v, nil
}

func (s *MemoryStore) ListVehicles(_ context.Context, ownerID uuid.UUID) ([]models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Vehicle, 0)
	for _, v := range s.vehicles {
		if v.OwnerID == ownerID {
			out = append(out, cloneVehicle(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateVehicle(_ context.Context, vehicle *models.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.vehicles[vehicle.ID]
	if !ok || existing.OwnerID != vehicle.OwnerID {
		return ErrNotFound
	}
	vehicle.CreatedAt = existing.CreatedAt
	vehicle.UpdatedAt = s.now()
	s.vehicles[vehicle.ID] = cloneVehicle(*vehicle)
	return nil
}

func (s *MemoryStore) DeleteVehicle(_ context.Context, ownerID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.vehicles[id]
	if !ok || existing.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(s.vehicles, id)
	return nil
}

func (s *MemoryStore) CreateIncome(_ context.Context, income *models.IncomeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&income.BaseModel)
	rec := *income
	rec.Documents = cloneStrings(income.Documents)
	s.incomes = append(s.incomes, rec)
	return nil
}

func (s *MemoryStore) ListIncomes(_ context.Context, ownerID uuid.UUID, filter RecordFilter) ([]models.IncomeRecord, int64, error) {
	s.mu.RLock()
	out := make([]models.IncomeRecord, 0)
	for _, rec := range s.incomes {
		if rec.OwnerID != ownerID {
			continue
		}
		if filter.Vehicle != "" && rec.Vehicle != filter.Vehicle {
			continue
		}
		if filter.PaymentStatus != "" && rec.PaymentStatus != filter.PaymentStatus {
			continue
		}
		rec.Documents = cloneStrings(rec.Documents)
		out = append(out, rec)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	total := int64(len(out))
	return paginate(out, filter), total, nil
}

func (s *MemoryStore) CreateExpense(_ context.Context, expense *models.ExpenseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&expense.BaseModel)
	rec := *expense
	rec.Documents = cloneStrings(expense.Documents)
	s.expenses = append(s.expenses, rec)
	return nil
}

func (s *MemoryStore) ListExpenses(_ context.Context, ownerID uuid.UUID, filter RecordFilter) ([]models.ExpenseRecord, int64, error) {
	s.mu.RLock()
	out := make([]models.ExpenseRecord, 0)
	for _, rec := range s.expenses {
		if rec.OwnerID != ownerID {
			continue
		}
		if filter.Vehicle != "" && rec.Vehicle != filter.Vehicle {
			continue
		}
		rec.Documents = cloneStrings(rec.Documents)
		out = append(out, rec)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	total := int64(len(out))
	return paginate(out, filter), total, nil
}

func paginate[T any](items []T, filter RecordFilter) []T {
	if filter.Offset > 0 {
		if filter.Offset >= len(items) {
			return items[:0]
		}
		items = items[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(items) {
		items = items[:filter.Limit]
	}
	return items
}

func cloneVehicle(v models.Vehicle) models.Vehicle {
	v.Documents = cloneStrings(v.Documents)
	return v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
