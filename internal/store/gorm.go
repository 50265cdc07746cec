package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/fleetledger/internal/models"
)

// GormStore is a Store backed by PostgreSQL through gorm. The *gorm.DB must be
// opened with TranslateError so unique violations surface as ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

func (s *GormStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("phone = ?", phone).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) CreateVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	return translate(s.db.WithContext(ctx).Create(vehicle).Error)
}

func (s *GormStore) GetVehicle(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := s.db.WithContext(ctx).First(&vehicle, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &vehicle, nil
}

func (s *GormStore) ListVehicles(ctx context.Context, ownerID uuid.UUID) ([]models.Vehicle, error) {
	vehicles := make([]models.Vehicle, 0)
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&vehicles).Error
	return vehicles, translate(err)
}

func (s *GormStore) UpdateVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	res := s.db.WithContext(ctx).
		Model(&models.Vehicle{}).
		Where("id = ? AND owner_id = ?", vehicle.ID, vehicle.OwnerID).
		Select("*").
		Omit("id", "created_at", "owner_id").
		Updates(vehicle)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteVehicle(ctx context.Context, ownerID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&models.Vehicle{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateIncome(ctx context.Context, income *models.IncomeRecord) error {
	return translate(s.db.WithContext(ctx).Create(income).Error)
}

func (s *GormStore) ListIncomes(ctx context.Context, ownerID uuid.UUID, filter RecordFilter) ([]models.IncomeRecord, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.IncomeRecord{}).Where("owner_id = ?", ownerID)
	if filter.Vehicle != "" {
		query = query.Where("vehicle = ?", filter.Vehicle)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	incomes := make([]models.IncomeRecord, 0)
	err := withPage(query, filter).Order("date DESC").Find(&incomes).Error
	return incomes, total, translate(err)
}

func (s *GormStore) CreateExpense(ctx context.Context, expense *models.ExpenseRecord) error {
	return translate(s.db.WithContext(ctx).Create(expense).Error)
}

func (s *GormStore) ListExpenses(ctx context.Context, ownerID uuid.UUID, filter RecordFilter) ([]models.ExpenseRecord, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.ExpenseRecord{}).Where("owner_id = ?", ownerID)
	if filter.Vehicle != "" {
		query = query.Where("vehicle = ?", filter.Vehicle)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	expenses := make([]models.ExpenseRecord, 0)
	err := withPage(query, filter).Order("date DESC").Find(&expenses).Error
	return expenses, total, translate(err)
}

func withPage(query *gorm.DB, filter RecordFilter) *gorm.DB {
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	return query
}
