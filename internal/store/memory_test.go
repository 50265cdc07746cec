package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/example/fleetledger/internal/models"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	ctx   context.Context
	owner uuid.UUID
}

func (suite *MemoryStoreSuite) SetupTest() {
	suite.store = NewMemoryStore()
	suite.ctx = context.Background()
	suite.owner = uuid.New()
}

func (suite *MemoryStoreSuite) TestCreateUserAssignsIDAndRejectsDuplicates() {
	user := &models.User{FullName: "Ravi", Phone: "9000000001", Email: "ravi@example.com"}
	require.NoError(suite.T(), suite.store.CreateUser(suite.ctx, user))
	assert.NotEqual(suite.T(), uuid.Nil, user.ID)
	assert.False(suite.T(), user.CreatedAt.IsZero())

	err := suite.store.CreateUser(suite.ctx, &models.User{Phone: "9000000001", Email: "other@example.com"})
	assert.ErrorIs(suite.T(), err, ErrDuplicate)

	err = suite.store.CreateUser(suite.ctx, &models.User{Phone: "9000000002", Email: "ravi@example.com"})
	assert.ErrorIs(suite.T(), err, ErrDuplicate)
}

func (suite *MemoryStoreSuite) TestUserLookups() {
	user := &models.User{FullName: "Ravi", Phone: "9000000001", Email: "ravi@example.com"}
	require.NoError(suite.T(), suite.store.CreateUser(suite.ctx, user))

	byPhone, err := suite.store.GetUserByPhone(suite.ctx, "9000000001")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), user.ID, byPhone.ID)

	byEmail, err := suite.store.GetUserByEmail(suite.ctx, "ravi@example.com")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), user.ID, byEmail.ID)

	_, err = suite.store.GetUserByID(suite.ctx, uuid.New())
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *MemoryStoreSuite) TestVehicleLifecycleIsOwnerScoped() {
	v := &models.Vehicle{OwnerID: suite.owner, VehicleNo: "KA01AB1234", Documents: []string{"rc.pdf"}}
	require.NoError(suite.T(), suite.store.CreateVehicle(suite.ctx, v))

	// mutating the caller's copy must not leak into the store
	v.Documents[0] = "changed.pdf"
	got, err := suite.store.GetVehicle(suite.ctx, v.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"rc.pdf"}, []string(got.Documents))

	other := uuid.New()
	list, err := suite.store.ListVehicles(suite.ctx, other)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), list)

	got.Model = "Tata 1613"
	require.NoError(suite.T(), suite.store.UpdateVehicle(suite.ctx, got))
	list, err = suite.store.ListVehicles(suite.ctx, suite.owner)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), list, 1)
	assert.Equal(suite.T(), "Tata 1613", list[0].Model)

	assert.ErrorIs(suite.T(), suite.store.DeleteVehicle(suite.ctx, other, v.ID), ErrNotFound)
	require.NoError(suite.T(), suite.store.DeleteVehicle(suite.ctx, suite.owner, v.ID))
	_, err = suite.store.GetVehicle(suite.ctx, v.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *MemoryStoreSuite) TestListIncomesFiltersAndPaginates() {
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	for i, status := range []string{models.PaymentPaid, models.PaymentUnpaid, models.PaymentPaid} {
		require.NoError(suite.T(), suite.store.CreateIncome(suite.ctx, &models.IncomeRecord{
			OwnerID:       suite.owner,
			Vehicle:       "KA01AB1234",
			Amount:        decimal.NewNullDecimal(decimal.NewFromInt(int64(100 * (i + 1)))),
			PaymentStatus: status,
			Date:          base.AddDate(0, 0, i),
		}))
	}
	require.NoError(suite.T(), suite.store.CreateIncome(suite.ctx, &models.IncomeRecord{
		OwnerID: uuid.New(), Vehicle: "KA01AB1234", Date: base,
	}))

	all, total, err := suite.store.ListIncomes(suite.ctx, suite.owner, RecordFilter{})
	require.NoError(suite.T(), err)
	assert.EqualValues(suite.T(), 3, total)
	require.Len(suite.T(), all, 3)
	assert.True(suite.T(), all[0].Date.After(all[1].Date), "newest first")

	paid, total, err := suite.store.ListIncomes(suite.ctx, suite.owner, RecordFilter{PaymentStatus: models.PaymentPaid})
	require.NoError(suite.T(), err)
	assert.EqualValues(suite.T(), 2, total)
	assert.Len(suite.T(), paid, 2)

	page, total, err := suite.store.ListIncomes(suite.ctx, suite.owner, RecordFilter{Limit: 2, Offset: 2})
	require.NoError(suite.T(), err)
	assert.EqualValues(suite.T(), 3, total)
	assert.Len(suite.T(), page, 1)

	none, _, err := suite.store.ListIncomes(suite.ctx, suite.owner, RecordFilter{Vehicle: "MH12XY0001"})
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), none)
}

func (suite *MemoryStoreSuite) TestListExpensesIsOwnerScoped() {
	require.NoError(suite.T(), suite.store.CreateExpense(suite.ctx, &models.ExpenseRecord{
		OwnerID: suite.owner, Vehicle: "Y", Documents: []string{"bill.pdf"},
	}))
	require.NoError(suite.T(), suite.store.CreateExpense(suite.ctx, &models.ExpenseRecord{
		OwnerID: uuid.New(), Vehicle: "Y", Documents: []string{"bill.pdf"},
	}))

	list, total, err := suite.store.ListExpenses(suite.ctx, suite.owner, RecordFilter{Vehicle: "Y"})
	require.NoError(suite.T(), err)
	assert.EqualValues(suite.T(), 1, total)
	assert.Len(suite.T(), list, 1)
}

func (suite *MemoryStoreSuite) TestConcurrentWritesAreAllRecorded() {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = suite.store.CreateIncome(suite.ctx, &models.IncomeRecord{OwnerID: suite.owner, Vehicle: "X"})
		}()
	}
	wg.Wait()

	_, total, err := suite.store.ListIncomes(suite.ctx, suite.owner, RecordFilter{})
	require.NoError(suite.T(), err)
	assert.EqualValues(suite.T(), 50, total)
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

// pendingContract exercises any PendingStore the same way.
func pendingContract(t *testing.T, p PendingStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		_, err := p.GetPending(ctx, "9000000009")
		assert.ErrorIs(t, err, ErrNotFound)
		ok, err := p.ConsumePending(ctx, "9000000009", "11111")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("save replaces and consume is single use", func(t *testing.T) {
		expires := time.Now().Add(5 * time.Minute).UTC().Truncate(time.Second)
		require.NoError(t, p.SavePending(ctx, models.PendingSignup{Phone: "9000000001", Code: "11111", ExpiresAt: expires}))
		require.NoError(t, p.SavePending(ctx, models.PendingSignup{
			Phone:     "9000000001",
			Code:      "22222",
			Profile:   models.Profile{FullName: "Ravi"},
			ExpiresAt: expires,
		}))

		got, err := p.GetPending(ctx, "9000000001")
		require.NoError(t, err)
		assert.Equal(t, "22222", got.Code)
		assert.Equal(t, "Ravi", got.Profile.FullName)
		assert.True(t, expires.Equal(got.ExpiresAt))

		ok, err := p.ConsumePending(ctx, "9000000001", "11111")
		require.NoError(t, err)
		assert.False(t, ok, "replaced code must not be accepted")

		ok, err = p.ConsumePending(ctx, "9000000001", "22222")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = p.ConsumePending(ctx, "9000000001", "22222")
		require.NoError(t, err)
		assert.False(t, ok, "a code is consumed at most once")
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, p.SavePending(ctx, models.PendingSignup{Phone: "9000000002", Code: "33333", ExpiresAt: time.Now().Add(time.Minute)}))
		require.NoError(t, p.DeletePending(ctx, "9000000002"))
		_, err := p.GetPending(ctx, "9000000002")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, p.DeletePending(ctx, "9000000002"))
	})

	t.Run("concurrent consume succeeds once", func(t *testing.T) {
		require.NoError(t, p.SavePending(ctx, models.PendingSignup{Phone: "9000000003", Code: "12345", ExpiresAt: time.Now().Add(time.Minute)}))

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := p.ConsumePending(ctx, "9000000003", "12345"); ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
	})
}

func TestMemoryPending(t *testing.T) {
	pendingContract(t, NewMemoryPending())
}
