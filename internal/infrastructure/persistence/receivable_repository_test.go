package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/commerce/backend/internal/domain/receivable"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func newTestReceivableAggregate(t *testing.T) *receivable.Receivable {
	t.Helper()
	total := valueobject.NewMoneyBRL(decimal.NewFromFloat(300.00))
	installments, err := receivable.GenerateInstallments(total, time.Now(), receivable.CustomTerm(3))
	require.NoError(t, err)
	rec, err := receivable.NewReceivable(uuid.New(), "REC-20260831-00001", uuid.New(), "Venda balcao", total, time.Now(), installments)
	require.NoError(t, err)
	return rec
}

func TestGormReceivableRepository_FindByIDForTenant(t *testing.T) {
	t.Run("returns nil without error when receivable does not exist", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormReceivableRepository(gormDB)

		tenantID := uuid.New()
		id := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "receivables"`).
			WithArgs(tenantID, id, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		rec, err := repo.FindByIDForTenant(context.Background(), tenantID, id)

		assert.NoError(t, err)
		assert.Nil(t, rec)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates database errors", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormReceivableRepository(gormDB)

		mock.ExpectQuery(`SELECT \* FROM "receivables"`).
			WillReturnError(assert.AnError)

		rec, err := repo.FindByIDForTenant(context.Background(), uuid.New(), uuid.New())

		assert.Error(t, err)
		assert.Nil(t, rec)
	})
}

func TestGormReceivableRepository_SaveWithLock(t *testing.T) {
	t.Run("returns concurrency conflict when version guard matches no row", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormReceivableRepository(gormDB)

		rec := newTestReceivableAggregate(t)
		rec.Version = 3

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "receivables" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.SaveWithLock(context.Background(), rec)

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the update fails", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormReceivableRepository(gormDB)

		rec := newTestReceivableAggregate(t)
		rec.Version = 2

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "receivables" SET`).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err := repo.SaveWithLock(context.Background(), rec)

		require.Error(t, err)
		assert.NotErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormReceivableRepository_GenerateReceivableNumber(t *testing.T) {
	t.Run("starts at 00001 when the day has no receivables", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormReceivableRepository(gormDB)

		mock.ExpectQuery(`SELECT "receivable_number" FROM "receivables"`).
			WillReturnRows(sqlmock.NewRows([]string{"receivable_number"}))

		number, err := repo.GenerateReceivableNumber(context.Background(), uuid.New())

		require.NoError(t, err)
		expected := fmt.Sprintf("REC-%s-00001", time.Now().Format("20060102"))
		assert.Equal(t, expected, number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("increments the highest number of the day", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormReceivableRepository(gormDB)

		date := time.Now().Format("20060102")
		mock.ExpectQuery(`SELECT "receivable_number" FROM "receivables"`).
			WillReturnRows(sqlmock.NewRows([]string{"receivable_number"}).
				AddRow(fmt.Sprintf("REC-%s-00042", date)))

		number, err := repo.GenerateReceivableNumber(context.Background(), uuid.New())

		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("REC-%s-00043", date), number)
	})
}

func TestGormPaymentRepository_SaveWithLock(t *testing.T) {
	newTestPayment := func(t *testing.T) *receivable.Payment {
		t.Helper()
		applied := valueobject.NewMoneyBRL(decimal.NewFromFloat(50.00))
		p, err := receivable.NewPayment(uuid.New(), "PAG-20260831-00001", uuid.New(), nil,
			receivable.PaymentKindPartial, applied, receivable.PaymentAdjustments{}, "PIX", time.Now())
		require.NoError(t, err)
		return p
	}

	t.Run("persists reversal fields under version guard", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPaymentRepository(gormDB)

		payment := newTestPayment(t)
		require.NoError(t, payment.MarkReversed("lancamento duplicado"))

		mock.ExpectExec(`UPDATE "receivable_payments" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SaveWithLock(context.Background(), payment)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns concurrency conflict on stale version", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPaymentRepository(gormDB)

		payment := newTestPayment(t)
		require.NoError(t, payment.MarkReversed("estorno"))

		mock.ExpectExec(`UPDATE "receivable_payments" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), payment)

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestGormOrderGateway_MarkAccountsLaunched(t *testing.T) {
	t.Run("flags the order", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		gateway := NewGormOrderGateway(gormDB)

		tenantID := uuid.New()
		orderID := uuid.New()

		mock.ExpectExec(`UPDATE "orders" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := gateway.MarkAccountsLaunched(context.Background(), tenantID, orderID)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports missing order", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		gateway := NewGormOrderGateway(gormDB)

		mock.ExpectExec(`UPDATE "orders" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := gateway.ClearAccountsLaunched(context.Background(), uuid.New(), uuid.New())

		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}
