package persistence

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/tempcover/backend/internal/domain/policy"
	"github.com/tempcover/backend/internal/infrastructure/persistence/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupPolicyTestDB opens an in-memory SQLite database with the policy schema
func setupPolicyTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Every pooled connection would otherwise get its own empty database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

// newMockDatabase creates a Database instance with a mocked SQL connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock
}

var testStart = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestPolicy(t *testing.T, number, paymentID string) *policy.Policy {
	t.Helper()

	in := policy.FinalizeInput{
		Registration:    "ab12 cde",
		Make:            "Ford",
		Model:           "Fiesta",
		Year:            2019,
		StartAt:         testStart.Format(time.RFC3339),
		EndAt:           testStart.Add(24 * time.Hour).Format(time.RFC3339),
		DurationMs:      (24 * time.Hour).Milliseconds(),
		PricePence:      2499,
		FirstName:       "Sam",
		LastName:        "Taylor",
		DateOfBirth:     "1990-05-01",
		Email:           fmt.Sprintf("%s@example.com", paymentID),
		LicenceType:     "FULL_UK",
		AddressLine1:    "1 High Street",
		City:            "Leeds",
		Postcode:        "ls1 1aa",
		PaymentProvider: policy.PaymentProviderStripe,
		PaymentID:       paymentID,
		PaymentStatus:   "paid",
	}
	p, err := policy.NewPolicy(in, number)
	require.NoError(t, err)
	return p
}
