package repository

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/VeliorGroup/car-rental-sub003/app/models"
	"github.com/VeliorGroup/car-rental-sub003/internal/pkg/env"
)

// openTestDB connects to the MySQL instance named by the TEST_DB_* env
// variables and skips the test when none is reachable.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	host := env.GetEnv("TEST_DB_HOST", "")
	if host == "" {
		t.Skip("TEST_DB_HOST not set; skipping database-backed test")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("TEST_DB_USER", "root"),
		env.GetEnv("TEST_DB_PASSWORD", ""),
		host,
		env.GetEnv("TEST_DB_PORT", "3306"),
		env.GetEnv("TEST_DB_NAME", "car_rental_test"),
	)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Skipf("test database unreachable: %v", err)
	}

	require.NoError(t, db.AutoMigrate(&models.Subscription{}))
	t.Cleanup(func() {
		db.Exec("DELETE FROM subscriptions")
	})
	return db
}

func TestExtendPeriodEndConcurrentExtensionsStack(t *testing.T) {
	db := openTestDB(t)
	repo := NewSubscriptionRepository(db)

	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(30 * 24 * time.Hour)
	require.NoError(t, repo.Create(&models.Subscription{
		TenantID:           1,
		PlanID:             1,
		Status:             models.SubscriptionStatusActive,
		BillingInterval:    models.SubscriptionIntervalMonth,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   end,
	}))

	const extensions = 4
	year := 365 * 24 * time.Hour

	var wg sync.WaitGroup
	for i := 0; i < extensions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.ExtendPeriodEnd(1, year); err != nil {
				t.Errorf("ExtendPeriodEnd error: %v", err)
			}
		}()
	}
	wg.Wait()

	sub, err := repo.GetByTenantID(1)
	require.NoError(t, err)
	want := end.Add(extensions * year)
	assert.WithinDuration(t, want, sub.CurrentPeriodEnd, time.Second,
		"every concurrent extension must land")
}

func TestExtendPeriodEndUnknownTenant(t *testing.T) {
	db := openTestDB(t)
	repo := NewSubscriptionRepository(db)

	err := repo.ExtendPeriodEnd(99, 24*time.Hour)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
