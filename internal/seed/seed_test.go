package seed

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zaki-44/bio-hackathon/internal/model"
	"github.com/zaki-44/bio-hackathon/internal/service"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

func TestSeedIsIdempotent(t *testing.T) {
	db := openDB(t)
	log, _ := logtest.NewNullLogger()
	creds := service.NewCredentials(bcrypt.MinCost)
	ctx := context.Background()

	res, err := Products(ctx, db, creds, log)
	require.NoError(t, err)
	assert.Equal(t, Result{Users: 1, Products: len(demoProducts)}, res)

	res, err = Delivery(ctx, db, creds, log)
	require.NoError(t, err)
	assert.Equal(t, Result{Users: 1, Packages: len(demoPackages)}, res)

	res, err = Products(ctx, db, creds, log)
	require.NoError(t, err)
	assert.Zero(t, res)
	res, err = Delivery(ctx, db, creds, log)
	require.NoError(t, err)
	assert.Zero(t, res)

	var farmer model.User
	require.NoError(t, db.Where("username = ?", "farmer_john").First(&farmer).Error)
	assert.True(t, creds.Verify(farmer.PasswordHash, demoPassword))
}

func TestSeedRefusesRoleClash(t *testing.T) {
	db := openDB(t)
	log, _ := logtest.NewNullLogger()
	require.NoError(t, db.Create(&model.User{Username: "farmer_john", Email: "x@x", PasswordHash: "x", UserType: model.RoleUser, IsActive: true}).Error)

	_, err := Products(context.Background(), db, service.NewCredentials(bcrypt.MinCost), log)
	assert.Error(t, err)
}
