package service

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zaki-44/bio-hackathon/internal/model"
	"github.com/zaki-44/bio-hackathon/internal/storage"
)

// newTestDB opens a private in-memory database with the full schema. A single
// connection keeps every statement on the same memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

type sentMail struct{ to, subject, body string }

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{to, subject, body})
	return f.err
}

func (f *fakeMailer) all() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMail(nil), f.sent...)
}

type env struct {
	db    *gorm.DB
	log   *logrus.Logger
	hook  *logtest.Hook
	mail  *fakeMailer
	files *storage.Store

	auth     AuthService
	apps     ApplicationService
	catalog  CatalogService
	orders   OrderService
	cart     CartService
	checkout CheckoutService
	ratings  RatingService
	delivery DeliveryService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := newTestDB(t)
	log, hook := logtest.NewNullLogger()
	files, err := storage.New(t.TempDir())
	require.NoError(t, err)

	mail := &fakeMailer{}
	notify := NewNotifier(mail, log)
	creds := NewCredentials(bcrypt.MinCost)

	return &env{
		db:       db,
		log:      log,
		hook:     hook,
		mail:     mail,
		files:    files,
		auth:     NewAuthService(db, creds, AuthConfig{Secret: []byte("test-secret")}, log),
		apps:     NewApplicationService(db, creds, files, notify, log),
		catalog:  NewCatalogService(db, files, log),
		orders:   NewOrderService(db, log),
		cart:     NewCartService(db),
		checkout: NewCheckoutService(db, notify, log),
		ratings:  NewRatingService(db, log),
		delivery: NewDeliveryService(db, log),
	}
}

var ctx = context.Background()

var admin = &Identity{UserID: 999, Username: "root", Role: model.RoleAdmin}

func (e *env) user(t *testing.T, name string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		UserType:     role,
		IsActive:     true,
	}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *env) product(t *testing.T, farmer *model.User, name, price, qty string) *model.Product {
	t.Helper()
	p := &model.Product{
		FarmerID:    farmer.ID,
		Name:        name,
		Price:       decimal.RequireFromString(price),
		Quantity:    decimal.RequireFromString(qty),
		Unit:        "kg",
		IsAvailable: true,
	}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func (e *env) reload(t *testing.T, p *model.Product) *model.Product {
	t.Helper()
	var out model.Product
	require.NoError(t, e.db.First(&out, p.ID).Error)
	return &out
}

func pdf(name string) *Upload {
	return &Upload{Filename: name, Content: bytes.NewBufferString("%PDF-1.4 test")}
}

func identityOf(u *model.User) *Identity {
	id := IdentityOf(u)
	return &id
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
