package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/zaki-44/bio-hackathon/internal/model"
)

func TestErrorMatchesSentinelAfterRewording(t *testing.T) {
	err := ErrInsufficientStock.WithMessage("product %s is short", "Kale")
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.NotErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, "product Kale is short", err.Error())
}

func TestInternalWrapsOnlyForeignErrors(t *testing.T) {
	cause := errors.New("connection reset")
	err := internal("list orders", cause)
	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindInternal, KindOf(err))

	assert.Same(t, ErrNotFound, internal("x", ErrNotFound))
	assert.Equal(t, KindInternal, KindOf(fmt.Errorf("plain")))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func TestIdentityRequire(t *testing.T) {
	var nobody *Identity
	assert.ErrorIs(t, nobody.Require(model.RoleUser), ErrUnauthenticated)

	id := &Identity{UserID: 1, Role: model.RoleUser}
	assert.NoError(t, id.Require(model.RoleUser, model.RoleAdmin))
	err := id.Require(model.RoleTransporter, model.RoleAdmin)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), "transporter, admin")
}
