package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaki-44/bio-hackathon/internal/model"
)

func TestRerateKeepsOneRow(t *testing.T) {
	e := newEnv(t)
	farmer := e.user(t, "fred", model.RoleFarmer)
	buyer := e.user(t, "bea", model.RoleUser)

	first, err := e.ratings.Rate(ctx, buyer.ID, farmer.ID, 4, "good")
	require.NoError(t, err)
	second, err := e.ratings.Rate(ctx, buyer.ID, farmer.ID, 5, "great")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Rating)
	assert.Equal(t, "great", second.Comment)

	sum, err := e.ratings.Summary(ctx, farmer.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, sum.AverageRating)
	assert.Equal(t, 5.0, *sum.AverageRating)
	assert.EqualValues(t, 1, sum.TotalRatings)
	assert.EqualValues(t, 1, sum.Distribution[5])
	assert.Zero(t, sum.Distribution[4])
	assert.Nil(t, sum.UserRating)
}

func TestRateRejects(t *testing.T) {
	e := newEnv(t)
	farmer := e.user(t, "fred", model.RoleFarmer)
	buyer := e.user(t, "bea", model.RoleUser)

	_, err := e.ratings.Rate(ctx, farmer.ID, farmer.ID, 5, "")
	assert.ErrorIs(t, err, ErrSelfRating)
	_, err = e.ratings.Rate(ctx, buyer.ID, farmer.ID, 0, "")
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = e.ratings.Rate(ctx, buyer.ID, farmer.ID, 6, "")
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = e.ratings.Rate(ctx, farmer.ID, buyer.ID, 3, "")
	assert.ErrorIs(t, err, ErrInvalidTarget)
	_, err = e.ratings.Rate(ctx, buyer.ID, 9999, 3, "")
	assert.ErrorIs(t, err, ErrInvalidTarget)
	_, err = e.ratings.Rate(ctx, 0, farmer.ID, 3, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSummary(t *testing.T) {
	e := newEnv(t)
	farmer := e.user(t, "fred", model.RoleFarmer)
	raters := []int{5, 4, 4}
	var last *model.User
	for i, r := range raters {
		last = e.user(t, string(rune('a'+i))+"-rater", model.RoleUser)
		_, err := e.ratings.Rate(ctx, last.ID, farmer.ID, r, "")
		require.NoError(t, err)
	}

	sum, err := e.ratings.Summary(ctx, farmer.ID, last.ID)
	require.NoError(t, err)
	require.NotNil(t, sum.AverageRating)
	assert.Equal(t, 4.33, *sum.AverageRating)
	assert.EqualValues(t, 3, sum.TotalRatings)
	assert.Equal(t, map[int]int64{1: 0, 2: 0, 3: 0, 4: 2, 5: 1}, sum.Distribution)
	require.NotNil(t, sum.UserRating)
	assert.Equal(t, 4, sum.UserRating.Rating)

	list, err := e.ratings.List(ctx, farmer.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestSummaryEmptyAndUnknown(t *testing.T) {
	e := newEnv(t)
	farmer := e.user(t, "fred", model.RoleFarmer)
	buyer := e.user(t, "bea", model.RoleUser)

	sum, err := e.ratings.Summary(ctx, farmer.ID, buyer.ID)
	require.NoError(t, err)
	assert.Nil(t, sum.AverageRating)
	assert.Zero(t, sum.TotalRatings)
	assert.Len(t, sum.Distribution, 5)

	_, err = e.ratings.Summary(ctx, buyer.ID, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}
