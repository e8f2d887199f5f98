package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zaki-44/bio-hackathon/internal/metrics"
	"github.com/zaki-44/bio-hackathon/internal/model"
)

type RatingService interface {
	Rate(ctx context.Context, userID, farmerID uint, rating int, comment string) (*model.FarmerRating, error)
	Summary(ctx context.Context, farmerID uint, viewerID uint) (*RatingSummary, error)
	List(ctx context.Context, farmerID uint) ([]model.FarmerRating, error)
}

// RatingSummary aggregates a farmer's ratings. Distribution is keyed by star
// value and always holds all five keys.
type RatingSummary struct {
	FarmerID      uint                `json:"farmer_id"`
	AverageRating *float64            `json:"average_rating"`
	TotalRatings  int64               `json:"total_ratings"`
	Distribution  map[int]int64       `json:"rating_distribution"`
	UserRating    *model.FarmerRating `json:"user_rating,omitempty"`
}

type ratingService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewRatingService(db *gorm.DB, log logrus.FieldLogger) RatingService {
	return &ratingService{db: db, log: log}
}

func (s *ratingService) Rate(ctx context.Context, userID, farmerID uint, rating int, comment string) (*model.FarmerRating, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	if userID == farmerID {
		return nil, ErrSelfRating
	}
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	r := model.FarmerRating{
		FarmerID: farmerID,
		UserID:   userID,
		Rating:   rating,
		Comment:  strings.TrimSpace(comment),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var farmer model.User
		err := tx.Select("id", "user_type").First(&farmer, farmerID).Error
		if isNotFound(err) || (err == nil && farmer.UserType != model.RoleFarmer) {
			return ErrInvalidTarget
		}
		if err != nil {
			return err
		}

		// one row per (farmer, user): a second rating replaces the first
		now := time.Now()
		r.CreatedAt, r.UpdatedAt = now, now
		err = tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "farmer_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "updated_at"}),
		}).Create(&r).Error
		if err != nil {
			return err
		}
		return tx.Where("farmer_id = ? AND user_id = ?", farmerID, userID).First(&r).Error
	})
	if err != nil {
		return nil, internal("rate farmer", err)
	}

	metrics.RatingSubmitted()
	s.log.WithFields(logrus.Fields{"farmer_id": farmerID, "user_id": userID, "rating": rating}).Info("farmer rated")
	return &r, nil
}

func (s *ratingService) Summary(ctx context.Context, farmerID uint, viewerID uint) (*RatingSummary, error) {
	db := s.db.WithContext(ctx)
	var farmer model.User
	err := db.Select("id", "user_type").First(&farmer, farmerID).Error
	if isNotFound(err) || (err == nil && farmer.UserType != model.RoleFarmer) {
		return nil, notFoundf("farmer not found")
	}
	if err != nil {
		return nil, internal("rating summary", err)
	}

	sum := &RatingSummary{FarmerID: farmerID, Distribution: map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	var rows []struct {
		Rating int
		N      int64
	}
	err = db.Model(&model.FarmerRating{}).
		Select("rating, count(*) AS n").
		Where("farmer_id = ?", farmerID).
		Group("rating").Scan(&rows).Error
	if err != nil {
		return nil, internal("rating summary", err)
	}
	var total int64
	for _, r := range rows {
		sum.Distribution[r.Rating] = r.N
		sum.TotalRatings += r.N
		total += int64(r.Rating) * r.N
	}
	sum.AverageRating = average(total, sum.TotalRatings)

	if viewerID != 0 {
		var mine model.FarmerRating
		err := db.Where("farmer_id = ? AND user_id = ?", farmerID, viewerID).First(&mine).Error
		switch {
		case err == nil:
			sum.UserRating = &mine
		case !isNotFound(err):
			return nil, internal("rating summary", err)
		}
	}
	return sum, nil
}

func (s *ratingService) List(ctx context.Context, farmerID uint) ([]model.FarmerRating, error) {
	var out []model.FarmerRating
	err := s.db.WithContext(ctx).
		Where("farmer_id = ?", farmerID).
		Order("updated_at desc, id desc").
		Find(&out).Error
	if err != nil {
		return nil, internal("list ratings", err)
	}
	return out, nil
}

// farmerRatingStats returns the rounded average (nil without ratings) and the
// number of ratings for one farmer.
func farmerRatingStats(db *gorm.DB, farmerID uint) (*float64, int64, error) {
	var row struct {
		Total int64
		N     int64
	}
	err := db.Model(&model.FarmerRating{}).
		Select("COALESCE(SUM(rating), 0) AS total, COUNT(*) AS n").
		Where("farmer_id = ?", farmerID).
		Scan(&row).Error
	if err != nil {
		return nil, 0, err
	}
	return average(row.Total, row.N), row.N, nil
}

func average(total, n int64) *float64 {
	if n == 0 {
		return nil
	}
	avg := math.Round(float64(total)/float64(n)*100) / 100
	return &avg
}
