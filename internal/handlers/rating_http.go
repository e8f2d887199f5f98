package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zaki-44/bio-hackathon/internal/service"
)

type RatingHTTP struct {
	ratings service.RatingService
}

func NewRatingHTTP(ratings service.RatingService) *RatingHTTP {
	return &RatingHTTP{ratings: ratings}
}

type rateReq struct {
	Rating  *int   `json:"rating"`
	Comment string `json:"comment"`
}

func (h *RatingHTTP) Rate(c *gin.Context) {
	farmerID, valid := paramID(c, "id")
	if !valid {
		return
	}
	var req rateReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Rating == nil {
		writeError(c, service.ErrInvalidRating)
		return
	}
	r, err := h.ratings.Rate(c.Request.Context(), identityFrom(c).UserID, farmerID, *req.Rating, req.Comment)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Rating submitted successfully", "rating": r})
}

// Summary includes the caller's own rating when a session is present.
func (h *RatingHTTP) Summary(c *gin.Context) {
	farmerID, valid := paramID(c, "id")
	if !valid {
		return
	}
	var viewer uint
	if id := identityFrom(c); id != nil {
		viewer = id.UserID
	}
	ctx := c.Request.Context()
	sum, err := h.ratings.Summary(ctx, farmerID, viewer)
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := h.ratings.List(ctx, farmerID)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"summary": sum, "ratings": list})
}
