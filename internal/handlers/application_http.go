package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zaki-44/bio-hackathon/internal/model"
	"github.com/zaki-44/bio-hackathon/internal/service"
)

// ApplicationHTTP serves the admin review endpoints.
type ApplicationHTTP struct {
	apps service.ApplicationService
}

func NewApplicationHTTP(apps service.ApplicationService) *ApplicationHTTP {
	return &ApplicationHTTP{apps: apps}
}

func (h *ApplicationHTTP) List(c *gin.Context) {
	apps, err := h.apps.List(c.Request.Context(), identityFrom(c), model.ApplicationStatus(c.Query("status")))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"count": len(apps), "applications": apps})
}

func (h *ApplicationHTTP) Stats(c *gin.Context) {
	st, err := h.apps.Stats(c.Request.Context(), identityFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"stats": st})
}

func (h *ApplicationHTTP) Approve(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	res, err := h.apps.Approve(c.Request.Context(), identityFrom(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	msg := "Farmer application approved successfully"
	if res.AlreadyApproved {
		msg = "Application was already approved"
	}
	ok(c, http.StatusOK, gin.H{
		"message":          msg,
		"application":      res.Application,
		"user":             res.User,
		"user_created":     res.UserCreated,
		"already_approved": res.AlreadyApproved,
	})
}

type denyReq struct {
	Reason string `json:"reason"`
}

func (h *ApplicationHTTP) Deny(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	var req denyReq
	// the body is optional
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}
	app, err := h.apps.Deny(c.Request.Context(), identityFrom(c), id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Farmer application denied", "application": app})
}

func (h *ApplicationHTTP) Certification(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	path, err := h.apps.Certification(c.Request.Context(), identityFrom(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.File(path)
}
