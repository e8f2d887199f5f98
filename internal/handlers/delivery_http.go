package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zaki-44/bio-hackathon/internal/model"
	"github.com/zaki-44/bio-hackathon/internal/service"
)

type DeliveryHTTP struct {
	delivery service.DeliveryService
}

func NewDeliveryHTTP(delivery service.DeliveryService) *DeliveryHTTP {
	return &DeliveryHTTP{delivery: delivery}
}

func (h *DeliveryHTTP) List(c *gin.Context) {
	pkgs, err := h.delivery.ListPackages(c.Request.Context(), identityFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"count": len(pkgs), "packages": pkgs})
}

func (h *DeliveryHTTP) Create(c *gin.Context) {
	var in service.PackageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	pkg, err := h.delivery.CreatePackage(c.Request.Context(), identityFrom(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"message": "Package created", "package": pkg})
}

type statusReq struct {
	Status model.PackageStatus `json:"status"`
}

func (h *DeliveryHTTP) UpdateStatus(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	pkg, err := h.delivery.UpdateStatus(c.Request.Context(), identityFrom(c), id, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Package status updated", "package": pkg})
}

func (h *DeliveryHTTP) Track(c *gin.Context) {
	pkg, err := h.delivery.Track(c.Request.Context(), c.Param("tracking_number"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"package": pkg})
}
