package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zaki-44/bio-hackathon/internal/service"
)

type ProductHTTP struct {
	catalog service.CatalogService
}

func NewProductHTTP(catalog service.CatalogService) *ProductHTTP {
	return &ProductHTTP{catalog: catalog}
}

func (h *ProductHTTP) List(c *gin.Context) {
	f := service.ProductFilter{Category: c.Query("category")}
	if v := c.Query("farmer_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			badRequest(c, "invalid farmer_id")
			return
		}
		f.FarmerID = uint(id)
	}
	ps, err := h.catalog.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"count": len(ps), "products": ps})
}

type productReq struct {
	Name        string      `json:"name" form:"name"`
	Description string      `json:"description" form:"description"`
	Price       json.Number `json:"price" form:"price"`
	Quantity    json.Number `json:"quantity" form:"quantity"`
	Unit        string      `json:"unit" form:"unit"`
	Category    string      `json:"category" form:"category"`
	Location    string      `json:"location" form:"location"`
}

func (h *ProductHTTP) Create(c *gin.Context) {
	if !isMultipart(c) {
		// JSON or a plain form, without a photo
		var req productReq
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		h.create(c, service.ProductInput{
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price.String(),
			Quantity:    req.Quantity.String(),
			Unit:        req.Unit,
			Category:    req.Category,
			Location:    req.Location,
		}, nil)
		return
	}

	photo, closePhoto, err := formUpload(c, "photo")
	if err != nil {
		writeError(c, err)
		return
	}
	defer closePhoto()
	h.create(c, service.ProductInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Price:       c.PostForm("price"),
		Quantity:    c.PostForm("quantity"),
		Unit:        c.PostForm("unit"),
		Category:    c.PostForm("category"),
		Location:    c.PostForm("location"),
	}, photo)
}

func (h *ProductHTTP) create(c *gin.Context, in service.ProductInput, photo *service.Upload) {
	p, err := h.catalog.CreateProduct(c.Request.Context(), identityFrom(c), in, photo)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"message": "Product created successfully", "product": p})
}

func (h *ProductHTTP) Get(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	p, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"product": p})
}

func (h *ProductHTTP) Search(c *gin.Context) {
	q := c.Query("q")
	ps, err := h.catalog.SearchByName(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"query": q, "count": len(ps), "products": ps})
}

func (h *ProductHTTP) Photo(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	path, mime, err := h.catalog.Photo(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Type", mime)
	c.File(path)
}
