package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/zaki-44/bio-hackathon/internal/service"
)

type OrderHTTP struct {
	orders   service.OrderService
	cart     service.CartService
	checkout service.CheckoutService
}

func NewOrderHTTP(orders service.OrderService, cart service.CartService, checkout service.CheckoutService) *OrderHTTP {
	return &OrderHTTP{orders: orders, cart: cart, checkout: checkout}
}

type createOrderReq struct {
	Items []service.OrderLine `json:"items"`
}

func (h *OrderHTTP) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	o, err := h.orders.CreateOrder(c.Request.Context(), identityFrom(c).UserID, req.Items)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"message": "Order created successfully", "order_id": o.ID, "order": o})
}

func (h *OrderHTTP) List(c *gin.Context) {
	orders, err := h.orders.GetOrders(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

func (h *OrderHTTP) Cart(c *gin.Context) {
	items, err := h.cart.Get(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Product.Price.Mul(it.Quantity))
	}
	ok(c, http.StatusOK, gin.H{"items": items, "total": total.Round(2)})
}

type addToCartReq struct {
	ProductID uint            `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

func (h *OrderHTTP) AddToCart(c *gin.Context) {
	var req addToCartReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	it, err := h.cart.Add(c.Request.Context(), identityFrom(c).UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"item": it})
}

func (h *OrderHTTP) RemoveFromCart(c *gin.Context) {
	pid, valid := paramID(c, "product_id")
	if !valid {
		return
	}
	if err := h.cart.Remove(c.Request.Context(), identityFrom(c).UserID, pid); err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Item removed"})
}

func (h *OrderHTTP) ClearCart(c *gin.Context) {
	if err := h.cart.Clear(c.Request.Context(), identityFrom(c).UserID); err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Cart cleared"})
}

func (h *OrderHTTP) Checkout(c *gin.Context) {
	o, err := h.checkout.Checkout(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"message": "Order created successfully", "order_id": o.ID, "order": o})
}
