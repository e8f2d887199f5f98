package service

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/zaki-44/bio-hackathon/internal/metrics"
	"github.com/zaki-44/bio-hackathon/internal/model"
)

type OrderService interface {
	CreateOrder(ctx context.Context, userID uint, lines []OrderLine) (*model.Order, error)
	GetOrders(ctx context.Context, userID uint) ([]model.Order, error)
}

type OrderLine struct {
	ProductID uint            `json:"id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type orderService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewOrderService(db *gorm.DB, log logrus.FieldLogger) OrderService {
	return &orderService{db: db, log: log}
}

func (s *orderService) CreateOrder(ctx context.Context, userID uint, lines []OrderLine) (*model.Order, error) {
	if len(lines) == 0 {
		metrics.OrderRejected(ErrEmptyCart.Code)
		return nil, ErrEmptyCart
	}
	var order *model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = placeOrder(tx, userID, lines)
		return err
	})
	if err != nil {
		return nil, orderFailed(err)
	}
	logOrder(s.log, order)
	return order, nil
}

// placeOrder converts lines into an order inside tx. Lines without a product
// id or a positive quantity, and lines naming products that do not exist, are
// dropped. Any remaining product that cannot cover its line aborts the whole
// order. Product rows are locked in ascending id order so two concurrent
// orders over the same products cannot deadlock.
func placeOrder(tx *gorm.DB, userID uint, lines []OrderLine) (*model.Order, error) {
	want := make(map[uint]decimal.Decimal)
	for _, l := range lines {
		if l.ProductID == 0 || !l.Quantity.IsPositive() {
			continue
		}
		want[l.ProductID] = want[l.ProductID].Add(l.Quantity)
	}
	if len(want) == 0 {
		return nil, ErrEmptyCart
	}
	ids := make([]uint, 0, len(want))
	for id := range want {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var products []model.Product
	if err := forUpdate(tx).Where("id IN ?", ids).Order("id").Find(&products).Error; err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrEmptyCart
	}

	order := &model.Order{UserID: userID, Status: model.OrderPending, TotalAmount: decimal.Zero}
	for i := range products {
		p := &products[i]
		qty := want[p.ID]
		if !p.IsAvailable || p.Quantity.LessThan(qty) {
			return nil, ErrInsufficientStock.WithMessage("product %s is not available in requested quantity", p.Name)
		}
		p.Quantity = p.Quantity.Sub(qty)
		if !p.Quantity.IsPositive() {
			p.IsAvailable = false
		}
		err := tx.Model(p).Updates(map[string]any{
			"quantity":     p.Quantity,
			"is_available": p.IsAvailable,
		}).Error
		if err != nil {
			return nil, err
		}

		order.TotalAmount = order.TotalAmount.Add(p.Price.Mul(qty))
		order.Items = append(order.Items, model.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    qty,
			Price:       p.Price,
		})
	}
	order.TotalAmount = order.TotalAmount.Round(2)

	if err := tx.Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func orderFailed(err error) error {
	switch {
	case errors.Is(err, ErrEmptyCart):
		metrics.OrderRejected(ErrEmptyCart.Code)
	case errors.Is(err, ErrInsufficientStock):
		metrics.OrderRejected(ErrInsufficientStock.Code)
	}
	return internal("create order", err)
}

func logOrder(log logrus.FieldLogger, o *model.Order) {
	metrics.OrderCreated()
	log.WithFields(logrus.Fields{
		"order_id": o.ID,
		"user_id":  o.UserID,
		"items":    len(o.Items),
		"total":    o.TotalAmount.StringFixed(2),
	}).Info("order created")
}

func (s *orderService) GetOrders(ctx context.Context, userID uint) ([]model.Order, error) {
	var orders []model.Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&orders).Error
	if err != nil {
		return nil, internal("list orders", err)
	}
	return orders, nil
}
