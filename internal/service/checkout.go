package service

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/zaki-44/bio-hackathon/internal/model"
)

type CheckoutService interface {
	Checkout(ctx context.Context, userID uint) (*model.Order, error)
}

type checkoutService struct {
	db     *gorm.DB
	notify *Notifier
	log    logrus.FieldLogger
}

func NewCheckoutService(db *gorm.DB, notify *Notifier, log logrus.FieldLogger) CheckoutService {
	return &checkoutService{db: db, notify: notify, log: log}
}

// Checkout turns the user's cart into an order and empties the cart in the
// same transaction. The confirmation mail goes out after commit.
func (s *checkoutService) Checkout(ctx context.Context, userID uint) (*model.Order, error) {
	var (
		order *model.Order
		email string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []model.CartItem
		if err := tx.Where("user_id = ?", userID).Order("id asc").Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}
		lines := make([]OrderLine, len(items))
		for i, it := range items {
			lines[i] = OrderLine{ProductID: it.ProductID, Quantity: it.Quantity}
		}

		var err error
		if order, err = placeOrder(tx, userID, lines); err != nil {
			return err
		}
		if err := clearCart(tx, userID); err != nil {
			return err
		}

		var u model.User
		if err := tx.Select("id", "email").First(&u, userID).Error; err == nil {
			email = u.Email
		}
		return nil
	})
	if err != nil {
		return nil, orderFailed(err)
	}

	logOrder(s.log, order)
	s.notify.OrderPlaced(email, order.ID, order.TotalAmount.StringFixed(2))
	return order, nil
}
