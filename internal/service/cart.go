package service

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zaki-44/bio-hackathon/internal/model"
)

// CartService keeps a server-side basket per user. Nothing is reserved: stock
// is only checked when the cart is checked out.
type CartService interface {
	Add(ctx context.Context, userID, productID uint, qty decimal.Decimal) (*model.CartItem, error)
	Get(ctx context.Context, userID uint) ([]model.CartItem, error)
	Remove(ctx context.Context, userID, productID uint) error
	Clear(ctx context.Context, userID uint) error
}

type cartService struct{ db *gorm.DB }

func NewCartService(db *gorm.DB) CartService { return &cartService{db: db} }

func (s *cartService) Add(ctx context.Context, userID, productID uint, qty decimal.Decimal) (*model.CartItem, error) {
	if productID == 0 {
		return nil, validationf("product_id is required")
	}
	if !qty.IsPositive() {
		return nil, validationf("quantity must be > 0")
	}

	var it model.CartItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.Product
		err := tx.Select("id", "is_available").First(&p, productID).Error
		if isNotFound(err) {
			return notFoundf("product not found")
		}
		if err != nil {
			return err
		}
		if !p.IsAvailable {
			return ErrInsufficientStock.WithMessage("product is not available")
		}

		// insert, or add to the existing line for this product
		it = model.CartItem{UserID: userID, ProductID: productID, Quantity: qty}
		err = tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
				"updated_at": gorm.Expr("excluded.updated_at"),
			}),
		}).Create(&it).Error
		if err != nil {
			return err
		}
		return tx.Preload("Product").
			Where("user_id = ? AND product_id = ?", userID, productID).
			First(&it).Error
	})
	if err != nil {
		return nil, internal("add to cart", err)
	}
	return &it, nil
}

func (s *cartService) Get(ctx context.Context, userID uint) ([]model.CartItem, error) {
	var items []model.CartItem
	err := s.db.WithContext(ctx).Preload("Product").Where("user_id = ?", userID).Order("id asc").Find(&items).Error
	if err != nil {
		return nil, internal("get cart", err)
	}
	return items, nil
}

func (s *cartService) Remove(ctx context.Context, userID, productID uint) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID).Delete(&model.CartItem{})
	if res.Error != nil {
		return internal("remove cart item", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundf("product is not in the cart")
	}
	return nil
}

func (s *cartService) Clear(ctx context.Context, userID uint) error {
	if err := clearCart(s.db.WithContext(ctx), userID); err != nil {
		return internal("clear cart", err)
	}
	return nil
}

func clearCart(db *gorm.DB, userID uint) error {
	return db.Where("user_id = ?", userID).Delete(&model.CartItem{}).Error
}
