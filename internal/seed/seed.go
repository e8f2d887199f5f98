// Package seed loads demo data. Every function is idempotent: rows that
// already exist (by username, product name or tracking number) are left alone.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/zaki-44/bio-hackathon/internal/model"
	"github.com/zaki-44/bio-hackathon/internal/service"
)

const demoPassword = "password"

type product struct {
	name, description, price, quantity, unit, category string
}

var demoProducts = []product{
	{"Organic Tomatoes", "Fresh organic tomatoes from the garden", "2.50", "100", "kg", "Vegetables"},
	{"Fresh Eggs", "Free range eggs", "5.00", "50", "dozen", "Dairy & Eggs"},
	{"Sweet Corn", "Sweet and juicy corn", "1.00", "200", "ear", "Vegetables"},
	{"Potatoes", "Russet potatoes, great for baking", "1.20", "500", "kg", "Vegetables"},
	{"Strawberries", "Sweet red strawberries", "4.00", "30", "box", "Fruits"},
}

type pkg struct {
	recipient, address, tracking string
	status                       model.PackageStatus
}

var demoPackages = []pkg{
	{"Alice Smith", "123 Main St, Cityville", "TRK001", model.PackagePending},
	{"Bob Jones", "456 Oak Ave, Townburg", "TRK002", model.PackageInTransit},
	{"Charlie Brown", "789 Pine Ln, Villageton", "TRK003", model.PackageDelivered},
}

// Result counts what a seed run inserted.
type Result struct {
	Users    int
	Products int
	Packages int
}

// Products ensures the demo farmer and the demo catalog exist.
func Products(ctx context.Context, db *gorm.DB, creds service.Credentials, log logrus.FieldLogger) (Result, error) {
	var res Result
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		farmer, created, err := ensureUser(tx, creds, "farmer_john", "john@farm.com", model.RoleFarmer)
		if err != nil {
			return err
		}
		if created {
			res.Users++
		}
		for _, p := range demoProducts {
			var n int64
			if err := tx.Model(&model.Product{}).Where("farmer_id = ? AND name = ?", farmer.ID, p.name).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			row := model.Product{
				FarmerID:    farmer.ID,
				Name:        p.name,
				Description: p.description,
				Price:       decimal.RequireFromString(p.price),
				Quantity:    decimal.RequireFromString(p.quantity),
				Unit:        p.unit,
				Category:    p.category,
				Location:    "Farm A",
				IsAvailable: true,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("create product %s: %w", p.name, err)
			}
			res.Products++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	log.WithFields(logrus.Fields{"users": res.Users, "products": res.Products}).Info("products seeded")
	return res, nil
}

// Delivery ensures the demo transporter and its packages exist.
func Delivery(ctx context.Context, db *gorm.DB, creds service.Credentials, log logrus.FieldLogger) (Result, error) {
	var res Result
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tr, created, err := ensureUser(tx, creds, "transporter1", "transporter1@test.com", model.RoleTransporter)
		if err != nil {
			return err
		}
		if created {
			res.Users++
		}
		for _, p := range demoPackages {
			var n int64
			if err := tx.Model(&model.Package{}).Where("tracking_number = ?", p.tracking).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			row := model.Package{
				TransporterID:    tr.ID,
				RecipientName:    p.recipient,
				RecipientAddress: p.address,
				TrackingNumber:   p.tracking,
				Status:           p.status,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("create package %s: %w", p.tracking, err)
			}
			res.Packages++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	log.WithFields(logrus.Fields{"users": res.Users, "packages": res.Packages}).Info("delivery data seeded")
	return res, nil
}

func ensureUser(tx *gorm.DB, creds service.Credentials, username, email string, role model.Role) (*model.User, bool, error) {
	var u model.User
	err := tx.Where("username = ?", username).First(&u).Error
	if err == nil {
		if u.UserType != role {
			return nil, false, fmt.Errorf("user %s exists with type %s, want %s", username, u.UserType, role)
		}
		return &u, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	hash, err := creds.Hash(demoPassword)
	if err != nil {
		return nil, false, err
	}
	u = model.User{Username: username, Email: email, PasswordHash: hash, UserType: role, IsActive: true}
	if err := tx.Create(&u).Error; err != nil {
		return nil, false, fmt.Errorf("create user %s: %w", username, err)
	}
	return &u, true, nil
}
