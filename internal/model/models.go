package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// prices and quantities go out as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"type:varchar(80);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"type:varchar(120);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	UserType     Role      `gorm:"column:user_type;type:varchar(20);not null;index" json:"user_type"`
	CreatedAt    time.Time `json:"created_at"`
	IsActive     bool      `gorm:"column:is_active;not null" json:"is_active"`
}

func (User) TableName() string { return "users" }

// FarmerApplication is a prospective farmer's registration. It only becomes a
// User once an admin approves it.
type FarmerApplication struct {
	ID                    uint              `gorm:"primaryKey" json:"id"`
	Username              string            `gorm:"type:varchar(80);uniqueIndex;not null" json:"username"`
	Email                 string            `gorm:"type:varchar(120);uniqueIndex;not null" json:"email"`
	PasswordHash          string            `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	FarmName              string            `gorm:"type:varchar(200);not null" json:"farm_name"`
	Location              string            `gorm:"type:varchar(200);not null" json:"location"`
	Phone                 string            `gorm:"type:varchar(20)" json:"phone"`
	Description           string            `gorm:"type:text" json:"description"`
	CertificationFilename string            `gorm:"type:varchar(255)" json:"-"`
	Status                ApplicationStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt             time.Time         `json:"created_at"`
	ReviewedAt            *time.Time        `json:"reviewed_at"`
	ReviewedBy            *uint             `json:"reviewed_by"`
	DenialReason          *string           `gorm:"type:text" json:"denial_reason"`
	CertificationURL      *string           `gorm:"-" json:"certification_url"`
}

func (FarmerApplication) TableName() string { return "farmer_applications" }

func (a *FarmerApplication) AfterFind(*gorm.DB) error { a.setURL(); return nil }
func (a *FarmerApplication) AfterSave(*gorm.DB) error { a.setURL(); return nil }

func (a *FarmerApplication) setURL() {
	a.CertificationURL = nil
	if a.CertificationFilename != "" {
		u := fmt.Sprintf("/api/farmers/applications/%d/certification", a.ID)
		a.CertificationURL = &u
	}
}

type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	FarmerID      uint            `gorm:"not null;index" json:"farmer_id"`
	Farmer        *User           `gorm:"foreignKey:FarmerID" json:"-"`
	Name          string          `gorm:"type:varchar(200);not null;index" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Quantity      decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"quantity"`
	Unit          string          `gorm:"type:varchar(20);not null" json:"unit"`
	Category      string          `gorm:"type:varchar(100);index" json:"category"`
	PhotoFilename *string         `gorm:"type:varchar(255)" json:"-"`
	Location      string          `gorm:"type:varchar(200)" json:"location"`
	CreatedAt     time.Time       `json:"created_at"`
	IsAvailable   bool            `gorm:"not null;index" json:"is_available"`
	PhotoURL      *string         `gorm:"-" json:"photo_url"`
}

func (Product) TableName() string { return "products" }

func (p *Product) AfterFind(*gorm.DB) error { p.setURL(); return nil }
func (p *Product) AfterSave(*gorm.DB) error { p.setURL(); return nil }

func (p *Product) setURL() {
	p.PhotoURL = nil
	if p.PhotoFilename != nil && *p.PhotoFilename != "" {
		u := fmt.Sprintf("/api/products/%d/photo", p.ID)
		p.PhotoURL = &u
	}
}

// FarmerRating holds at most one row per (farmer, user) pair.
type FarmerRating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FarmerID  uint      `gorm:"not null;uniqueIndex:unique_farmer_user_rating" json:"farmer_id"`
	Farmer    *User     `gorm:"foreignKey:FarmerID" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex:unique_farmer_user_rating" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"-"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (FarmerRating) TableName() string { return "farmer_ratings" }

type Package struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	TransporterID    uint          `gorm:"not null;index" json:"transporter_id"`
	Transporter      *User         `gorm:"foreignKey:TransporterID" json:"-"`
	RecipientName    string        `gorm:"type:varchar(100);not null" json:"recipient_name"`
	RecipientAddress string        `gorm:"type:varchar(255);not null" json:"recipient_address"`
	Status           PackageStatus `gorm:"type:varchar(20);not null" json:"status"`
	TrackingNumber   string        `gorm:"type:varchar(50);uniqueIndex;not null" json:"tracking_number"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func (Package) TableName() string { return "packages" }

type CartItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID uint            `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"product_id"`
	Quantity  decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Product   Product         `json:"product"`
}

func (CartItem) TableName() string { return "cart_items" }

type Order struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	Status      string          `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	Items       []OrderItem     `json:"items"`
}

func (Order) TableName() string { return "orders" }

// OrderItem keeps the unit price as it was when the order was placed.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"not null;index" json:"order_id"`
	ProductID   uint            `gorm:"not null;index" json:"product_id"`
	ProductName string          `gorm:"type:varchar(200)" json:"product_name"`
	Quantity    decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
}

func (OrderItem) TableName() string { return "order_items" }

// All lists every model for migrations.
func All() []any {
	return []any{
		&User{},
		&FarmerApplication{},
		&Product{},
		&FarmerRating{},
		&Package{},
		&CartItem{},
		&Order{},
		&OrderItem{},
	}
}
