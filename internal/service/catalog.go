package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/zaki-44/bio-hackathon/internal/model"
	"github.com/zaki-44/bio-hackathon/internal/storage"
)

type CatalogService interface {
	CreateProduct(ctx context.Context, id *Identity, in ProductInput, photo *Upload) (*model.Product, error)
	GetProduct(ctx context.Context, productID uint) (*ProductDetail, error)
	SearchByName(ctx context.Context, q string) ([]model.Product, error)
	List(ctx context.Context, f ProductFilter) ([]model.Product, error)
	Photo(ctx context.Context, productID uint) (path, mimeType string, err error)
}

// ProductInput carries the raw form values; numbers are parsed here so the
// error wording is the same for every client.
type ProductInput struct {
	Name        string
	Description string
	Price       string
	Quantity    string
	Unit        string
	Category    string
	Location    string
}

type ProductFilter struct {
	Category string
	FarmerID uint
}

// ProductDetail is a product together with the farmer selling it.
type ProductDetail struct {
	model.Product
	Farmer *Profile `json:"farmer,omitempty"`
}

const defaultUnit = "kg"

type catalogService struct {
	db    *gorm.DB
	files *storage.Store
	log   logrus.FieldLogger
}

func NewCatalogService(db *gorm.DB, files *storage.Store, log logrus.FieldLogger) CatalogService {
	return &catalogService{db: db, files: files, log: log}
}

func (s *catalogService) CreateProduct(ctx context.Context, id *Identity, in ProductInput, photo *Upload) (*model.Product, error) {
	if err := id.Require(model.RoleFarmer); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	// the token may outlive a role change or a deleted account
	var farmer model.User
	err := db.First(&farmer, id.UserID).Error
	if isNotFound(err) {
		return nil, forbiddenf("only farmers can create products")
	}
	if err != nil {
		return nil, internal("load farmer", err)
	}
	if farmer.UserType != model.RoleFarmer {
		return nil, forbiddenf("only farmers can create products")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" || strings.TrimSpace(in.Price) == "" || strings.TrimSpace(in.Quantity) == "" {
		return nil, validationf("name, price, and quantity are required")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	if err != nil {
		return nil, validationf("price and quantity must be valid numbers")
	}
	qty, err := decimal.NewFromString(strings.TrimSpace(in.Quantity))
	if err != nil {
		return nil, validationf("price and quantity must be valid numbers")
	}
	// match the column scales before the positivity check
	price, qty = price.Round(2), qty.Round(3)
	if !price.IsPositive() || !qty.IsPositive() {
		return nil, validationf("price and quantity must be positive")
	}
	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		unit = defaultUnit
	}

	p := model.Product{
		FarmerID:    farmer.ID,
		Name:        name,
		Description: in.Description,
		Price:       price,
		Quantity:    qty,
		Unit:        unit,
		Category:    strings.TrimSpace(in.Category),
		Location:    strings.TrimSpace(in.Location),
		IsAvailable: true,
	}

	if photo != nil && photo.Filename != "" {
		if !storage.Allowed(photo.Filename, storage.PhotoExtensions) {
			return nil, ErrUnsupportedMediaType.WithMessage("allowed photo types: png, jpg, jpeg, gif, webp")
		}
		stored, err := s.files.Save(storage.PhotosDir, photo.Filename, photo.Content, storage.PhotoExtensions)
		if err != nil {
			return nil, internal("save photo", err)
		}
		p.PhotoFilename = &stored
	}

	if err := db.Create(&p).Error; err != nil {
		if p.PhotoFilename != nil {
			s.files.Remove(storage.PhotosDir, *p.PhotoFilename)
		}
		return nil, internal("create product", err)
	}
	s.log.WithFields(logrus.Fields{"product_id": p.ID, "farmer_id": p.FarmerID}).Info("product created")
	return &p, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID uint) (*ProductDetail, error) {
	db := s.db.WithContext(ctx)
	var p model.Product
	err := db.Preload("Farmer").First(&p, productID).Error
	if isNotFound(err) {
		return nil, notFoundf("product not found")
	}
	if err != nil {
		return nil, internal("get product", err)
	}
	if !p.IsAvailable {
		return nil, notFoundf("product not available")
	}

	d := &ProductDetail{Product: p}
	if p.Farmer != nil {
		d.Farmer, err = profileOf(db, p.Farmer)
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (s *catalogService) SearchByName(ctx context.Context, q string) ([]model.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, validationf("please provide a search query parameter 'q'")
	}
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	var out []model.Product
	err := s.db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\' AND is_available = ?`, pattern, true).
		Order("created_at desc, id desc").
		Find(&out).Error
	if err != nil {
		return nil, internal("search products", err)
	}
	return out, nil
}

func (s *catalogService) List(ctx context.Context, f ProductFilter) ([]model.Product, error) {
	q := s.db.WithContext(ctx).Where("is_available = ?", true)
	if c := strings.TrimSpace(f.Category); c != "" {
		q = q.Where("category = ?", c)
	}
	if f.FarmerID != 0 {
		q = q.Where("farmer_id = ?", f.FarmerID)
	}
	var out []model.Product
	if err := q.Order("created_at desc, id desc").Find(&out).Error; err != nil {
		return nil, internal("list products", err)
	}
	return out, nil
}

func (s *catalogService) Photo(ctx context.Context, productID uint) (string, string, error) {
	var p model.Product
	err := s.db.WithContext(ctx).Select("id", "photo_filename").First(&p, productID).Error
	if isNotFound(err) {
		return "", "", notFoundf("product not found")
	}
	if err != nil {
		return "", "", internal("get product", err)
	}
	if p.PhotoFilename == nil || *p.PhotoFilename == "" {
		return "", "", notFoundf("no photo available for this product")
	}
	path, err := s.files.Path(storage.PhotosDir, *p.PhotoFilename)
	if err != nil {
		return "", "", notFoundf("photo file not found on server")
	}
	return path, storage.MimeType(*p.PhotoFilename), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
