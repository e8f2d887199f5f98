package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/zaki-44/bio-hackathon/internal/model"
)

type DeliveryService interface {
	ListPackages(ctx context.Context, id *Identity) ([]model.Package, error)
	UpdateStatus(ctx context.Context, id *Identity, packageID uint, status model.PackageStatus) (*model.Package, error)
	CreatePackage(ctx context.Context, id *Identity, in PackageInput) (*model.Package, error)
	Track(ctx context.Context, trackingNumber string) (*model.Package, error)
}

type PackageInput struct {
	TransporterID    uint   `json:"transporter_id"`
	RecipientName    string `json:"recipient_name"`
	RecipientAddress string `json:"recipient_address"`
	TrackingNumber   string `json:"tracking_number"`
}

type deliveryService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewDeliveryService(db *gorm.DB, log logrus.FieldLogger) DeliveryService {
	return &deliveryService{db: db, log: log}
}

func (s *deliveryService) ListPackages(ctx context.Context, id *Identity) ([]model.Package, error) {
	if err := id.Require(model.RoleTransporter, model.RoleAdmin); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Order("created_at desc, id desc")
	if id.Is(model.RoleTransporter) {
		q = q.Where("transporter_id = ?", id.UserID)
	}
	var out []model.Package
	if err := q.Find(&out).Error; err != nil {
		return nil, internal("list packages", err)
	}
	return out, nil
}

func (s *deliveryService) UpdateStatus(ctx context.Context, id *Identity, packageID uint, status model.PackageStatus) (*model.Package, error) {
	if err := id.Require(model.RoleTransporter, model.RoleAdmin); err != nil {
		return nil, err
	}
	if status == "" {
		return nil, validationf("status is required")
	}
	if !status.Valid() {
		return nil, validationf("status must be one of: %s", joinStatuses())
	}

	var pkg model.Package
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := forUpdate(tx).First(&pkg, packageID).Error
		if isNotFound(err) {
			return notFoundf("package not found")
		}
		if err != nil {
			return err
		}
		if id.Is(model.RoleTransporter) && pkg.TransporterID != id.UserID {
			return forbiddenf("you can only update packages assigned to you")
		}
		pkg.Status = status
		return tx.Save(&pkg).Error
	})
	if err != nil {
		return nil, internal("update package status", err)
	}
	s.log.WithFields(logrus.Fields{"package_id": pkg.ID, "status": status, "user_id": id.UserID}).Info("package status updated")
	return &pkg, nil
}

func (s *deliveryService) CreatePackage(ctx context.Context, id *Identity, in PackageInput) (*model.Package, error) {
	if err := id.Require(model.RoleAdmin); err != nil {
		return nil, err
	}
	in.RecipientName = strings.TrimSpace(in.RecipientName)
	in.RecipientAddress = strings.TrimSpace(in.RecipientAddress)
	if in.TransporterID == 0 || in.RecipientName == "" || in.RecipientAddress == "" {
		return nil, validationf("transporter_id, recipient_name, and recipient_address are required")
	}
	tracking := strings.TrimSpace(in.TrackingNumber)
	if tracking == "" {
		tracking = newTrackingNumber()
	}

	pkg := model.Package{
		TransporterID:    in.TransporterID,
		RecipientName:    in.RecipientName,
		RecipientAddress: in.RecipientAddress,
		Status:           model.PackagePending,
		TrackingNumber:   tracking,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t model.User
		err := tx.Select("id", "user_type").First(&t, in.TransporterID).Error
		if isNotFound(err) || (err == nil && t.UserType != model.RoleTransporter) {
			return validationf("transporter_id must reference a transporter")
		}
		if err != nil {
			return err
		}
		return tx.Create(&pkg).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate.WithMessage("tracking number %s already exists", tracking)
		}
		return nil, internal("create package", err)
	}
	s.log.WithFields(logrus.Fields{"package_id": pkg.ID, "tracking_number": pkg.TrackingNumber}).Info("package created")
	return &pkg, nil
}

func (s *deliveryService) Track(ctx context.Context, trackingNumber string) (*model.Package, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, validationf("tracking number is required")
	}
	var pkg model.Package
	err := s.db.WithContext(ctx).Where("tracking_number = ?", trackingNumber).First(&pkg).Error
	if isNotFound(err) {
		return nil, notFoundf("package not found")
	}
	if err != nil {
		return nil, internal("track package", err)
	}
	return &pkg, nil
}

// newTrackingNumber returns TRK- followed by 12 upper-case hex digits.
func newTrackingNumber() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TRK-" + strings.ToUpper(hex[:12])
}

func joinStatuses() string {
	parts := make([]string, len(model.PackageStatuses))
	for i, st := range model.PackageStatuses {
		parts[i] = string(st)
	}
	return strings.Join(parts, ", ")
}
