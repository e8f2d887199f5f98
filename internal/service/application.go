package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/zaki-44/bio-hackathon/internal/metrics"
	"github.com/zaki-44/bio-hackathon/internal/model"
	"github.com/zaki-44/bio-hackathon/internal/storage"
)

// ApplicationService runs the farmer application lifecycle:
//
//	submit -> pending -> approved | denied
//
// approved and denied are absorbing. Approval materialises a farmer User that
// reuses the password hash stored with the application.
type ApplicationService interface {
	Submit(ctx context.Context, in ApplicationInput, cert *Upload) (*model.FarmerApplication, error)
	Approve(ctx context.Context, reviewer *Identity, id uint) (*ApproveResult, error)
	Deny(ctx context.Context, reviewer *Identity, id uint, reason string) (*model.FarmerApplication, error)
	List(ctx context.Context, reviewer *Identity, status model.ApplicationStatus) ([]model.FarmerApplication, error)
	Stats(ctx context.Context, reviewer *Identity) (*ApplicationStats, error)
	Certification(ctx context.Context, reviewer *Identity, id uint) (string, error)
	Status(ctx context.Context, username string) (*model.FarmerApplication, error)
}

type ApplicationInput struct {
	Username    string
	Email       string
	Password    string
	FarmName    string
	Location    string
	Phone       string
	Description string
}

// Upload is a file received from a client.
type Upload struct {
	Filename string
	Content  io.Reader
}

type ApproveResult struct {
	Application     *model.FarmerApplication `json:"application"`
	User            *model.User              `json:"user"`
	UserCreated     bool                     `json:"user_created"`
	AlreadyApproved bool                     `json:"already_approved"`
}

type ApplicationStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Denied   int64 `json:"denied"`
}

const defaultDenialReason = "Application denied by admin"

type applicationService struct {
	db     *gorm.DB
	creds  Credentials
	files  *storage.Store
	notify *Notifier
	log    logrus.FieldLogger
}

func NewApplicationService(db *gorm.DB, creds Credentials, files *storage.Store, notify *Notifier, log logrus.FieldLogger) ApplicationService {
	return &applicationService{db: db, creds: creds, files: files, notify: notify, log: log}
}

// guardReviewer lets a nil reviewer through: that is a trusted in-process
// caller such as the admin CLI. Any identity that is present must be admin.
func guardReviewer(reviewer *Identity) error {
	if reviewer == nil {
		return nil
	}
	return reviewer.Require(model.RoleAdmin)
}

func (s *applicationService) Submit(ctx context.Context, in ApplicationInput, cert *Upload) (*model.FarmerApplication, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, validationf("username, email, and password are required")
	}
	if cert == nil || cert.Content == nil || cert.Filename == "" {
		return nil, validationf("organic certification document is required for farmer registration")
	}
	if !storage.Allowed(cert.Filename, storage.CertificationExtensions) {
		return nil, ErrUnsupportedMediaType.WithMessage("certification must be a PDF file")
	}
	if in.FarmName == "" {
		in.FarmName = in.Username + "'s Farm"
	}
	if in.Location == "" {
		in.Location = "Not specified"
	}

	hash, err := s.creds.Hash(in.Password)
	if err != nil {
		return nil, internal("hash password", err)
	}

	app := model.FarmerApplication{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FarmName:     in.FarmName,
		Location:     in.Location,
		Phone:        in.Phone,
		Description:  in.Description,
		Status:       model.ApplicationPending,
	}
	var stored string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.FarmerApplication
		err := tx.Where("LOWER(username) = LOWER(?) OR LOWER(email) = ?", in.Username, in.Email).First(&existing).Error
		switch {
		case err == nil:
			switch existing.Status {
			case model.ApplicationPending:
				return ErrApplicationAlreadyPending
			case model.ApplicationApproved:
				return ErrApplicationAlreadyApproved
			default:
				return ErrApplicationDenied
			}
		case !isNotFound(err):
			return err
		}
		if err := ensureIdentityFree(tx, in.Username, in.Email); err != nil {
			return err
		}

		stored, err = s.files.Save(storage.CertificationsDir, cert.Filename, cert.Content, storage.CertificationExtensions)
		if err != nil {
			return err
		}
		app.CertificationFilename = stored
		return tx.Create(&app).Error
	})
	if err != nil {
		if stored != "" {
			s.files.Remove(storage.CertificationsDir, stored)
		}
		if isUniqueViolation(err) {
			return nil, ErrDuplicate.WithMessage("this username or email is already registered")
		}
		return nil, internal("submit application", err)
	}

	s.log.WithFields(logrus.Fields{"application_id": app.ID, "username": app.Username}).Info("farmer application submitted")
	return &app, nil
}

func (s *applicationService) Approve(ctx context.Context, reviewer *Identity, id uint) (*ApproveResult, error) {
	if err := guardReviewer(reviewer); err != nil {
		return nil, err
	}

	res := &ApproveResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := lockApplication(tx, id)
		if err != nil {
			return err
		}
		res.Application = app

		switch app.Status {
		case model.ApplicationDenied:
			return ErrInvalidTransition.WithMessage("cannot approve a denied application")
		case model.ApplicationApproved:
			// second approval of the same application: report the user the
			// first one produced
			res.AlreadyApproved = true
		}

		var user model.User
		err = tx.Where("username = ?", app.Username).First(&user).Error
		switch {
		case err == nil:
			// a user with this name already exists: reuse it, never duplicate
		case isNotFound(err):
			user = model.User{
				Username:     app.Username,
				Email:        app.Email,
				PasswordHash: app.PasswordHash,
				UserType:     model.RoleFarmer,
				IsActive:     true,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			res.UserCreated = true
		default:
			return err
		}
		res.User = &user

		if res.AlreadyApproved {
			return nil
		}
		now := time.Now()
		app.Status = model.ApplicationApproved
		app.ReviewedAt = &now
		app.ReviewedBy = reviewer.reviewer()
		return tx.Save(app).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate.WithMessage("a user with this username or email already exists")
		}
		return nil, internal("approve application", err)
	}

	entry := s.log.WithFields(logrus.Fields{
		"application_id": id,
		"user_id":        res.User.ID,
		"user_created":   res.UserCreated,
	})
	if res.AlreadyApproved {
		entry.Info("farmer application already approved")
		return res, nil
	}
	entry.Info("farmer application approved")
	metrics.ApplicationDecided(string(model.ApplicationApproved))
	s.notify.ApplicationApproved(res.Application.Email, res.Application.Username)
	return res, nil
}

func (s *applicationService) Deny(ctx context.Context, reviewer *Identity, id uint, reason string) (*model.FarmerApplication, error) {
	if err := guardReviewer(reviewer); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultDenialReason
	}

	var app *model.FarmerApplication
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		app, err = lockApplication(tx, id)
		if err != nil {
			return err
		}
		switch app.Status {
		case model.ApplicationDenied:
			return ErrInvalidTransition.WithMessage("application is already denied")
		case model.ApplicationApproved:
			return ErrInvalidTransition.WithMessage("cannot deny an approved application")
		}
		now := time.Now()
		app.Status = model.ApplicationDenied
		app.DenialReason = &reason
		app.ReviewedAt = &now
		app.ReviewedBy = reviewer.reviewer()
		return tx.Save(app).Error
	})
	if err != nil {
		return nil, internal("deny application", err)
	}

	s.log.WithFields(logrus.Fields{"application_id": id, "reason": reason}).Info("farmer application denied")
	metrics.ApplicationDecided(string(model.ApplicationDenied))
	s.notify.ApplicationDenied(app.Email, app.Username, reason)
	return app, nil
}

func lockApplication(tx *gorm.DB, id uint) (*model.FarmerApplication, error) {
	var app model.FarmerApplication
	err := forUpdate(tx).First(&app, id).Error
	if isNotFound(err) {
		return nil, notFoundf("application not found")
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (s *applicationService) List(ctx context.Context, reviewer *Identity, status model.ApplicationStatus) ([]model.FarmerApplication, error) {
	if err := guardReviewer(reviewer); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Order("created_at desc, id desc")
	if status != "" {
		if !status.Valid() {
			return nil, validationf("status must be one of: pending, approved, denied")
		}
		q = q.Where("status = ?", status)
	}
	var apps []model.FarmerApplication
	if err := q.Find(&apps).Error; err != nil {
		return nil, internal("list applications", err)
	}
	return apps, nil
}

func (s *applicationService) Stats(ctx context.Context, reviewer *Identity) (*ApplicationStats, error) {
	if err := guardReviewer(reviewer); err != nil {
		return nil, err
	}
	var rows []struct {
		Status model.ApplicationStatus
		N      int64
	}
	err := s.db.WithContext(ctx).Model(&model.FarmerApplication{}).
		Select("status, count(*) AS n").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, internal("application stats", err)
	}
	st := &ApplicationStats{}
	for _, r := range rows {
		st.Total += r.N
		switch r.Status {
		case model.ApplicationPending:
			st.Pending = r.N
		case model.ApplicationApproved:
			st.Approved = r.N
		case model.ApplicationDenied:
			st.Denied = r.N
		}
	}
	return st, nil
}

// Certification returns the filesystem path of the application's PDF.
func (s *applicationService) Certification(ctx context.Context, reviewer *Identity, id uint) (string, error) {
	if err := guardReviewer(reviewer); err != nil {
		return "", err
	}
	var app model.FarmerApplication
	err := s.db.WithContext(ctx).First(&app, id).Error
	if isNotFound(err) {
		return "", notFoundf("application not found")
	}
	if err != nil {
		return "", internal("get application", err)
	}
	if app.CertificationFilename == "" {
		return "", notFoundf("no certification file found")
	}
	p, err := s.files.Path(storage.CertificationsDir, app.CertificationFilename)
	if err != nil {
		return "", notFoundf("certification file not found on server")
	}
	return p, nil
}

func (s *applicationService) Status(ctx context.Context, username string) (*model.FarmerApplication, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, validationf("username is required")
	}
	var app model.FarmerApplication
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&app).Error
	if isNotFound(err) {
		return nil, notFoundf("no application found for %q", username)
	}
	if err != nil {
		return nil, internal("get application", err)
	}
	return &app, nil
}
