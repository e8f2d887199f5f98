package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/zaki-44/bio-hackathon/internal/model"
)

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	Authenticate(ctx context.Context, username, password string, expected model.Role) (*model.User, error)
	Get(ctx context.Context, id uint) (*model.User, error)
	Profile(ctx context.Context, id uint) (*Profile, error)
	CreateAdmin(ctx context.Context, username, email, password string) (*model.User, error)
	ResetPassword(ctx context.Context, username, password string) error
	IssueToken(id Identity) (string, error)
	ParseToken(token string) (Identity, error)
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	UserType model.Role
}

// Profile is a user as shown to clients. Farmers carry their rating.
type Profile struct {
	*model.User
	AverageRating *float64 `json:"average_rating"`
	RatingCount   int64    `json:"rating_count"`
}

type AuthConfig struct {
	Secret   []byte
	TokenTTL time.Duration
}

// Claims is the session token payload. Subject holds the user id.
type Claims struct {
	Username string     `json:"username"`
	UserType model.Role `json:"user_type"`
	Type     string     `json:"typ"`
	jwt.RegisteredClaims
}

const sessionTokenType = "session"

type authService struct {
	db    *gorm.DB
	creds Credentials
	cfg   AuthConfig
	log   logrus.FieldLogger

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(db *gorm.DB, creds Credentials, cfg AuthConfig, log logrus.FieldLogger) AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &authService{db: db, creds: creds, cfg: cfg, log: log}
}

// IdentityOf builds the identity capability for an authenticated user.
func IdentityOf(u *model.User) Identity {
	return Identity{UserID: u.ID, Username: u.Username, Role: u.UserType}
}

// ---------------------------------------------------
// Register
// ---------------------------------------------------

func (a *authService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	in.UserType = model.Role(strings.ToLower(string(in.UserType)))
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, validationf("username, email, and password are required")
	}
	if !in.UserType.SelfRegistrable() {
		return nil, ErrInvalidUserType
	}
	return a.createUser(ctx, in.Username, in.Email, in.Password, in.UserType)
}

func (a *authService) createUser(ctx context.Context, username, email, password string, role model.Role) (*model.User, error) {
	hash, err := a.creds.Hash(password)
	if err != nil {
		return nil, internal("hash password", err)
	}
	u := model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		UserType:     role,
		IsActive:     true,
	}
	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureIdentityFree(tx, username, email); err != nil {
			return err
		}
		return tx.Create(&u).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, a.conflictFor(ctx, username)
		}
		return nil, internal("register", err)
	}
	a.log.WithFields(logrus.Fields{"user_id": u.ID, "user_type": u.UserType}).Info("user registered")
	return &u, nil
}

// conflictFor tells which unique column a lost insert race collided on.
func (a *authService) conflictFor(ctx context.Context, username string) error {
	var n int64
	a.db.WithContext(ctx).Model(&model.User{}).Where("LOWER(username) = LOWER(?)", username).Count(&n)
	if n > 0 {
		return ErrDuplicateUsername
	}
	return ErrDuplicateEmail
}

// normalizeEmail is applied before every email is checked or stored.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ensureIdentityFree checks a username/email pair against existing users and
// against applications that are pending or approved. Both comparisons ignore
// case; email is expected normalized.
func ensureIdentityFree(tx *gorm.DB, username, email string) error {
	var n int64
	if err := tx.Model(&model.User{}).Where("LOWER(username) = LOWER(?)", username).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateUsername
	}
	if err := tx.Model(&model.User{}).Where("LOWER(email) = ?", email).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateEmail
	}

	live := []model.ApplicationStatus{model.ApplicationPending, model.ApplicationApproved}
	if err := tx.Model(&model.FarmerApplication{}).
		Where("LOWER(username) = LOWER(?) AND status IN ?", username, live).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateUsername
	}
	if err := tx.Model(&model.FarmerApplication{}).
		Where("LOWER(email) = ? AND status IN ?", email, live).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicateEmail
	}
	return nil
}

// ---------------------------------------------------
// Authenticate
// ---------------------------------------------------

func (a *authService) Authenticate(ctx context.Context, username, password string, expected model.Role) (*model.User, error) {
	if username == "" || password == "" {
		return nil, validationf("username and password are required")
	}
	var u model.User
	err := a.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if isNotFound(err) {
		// unknown usernames cost one hash comparison too
		a.creds.Verify(a.dummy(), password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, internal("login", err)
	}
	if !a.creds.Verify(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if expected != "" && u.UserType != expected {
		return nil, ErrUserTypeMismatch.WithMessage("user is registered as %s, not %s", u.UserType, expected)
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}
	return &u, nil
}

func (a *authService) dummy() string {
	a.dummyOnce.Do(func() {
		h, err := a.creds.Hash("not-a-real-password")
		if err != nil {
			a.log.WithError(err).Warn("dummy hash unavailable")
			return
		}
		a.dummyHash = h
	})
	return a.dummyHash
}

func (a *authService) Get(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	err := a.db.WithContext(ctx).First(&u, id).Error
	if isNotFound(err) {
		return nil, notFoundf("user not found")
	}
	if err != nil {
		return nil, internal("get user", err)
	}
	return &u, nil
}

func (a *authService) Profile(ctx context.Context, id uint) (*Profile, error) {
	u, err := a.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return profileOf(a.db.WithContext(ctx), u)
}

func profileOf(db *gorm.DB, u *model.User) (*Profile, error) {
	p := &Profile{User: u}
	if u.UserType != model.RoleFarmer {
		return p, nil
	}
	avg, count, err := farmerRatingStats(db, u.ID)
	if err != nil {
		return nil, internal("load rating", err)
	}
	p.AverageRating, p.RatingCount = avg, count
	return p, nil
}

// ---------------------------------------------------
// Admin bootstrap
// ---------------------------------------------------

func (a *authService) CreateAdmin(ctx context.Context, username, email, password string) (*model.User, error) {
	username, email = strings.TrimSpace(username), normalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return nil, validationf("username, email, and password are required")
	}
	var n int64
	if err := a.db.WithContext(ctx).Model(&model.User{}).Where("user_type = ?", model.RoleAdmin).Count(&n).Error; err != nil {
		return nil, internal("create admin", err)
	}
	if n > 0 {
		return nil, ErrAdminExists
	}
	return a.createUser(ctx, username, email, password, model.RoleAdmin)
}

func (a *authService) ResetPassword(ctx context.Context, username, password string) error {
	if password == "" {
		return validationf("password is required")
	}
	hash, err := a.creds.Hash(password)
	if err != nil {
		return internal("hash password", err)
	}
	res := a.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ?", username).
		Updates(map[string]any{"password_hash": hash, "is_active": true})
	if res.Error != nil {
		return internal("reset password", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundf("user %q not found", username)
	}
	a.log.WithField("username", username).Info("password reset")
	return nil
}

// ---------------------------------------------------
// Tokens
// ---------------------------------------------------

func (a *authService) IssueToken(id Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: id.Username,
		UserType: id.Role,
		Type:     sessionTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(id.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.cfg.Secret)
}

func (a *authService) ParseToken(token string) (Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	if claims.Type != sessionTokenType {
		return Identity{}, ErrInvalidToken.WithMessage("invalid token type")
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || uid == 0 {
		return Identity{}, ErrInvalidToken.WithMessage("invalid sub")
	}
	if !claims.UserType.Valid() {
		return Identity{}, ErrInvalidToken.WithMessage("invalid user type")
	}
	return Identity{UserID: uint(uid), Username: claims.Username, Role: claims.UserType}, nil
}
