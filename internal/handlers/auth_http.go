package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zaki-44/bio-hackathon/internal/model"
	"github.com/zaki-44/bio-hackathon/internal/service"
)

type AuthHTTP struct {
	auth         service.AuthService
	apps         service.ApplicationService
	cookieTTL    time.Duration
	cookieSecure bool
}

func NewAuthHTTP(auth service.AuthService, apps service.ApplicationService, cookieTTL time.Duration, cookieSecure bool) *AuthHTTP {
	return &AuthHTTP{auth: auth, apps: apps, cookieTTL: cookieTTL, cookieSecure: cookieSecure}
}

type registerReq struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	UserType string `json:"user_type" form:"user_type"`
}

// Register creates transporter and user accounts directly. Farmers are routed
// to the application workflow and must send multipart with a certification.
func (h *AuthHTTP) Register(c *gin.Context) {
	if isMultipart(c) {
		if _, err := c.MultipartForm(); err != nil {
			writeError(c, formError(err))
			return
		}
		if strings.EqualFold(c.PostForm("user_type"), string(model.RoleFarmer)) {
			h.Apply(c)
			return
		}
	}

	var req registerReq
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if strings.EqualFold(req.UserType, string(model.RoleFarmer)) {
		writeError(c, service.ErrValidation.WithMessage("farmer registration requires a multipart form with a certification file"))
		return
	}
	u, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		UserType: model.Role(req.UserType),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"message": "User registered successfully", "user": u})
}

// Apply submits a farmer application from a multipart form.
func (h *AuthHTTP) Apply(c *gin.Context) {
	if !isMultipart(c) {
		writeError(c, service.ErrValidation.WithMessage("farmer registration requires a multipart form with a certification file"))
		return
	}
	cert, closeCert, err := formUpload(c, "certification")
	if err != nil {
		writeError(c, err)
		return
	}
	defer closeCert()

	app, err := h.apps.Submit(c.Request.Context(), service.ApplicationInput{
		Username:    c.PostForm("username"),
		Email:       c.PostForm("email"),
		Password:    c.PostForm("password"),
		FarmName:    c.PostForm("farm_name"),
		Location:    c.PostForm("location"),
		Phone:       c.PostForm("phone"),
		Description: c.PostForm("description"),
	}, cert)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{
		"message":     "Farmer application submitted successfully. Please wait for admin approval.",
		"application": app,
		"pending":     true,
	})
}

func (h *AuthHTTP) ApplicationStatus(c *gin.Context) {
	app, err := h.apps.Status(c.Request.Context(), c.Query("username"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"application": app})
}

type loginReq struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	UserType string `json:"user_type" form:"user_type"`
}

func (h *AuthHTTP) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	ctx := c.Request.Context()
	u, err := h.auth.Authenticate(ctx, strings.TrimSpace(req.Username), req.Password, model.Role(strings.ToLower(req.UserType)))
	if err != nil {
		writeError(c, err)
		return
	}
	id := service.IdentityOf(u)
	tok, err := h.auth.IssueToken(id)
	if err != nil {
		writeError(c, err)
		return
	}
	profile, err := h.auth.Profile(ctx, u.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, tok, int(h.cookieTTL.Seconds()), "/", "", h.cookieSecure, true)
	ok(c, http.StatusOK, gin.H{
		"message":    "Login successful",
		"user":       profile,
		"token":      tok,
		"token_type": "Bearer",
	})
}

func (h *AuthHTTP) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", h.cookieSecure, true)
	ok(c, http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *AuthHTTP) Profile(c *gin.Context) {
	p, err := h.auth.Profile(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"user": p})
}

// Session echoes the caller's identity; it never fails for anonymous callers.
func (h *AuthHTTP) Session(c *gin.Context) {
	id := identityFrom(c)
	if id == nil {
		c.JSON(http.StatusOK, gin.H{"logged_in": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logged_in": true, "user": id})
}

type createAdminReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateAdmin bootstraps the first admin account.
func (h *AuthHTTP) CreateAdmin(c *gin.Context) {
	var req createAdminReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	u, err := h.auth.CreateAdmin(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"message": "Admin user created successfully", "user": u})
}

func isMultipart(c *gin.Context) bool {
	return c.ContentType() == gin.MIMEMultipartPOSTForm
}

// formUpload returns the named multipart file, nil when absent.
func formUpload(c *gin.Context, field string) (*service.Upload, func(), error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, formError(err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &service.Upload{Filename: fh.Filename, Content: f}, func() { f.Close() }, nil
}

// formError keeps body-size failures intact and reports any other multipart
// parse failure as bad input.
func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return service.ErrValidation.WithMessage("invalid multipart form")
}
