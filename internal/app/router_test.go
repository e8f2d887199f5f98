package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zaki-44/bio-hackathon/internal/model"
)

type testServer struct {
	t  *testing.T
	r  *gin.Engine
	db *gorm.DB
}

func newTestServer(t *testing.T, tweak ...func(*Config)) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, Migrate(db))

	cfg := Config{
		Env:             "test",
		JWTSecret:       "test-secret",
		TokenTTL:        time.Hour,
		BcryptCost:      bcrypt.MinCost,
		UploadDir:       t.TempDir(),
		MaxUploadBytes:  1 << 20,
		CORSOrigins:     "http://app.test",
		LoginRatePerMin: 1000,
	}
	for _, f := range tweak {
		f(&cfg)
	}
	log, _ := logtest.NewNullLogger()
	svc, err := NewServices(db, cfg, log)
	require.NoError(t, err)
	return &testServer{t: t, r: NewRouter(cfg, svc, log), db: db}
}

type response struct {
	code   int
	body   map[string]any
	header http.Header
}

func (s *testServer) do(req *http.Request, token string) response {
	s.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	res := response{code: w.Code, header: w.Header()}
	if w.Body.Len() > 0 && json.Valid(w.Body.Bytes()) {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &res.body))
	}
	return res
}

func (s *testServer) json(method, path, token string, body any) response {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, token)
}

func (s *testServer) form(path, token string, fields map[string]string, fileField, fileName string, content []byte) response {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(s.t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(s.t, err)
		_, err = fw.Write(content)
		require.NoError(s.t, err)
	}
	require.NoError(s.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req, token)
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	res := s.json(http.MethodPost, "/api/login", "", gin.H{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, res.code, res.body)
	return res.body["token"].(string)
}

func (s *testServer) register(username, role string) string {
	s.t.Helper()
	res := s.json(http.MethodPost, "/api/register", "", gin.H{
		"username": username, "email": username + "@test.com", "password": "pw", "user_type": role,
	})
	require.Equal(s.t, http.StatusCreated, res.code, res.body)
	return s.login(username, "pw")
}

func (s *testServer) admin() string {
	s.t.Helper()
	res := s.json(http.MethodPost, "/api/admin/create-admin", "", gin.H{"username": "root", "email": "root@test.com", "password": "pw"})
	require.Equal(s.t, http.StatusCreated, res.code, res.body)
	return s.login("root", "pw")
}

func idOf(t *testing.T, obj any) uint {
	t.Helper()
	m, ok := obj.(map[string]any)
	require.True(t, ok, "not an object: %v", obj)
	return uint(m["id"].(float64))
}

var pdfBytes = []byte("%PDF-1.4 test")

func TestHealthAndUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	res := s.json(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, res.code)

	res = s.json(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, res.code)
	assert.Equal(t, false, res.body["success"])
}

func TestRegisterLoginSession(t *testing.T) {
	s := newTestServer(t)
	token := s.register("alice", "user")

	res := s.json(http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "alice", res.body["user"].(map[string]any)["username"])
	assert.Equal(t, "no-store", res.header.Get("Cache-Control"))

	res = s.json(http.MethodGet, "/api/session", "", nil)
	assert.Equal(t, false, res.body["logged_in"])
	res = s.json(http.MethodGet, "/api/session", token, nil)
	assert.Equal(t, true, res.body["logged_in"])

	res = s.json(http.MethodPost, "/api/register", "", gin.H{"username": "alice", "email": "x@test.com", "password": "pw", "user_type": "user"})
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "duplicate_username", res.body["code"])

	res = s.json(http.MethodPost, "/api/register", "", gin.H{"username": "bob", "email": "b@test.com", "password": "pw", "user_type": "admin"})
	assert.Equal(t, "invalid_user_type", res.body["code"])

	res = s.json(http.MethodPost, "/api/login", "", gin.H{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, res.code)

	res = s.json(http.MethodPost, "/api/login", "", gin.H{"username": "alice", "password": "pw", "user_type": "farmer"})
	assert.Equal(t, http.StatusForbidden, res.code)
	assert.Equal(t, "user_type_mismatch", res.body["code"])
}

func TestLoginSetsSessionCookie(t *testing.T) {
	s := newTestServer(t)
	s.register("alice", "user")

	res := s.json(http.MethodPost, "/api/login", "", gin.H{"username": "alice", "password": "pw"})
	require.Equal(t, http.StatusOK, res.code)
	cookies := (&http.Response{Header: res.header}).Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.AddCookie(cookies[0])
	assert.Equal(t, http.StatusOK, s.do(req, "").code)
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	s := newTestServer(t)
	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/api/profile"},
		{http.MethodGet, "/api/orders"},
		{http.MethodPost, "/api/checkout"},
		{http.MethodGet, "/api/cart"},
		{http.MethodGet, "/api/admin/farmers/applications"},
		{http.MethodGet, "/api/delivery/packages"},
	} {
		res := s.json(r.method, r.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, res.code, r.path)
	}
}

func TestFarmerOnboardingToCheckout(t *testing.T) {
	s := newTestServer(t)
	adminTok := s.admin()

	// farmer registration goes through the application workflow
	res := s.form("/api/register", "", map[string]string{
		"username": "farmer_ann", "email": "ann@farm.test", "password": "pw", "user_type": "farmer", "farm_name": "Green Acres",
	}, "certification", "cert.pdf", pdfBytes)
	require.Equal(t, http.StatusCreated, res.code, res.body)
	assert.Equal(t, true, res.body["pending"])
	appID := idOf(t, res.body["application"])

	res = s.json(http.MethodPost, "/api/login", "", gin.H{"username": "farmer_ann", "password": "pw"})
	assert.Equal(t, http.StatusUnauthorized, res.code)

	res = s.json(http.MethodGet, "/api/farmers/applications/status?username=farmer_ann", "", nil)
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "pending", res.body["application"].(map[string]any)["status"])

	buyer := s.register("buyer", "user")
	res = s.json(http.MethodGet, "/api/admin/farmers/applications", buyer, nil)
	assert.Equal(t, http.StatusForbidden, res.code)

	res = s.json(http.MethodGet, "/api/admin/farmers/applications?status=pending", adminTok, nil)
	require.Equal(t, http.StatusOK, res.code)
	assert.EqualValues(t, 1, res.body["count"])

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/farmers/applications/%d/certification", appID), nil)
	res = s.do(req, adminTok)
	assert.Equal(t, http.StatusOK, res.code)

	res = s.json(http.MethodPost, fmt.Sprintf("/api/admin/farmers/applications/%d/approve", appID), adminTok, nil)
	require.Equal(t, http.StatusOK, res.code, res.body)
	assert.Equal(t, true, res.body["user_created"])
	farmerID := idOf(t, res.body["user"])

	res = s.json(http.MethodPost, fmt.Sprintf("/api/admin/farmers/applications/%d/approve", appID), adminTok, nil)
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, true, res.body["already_approved"])

	res = s.json(http.MethodGet, "/api/admin/farmers/applications/stats", adminTok, nil)
	require.Equal(t, http.StatusOK, res.code)
	assert.EqualValues(t, 1, res.body["stats"].(map[string]any)["approved"])

	// the approved farmer lists produce
	farmer := s.login("farmer_ann", "pw")
	res = s.json(http.MethodPost, "/api/products", buyer, gin.H{"name": "Kale", "price": 3, "quantity": 4})
	assert.Equal(t, http.StatusForbidden, res.code)

	res = s.json(http.MethodPost, "/api/products", farmer, gin.H{"name": "Kale", "price": 3.25, "quantity": 4, "category": "Vegetables"})
	require.Equal(t, http.StatusCreated, res.code, res.body)
	productID := idOf(t, res.body["product"])

	res = s.form("/api/products", farmer, map[string]string{"name": "Beets", "price": "2", "quantity": "10"}, "photo", "beets.png", []byte("\x89PNG"))
	require.Equal(t, http.StatusCreated, res.code, res.body)
	photoURL := res.body["product"].(map[string]any)["photo_url"].(string)
	req = httptest.NewRequest(http.MethodGet, photoURL, nil)
	res = s.do(req, "")
	assert.Equal(t, http.StatusOK, res.code)

	res = s.json(http.MethodGet, "/api/products/search?q=KAL", "", nil)
	require.Equal(t, http.StatusOK, res.code)
	assert.EqualValues(t, 1, res.body["count"])

	res = s.json(http.MethodGet, fmt.Sprintf("/api/products?farmer_id=%d", farmerID), "", nil)
	assert.EqualValues(t, 2, res.body["count"])

	// buyer fills a cart and checks out
	res = s.json(http.MethodPost, "/api/cart", buyer, gin.H{"product_id": productID, "quantity": 1})
	require.Equal(t, http.StatusOK, res.code, res.body)
	res = s.json(http.MethodPost, "/api/cart", buyer, gin.H{"product_id": productID, "quantity": 2})
	require.Equal(t, http.StatusOK, res.code)

	res = s.json(http.MethodGet, "/api/cart", buyer, nil)
	require.Equal(t, http.StatusOK, res.code)
	assert.Len(t, res.body["items"], 1)
	assert.EqualValues(t, 9.75, res.body["total"])

	res = s.json(http.MethodPost, "/api/checkout", buyer, nil)
	require.Equal(t, http.StatusCreated, res.code, res.body)
	assert.EqualValues(t, 9.75, res.body["order"].(map[string]any)["total_amount"])

	res = s.json(http.MethodPost, "/api/checkout", buyer, nil)
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "empty_cart", res.body["code"])

	res = s.json(http.MethodPost, "/api/orders", buyer, gin.H{"items": []gin.H{{"id": productID, "quantity": 2}}})
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "insufficient_stock", res.body["code"])

	res = s.json(http.MethodPost, "/api/orders", buyer, gin.H{"items": []gin.H{{"id": productID, "quantity": 1}}})
	require.Equal(t, http.StatusCreated, res.code, res.body)

	res = s.json(http.MethodGet, "/api/orders", buyer, nil)
	assert.EqualValues(t, 2, res.body["count"])

	// sold out
	res = s.json(http.MethodGet, fmt.Sprintf("/api/products/%d", productID), "", nil)
	assert.Equal(t, http.StatusNotFound, res.code)
	var sold model.Product
	require.NoError(t, s.db.First(&sold, productID).Error)
	assert.True(t, sold.Quantity.IsZero())
	assert.False(t, sold.IsAvailable)

	// ratings
	res = s.json(http.MethodPost, fmt.Sprintf("/api/farmers/%d/ratings", farmerID), buyer, gin.H{"rating": 4, "comment": "good"})
	require.Equal(t, http.StatusOK, res.code, res.body)
	res = s.json(http.MethodPost, fmt.Sprintf("/api/farmers/%d/ratings", farmerID), buyer, gin.H{"rating": 6})
	assert.Equal(t, "invalid_rating", res.body["code"])
	res = s.json(http.MethodPost, fmt.Sprintf("/api/farmers/%d/ratings", farmerID), farmer, gin.H{"rating": 5})
	assert.Equal(t, "self_rating", res.body["code"])

	res = s.json(http.MethodGet, fmt.Sprintf("/api/farmers/%d/ratings", farmerID), buyer, nil)
	require.Equal(t, http.StatusOK, res.code)
	sum := res.body["summary"].(map[string]any)
	assert.EqualValues(t, 4, sum["average_rating"])
	assert.EqualValues(t, 1, sum["total_ratings"])
	assert.EqualValues(t, 4, sum["user_rating"].(map[string]any)["rating"])
}

func TestDeniedApplicationCannotReapply(t *testing.T) {
	s := newTestServer(t)
	adminTok := s.admin()

	res := s.form("/api/farmers/apply", "", map[string]string{"username": "f1", "email": "f1@test.com", "password": "pw"}, "certification", "c.pdf", pdfBytes)
	require.Equal(t, http.StatusCreated, res.code, res.body)
	appID := idOf(t, res.body["application"])

	res = s.json(http.MethodPost, fmt.Sprintf("/api/admin/farmers/applications/%d/deny", appID), adminTok, gin.H{"reason": "blurry scan"})
	require.Equal(t, http.StatusOK, res.code, res.body)
	assert.Equal(t, "blurry scan", res.body["application"].(map[string]any)["denial_reason"])

	res = s.json(http.MethodPost, fmt.Sprintf("/api/admin/farmers/applications/%d/approve", appID), adminTok, nil)
	assert.Equal(t, "invalid_transition", res.body["code"])

	res = s.form("/api/farmers/apply", "", map[string]string{"username": "f1", "email": "f1@test.com", "password": "pw"}, "certification", "c.pdf", pdfBytes)
	assert.Equal(t, "application_denied", res.body["code"])
}

func TestApplyValidatesUpload(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.MaxUploadBytes = 2048 })
	fields := map[string]string{"username": "f2", "email": "f2@test.com", "password": "pw"}

	res := s.form("/api/farmers/apply", "", fields, "", "", nil)
	assert.Equal(t, http.StatusBadRequest, res.code)

	res = s.form("/api/farmers/apply", "", fields, "certification", "c.exe", pdfBytes)
	assert.Equal(t, http.StatusUnsupportedMediaType, res.code)

	res = s.form("/api/farmers/apply", "", fields, "certification", "c.pdf", bytes.Repeat([]byte("x"), 8192))
	assert.Equal(t, http.StatusRequestEntityTooLarge, res.code)

	res = s.json(http.MethodPost, "/api/register", "", gin.H{"username": "f3", "email": "f3@test.com", "password": "pw", "user_type": "farmer"})
	assert.Equal(t, http.StatusBadRequest, res.code)
}

func TestDeliveryFlow(t *testing.T) {
	s := newTestServer(t)
	adminTok := s.admin()
	carrier := s.register("carrier", "transporter")
	other := s.register("other", "transporter")

	var carrierUser model.User
	require.NoError(t, s.db.Where("username = ?", "carrier").First(&carrierUser).Error)

	res := s.json(http.MethodPost, "/api/delivery/packages", carrier, gin.H{"transporter_id": carrierUser.ID, "recipient_name": "A", "recipient_address": "B"})
	assert.Equal(t, http.StatusForbidden, res.code)

	res = s.json(http.MethodPost, "/api/delivery/packages", adminTok, gin.H{"transporter_id": carrierUser.ID, "recipient_name": "A", "recipient_address": "B"})
	require.Equal(t, http.StatusCreated, res.code, res.body)
	pkg := res.body["package"].(map[string]any)
	tracking := pkg["tracking_number"].(string)
	pkgID := idOf(t, pkg)
	assert.Regexp(t, `^TRK-[0-9A-F]{12}$`, tracking)

	res = s.json(http.MethodGet, "/api/delivery/packages", carrier, nil)
	assert.EqualValues(t, 1, res.body["count"])
	res = s.json(http.MethodGet, "/api/delivery/packages", other, nil)
	assert.EqualValues(t, 0, res.body["count"])

	path := fmt.Sprintf("/api/delivery/packages/%d/status", pkgID)
	res = s.json(http.MethodPut, path, other, gin.H{"status": "in_transit"})
	assert.Equal(t, http.StatusForbidden, res.code)
	res = s.json(http.MethodPut, path, carrier, gin.H{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, res.code)
	res = s.json(http.MethodPut, path, carrier, gin.H{"status": "in_transit"})
	require.Equal(t, http.StatusOK, res.code, res.body)

	res = s.json(http.MethodGet, "/api/delivery/track/"+tracking, "", nil)
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "in_transit", res.body["package"].(map[string]any)["status"])

	res = s.json(http.MethodGet, "/api/delivery/track/TRK-NOPE", "", nil)
	assert.Equal(t, http.StatusNotFound, res.code)
}

func TestLoginIsRateLimited(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.LoginRatePerMin = 2 })
	for i := 0; i < 2; i++ {
		res := s.json(http.MethodPost, "/api/login", "", gin.H{"username": "x", "password": "y"})
		assert.Equal(t, http.StatusUnauthorized, res.code)
	}
	res := s.json(http.MethodPost, "/api/login", "", gin.H{"username": "x", "password": "y"})
	assert.Equal(t, http.StatusTooManyRequests, res.code)
	assert.Equal(t, "rate_limited", res.body["code"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.json(http.MethodGet, "/health", "", nil)

	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
