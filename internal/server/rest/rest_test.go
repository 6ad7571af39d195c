package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexbor287kz-boop/marketplace/internal/common"
	"github.com/alexbor287kz-boop/marketplace/internal/logging"
	"github.com/alexbor287kz-boop/marketplace/internal/server/auth"
	"github.com/alexbor287kz-boop/marketplace/internal/server/config"
	"github.com/alexbor287kz-boop/marketplace/internal/server/models"
	"github.com/alexbor287kz-boop/marketplace/internal/server/services"
)

const testSecret = "testsecret"

type fakeAccounts struct {
	registerErr error
	loginOut    *services.LoginResult
	loginErr    error

	lastRegisterEmail string
}

func (f *fakeAccounts) Register(ctx context.Context, fullName, email, password string) (*models.User, error) {
	f.lastRegisterEmail = email
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &models.User{ID: "u1", FullName: fullName, Email: email}, nil
}

func (f *fakeAccounts) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginOut, nil
}

type fakeProducts struct {
	listOut []*models.Product
	listErr error

	createOut   *models.Product
	createTasks []*models.MediaUploadTask
	createErr   error

	updateOut *models.Product
	updateErr error
	deleteErr error

	attachOut *models.MediaUploadTask
	attachErr error
	markErr   error
	urlOut    string
	urlErr    error
	delMedErr error

	lastOwnerID string
}

func (f *fakeProducts) List(ctx context.Context) ([]*models.Product, error) {
	return f.listOut, f.listErr
}

func (f *fakeProducts) Create(ctx context.Context, ownerID string, input *services.ProductInput, media []*services.MediaInput) (*models.Product, []*models.MediaUploadTask, error) {
	f.lastOwnerID = ownerID
	if f.createErr != nil {
		return nil, nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, f.createTasks, nil
	}
	return &models.Product{ID: "p1", OwnerID: ownerID, Title: input.Title, Tags: services.ParseTags(input.Tags)}, f.createTasks, nil
}

func (f *fakeProducts) Update(ctx context.Context, id string, upd *models.ProductUpdate) (*models.Product, error) {
	return f.updateOut, f.updateErr
}

func (f *fakeProducts) Delete(ctx context.Context, id string) error { return f.deleteErr }

func (f *fakeProducts) AttachMedia(ctx context.Context, productID, contentType string) (*models.MediaUploadTask, error) {
	return f.attachOut, f.attachErr
}

func (f *fakeProducts) MarkMediaUploaded(ctx context.Context, id string) error { return f.markErr }

func (f *fakeProducts) MediaDownloadURL(ctx context.Context, id string) (string, error) {
	return f.urlOut, f.urlErr
}

func (f *fakeProducts) DeleteMedia(ctx context.Context, id string) error { return f.delMedErr }

func newTestServer(t *testing.T, accounts accountService, products productService) *RESTServer {
	t.Helper()
	cfg := &config.Config{
		EndpointAddrHTTP:  ":0",
		SecretKey:         testSecret,
		CORSAllowedOrigin: "http://localhost:3000",
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s, err := NewRESTServer(cfg, logger, accounts, products)
	if err != nil {
		t.Fatalf("NewRESTServer error: %v", err)
	}
	return s
}

func doJSON(t *testing.T, h http.Handler, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rr.Body.String(), err)
	}
	return m
}

func validToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	token, err := auth.GenerateToken("u1", "Alex B", []byte(testSecret), ttl)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	return token
}

func TestRegister_Success(t *testing.T) {
	accounts := &fakeAccounts{}
	h := newTestServer(t, accounts, &fakeProducts{}).Router()

	rr := doJSON(t, h, http.MethodPost, "/api/register", "", map[string]string{
		"full_name": "Alex B", "email": "a@x.com", "password": "secret",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := decodeBody(t, rr)["message"]; got != "Регистрация успешна" {
		t.Fatalf("unexpected message: %v", got)
	}
	if accounts.lastRegisterEmail != "a@x.com" {
		t.Fatalf("register not forwarded, got %q", accounts.lastRegisterEmail)
	}
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"missing fields", common.ErrValidation, http.StatusBadRequest, "Все поля обязательны"},
		{"duplicate email", common.ErrEmailTaken, http.StatusBadRequest, "Email уже используется"},
		{"backend failure", common.ErrorInternal, http.StatusInternalServerError, "Server error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestServer(t, &fakeAccounts{registerErr: tc.err}, &fakeProducts{}).Router()

			rr := doJSON(t, h, http.MethodPost, "/api/register", "", map[string]string{
				"full_name": "Alex B", "email": "a@x.com", "password": "secret",
			})

			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
			if got := decodeBody(t, rr)["error"]; got != tc.message {
				t.Fatalf("expected error %q, got %v", tc.message, got)
			}
		})
	}
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"unknown email", common.ErrUserNotFound, http.StatusBadRequest, "Пользователь не найден"},
		{"wrong password", common.ErrInvalidCredentials, http.StatusBadRequest, "Неверный пароль"},
		{"backend failure", common.ErrorInternal, http.StatusInternalServerError, "Server error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestServer(t, &fakeAccounts{loginErr: tc.err}, &fakeProducts{}).Router()

			rr := doJSON(t, h, http.MethodPost, "/api/login", "", map[string]string{
				"email": "a@x.com", "password": "secret",
			})

			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			if got := decodeBody(t, rr)["error"]; got != tc.message {
				t.Fatalf("expected error %q, got %v", tc.message, got)
			}
		})
	}
}

func TestLogin_Success(t *testing.T) {
	accounts := &fakeAccounts{loginOut: &services.LoginResult{Token: "tok", FullName: "Alex B"}}
	h := newTestServer(t, accounts, &fakeProducts{}).Router()

	rr := doJSON(t, h, http.MethodPost, "/api/login", "", map[string]string{
		"email": "a@x.com", "password": "secret",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["token"] != "tok" || body["full_name"] != "Alex B" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestAuthMiddleware(t *testing.T) {
	h := newTestServer(t, &fakeAccounts{}, &fakeProducts{}).Router()

	tests := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{"no header", "", http.StatusUnauthorized, "Нет токена"},
		{"single word", "garbage", http.StatusUnauthorized, "Неверный токен"},
		{"bad token", "Bearer not.a.jwt", http.StatusUnauthorized, "Неверный токен"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader("{}"))
			if tc.header != "" {
				req.Header.Set(common.AuthorizationHeaderName, tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			if got := decodeBody(t, rr)["error"]; got != tc.message {
				t.Fatalf("expected error %q, got %v", tc.message, got)
			}
		})
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	h := newTestServer(t, &fakeAccounts{}, &fakeProducts{}).Router()

	// expired beyond the verification leeway
	token, err := auth.GenerateToken("u1", "Alex B", []byte(testSecret), -2*auth.ExpiryLeeway)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	rr := doJSON(t, h, http.MethodPost, "/api/products", token, map[string]string{"title": "T"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if got := decodeBody(t, rr)["error"]; got != "Токен истёк" {
		t.Fatalf("expected expiry error, got %v", got)
	}
}

func TestListProducts_Public(t *testing.T) {
	products := &fakeProducts{listOut: []*models.Product{
		{ID: "p1", Title: "T", OwnerName: "Alex B", Tags: []string{"go"}},
	}}
	h := newTestServer(t, &fakeAccounts{}, products).Router()

	rr := doJSON(t, h, http.MethodGet, "/api/products", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var out []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(out) != 1 || out[0]["owner_name"] != "Alex B" {
		t.Fatalf("unexpected listing: %v", out)
	}
}

func TestCreateProduct_OwnerFromToken(t *testing.T) {
	products := &fakeProducts{}
	h := newTestServer(t, &fakeAccounts{}, products).Router()

	rr := doJSON(t, h, http.MethodPost, "/api/products", validToken(t, time.Hour), map[string]string{
		"title": "T", "tags": "go, cli",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if products.lastOwnerID != "u1" {
		t.Fatalf("owner must come from the token claims, got %q", products.lastOwnerID)
	}
	body := decodeBody(t, rr)
	if body["owner_id"] != "u1" || body["id"] != "p1" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestCreateProduct_WithUploadTasks(t *testing.T) {
	products := &fakeProducts{
		createTasks: []*models.MediaUploadTask{
			{MediaID: "m1", StorageKey: "products/k", URL: "http://upload/k"},
		},
	}
	h := newTestServer(t, &fakeAccounts{}, products).Router()

	rr := doJSON(t, h, http.MethodPost, "/api/products", validToken(t, time.Hour), map[string]any{
		"title": "T",
		"media": []map[string]string{{"content_type": "image/png"}},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	uploads, ok := body["media_uploads"].([]any)
	if !ok || len(uploads) != 1 {
		t.Fatalf("expected one upload task, got %v", body["media_uploads"])
	}
	task := uploads[0].(map[string]any)
	if task["media_id"] != "m1" || task["upload_url"] != "http://upload/k" {
		t.Fatalf("unexpected task: %v", task)
	}
}

func TestUpdateProduct_NotFound(t *testing.T) {
	products := &fakeProducts{updateErr: common.ErrorNotFound}
	h := newTestServer(t, &fakeAccounts{}, products).Router()

	rr := doJSON(t, h, http.MethodPut, "/api/products/missing", validToken(t, time.Hour), map[string]string{
		"title": "x",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if got := decodeBody(t, rr)["error"]; got != "Не найдено" {
		t.Fatalf("unexpected error: %v", got)
	}
}

func TestDeleteProduct(t *testing.T) {
	h := newTestServer(t, &fakeAccounts{}, &fakeProducts{}).Router()

	rr := doJSON(t, h, http.MethodDelete, "/api/products/p1", validToken(t, time.Hour), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := decodeBody(t, rr)["message"]; got != "Deleted" {
		t.Fatalf("unexpected message: %v", got)
	}
}

func TestDeleteProduct_Ungated401(t *testing.T) {
	h := newTestServer(t, &fakeAccounts{}, &fakeProducts{}).Router()

	rr := doJSON(t, h, http.MethodDelete, "/api/products/p1", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("mutation routes must be gated, got %d", rr.Code)
	}
}

func TestAttachMedia(t *testing.T) {
	products := &fakeProducts{
		attachOut: &models.MediaUploadTask{MediaID: "m1", StorageKey: "products/k", URL: "http://upload/k"},
	}
	h := newTestServer(t, &fakeAccounts{}, products).Router()

	rr := doJSON(t, h, http.MethodPost, "/api/products/p1/media", validToken(t, time.Hour), map[string]string{
		"content_type": "image/png",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["media_id"] != "m1" || body["storage_key"] != "products/k" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestMediaDownloadURL(t *testing.T) {
	products := &fakeProducts{urlOut: "http://download/k"}
	h := newTestServer(t, &fakeAccounts{}, products).Router()

	rr := doJSON(t, h, http.MethodGet, "/api/media/m1/url", validToken(t, time.Hour), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := decodeBody(t, rr)["url"]; got != "http://download/k" {
		t.Fatalf("unexpected url: %v", got)
	}
}

func TestMarkMediaUploaded_NotFound(t *testing.T) {
	products := &fakeProducts{markErr: common.ErrorNotFound}
	h := newTestServer(t, &fakeAccounts{}, products).Router()

	rr := doJSON(t, h, http.MethodPost, "/api/media/missing/uploaded", validToken(t, time.Hour), nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, &fakeAccounts{}, &fakeProducts{}).Router()

	rr := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	s := newTestServer(t, &fakeAccounts{}, &fakeProducts{})

	h := s.recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if got := decodeBody(t, rr)["error"]; got != "Server error" {
		t.Fatalf("unexpected error: %v", got)
	}
}

func TestRegisterLoginCreateFlow(t *testing.T) {
	accounts := &fakeAccounts{
		loginOut: &services.LoginResult{Token: validToken(t, time.Hour), FullName: "Alex B"},
	}
	products := &fakeProducts{}
	h := newTestServer(t, accounts, products).Router()

	rr := doJSON(t, h, http.MethodPost, "/api/register", "", map[string]string{
		"full_name": "Alex B", "email": "a@x.com", "password": "secret",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("register failed: %d", rr.Code)
	}

	rr = doJSON(t, h, http.MethodPost, "/api/login", "", map[string]string{
		"email": "a@x.com", "password": "secret",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("login failed: %d", rr.Code)
	}
	token, _ := decodeBody(t, rr)["token"].(string)
	if token == "" {
		t.Fatalf("login returned no token")
	}

	rr = doJSON(t, h, http.MethodPost, "/api/products", token, map[string]string{"title": "T"})
	if rr.Code != http.StatusOK {
		t.Fatalf("gated create with fresh token failed: %d %s", rr.Code, rr.Body.String())
	}
	if products.lastOwnerID != "u1" {
		t.Fatalf("claims did not flow into the create, owner %q", products.lastOwnerID)
	}
}

func TestClaimsFromContext(t *testing.T) {
	if _, err := ClaimsFromContext(context.Background()); err == nil {
		t.Fatalf("expected error on missing claims")
	}

	ctx := ContextWithClaims(context.Background(), &auth.Claims{UserID: "u1"})
	claims, err := ClaimsFromContext(ctx)
	if err != nil {
		t.Fatalf("ClaimsFromContext error: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}
