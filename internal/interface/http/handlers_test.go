package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	userapp "github.com/oksasatya/go-ems-backend/internal/application"
	"github.com/oksasatya/go-ems-backend/internal/infrastructure/memory"
	"github.com/oksasatya/go-ems-backend/internal/interface/middleware"
	"github.com/oksasatya/go-ems-backend/pkg/helpers"
	"github.com/oksasatya/go-ems-backend/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type testServer struct {
	engine *gin.Engine
	jwt    *helpers.JWTManager
}

func newTestServer(t *testing.T, opts ...userapp.Option) *testServer {
	t.Helper()
	logger := helpers.NewNopLogger()
	jwt := helpers.NewJWTManager("access", "refresh", time.Minute, time.Hour)
	opts = append([]userapp.Option{userapp.WithJWT(jwt)}, opts...)
	svc := userapp.NewService(memory.NewUserRepository(), helpers.NewBcryptHasher(bcrypt.MinCost), logger, opts...)

	auth := NewAuthHandler(svc, logger, "", false)
	users := NewUserHandler(svc, logger)

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware(), middleware.RealIP(nil))
	api := r.Group("/api")
	api.POST("/auth/register", auth.Register)
	api.POST("/auth/login", auth.Login)
	api.POST("/auth/refresh", auth.Refresh)
	api.POST("/auth/logout", middleware.Auth(nil, jwt), auth.Logout)
	api.GET("/auth/me", middleware.Auth(nil, jwt), auth.Me)
	api.GET("/users", users.List)
	api.GET("/users/search", users.Search)
	api.GET("/users/:id", users.Get)
	api.POST("/users", users.Create)
	api.PUT("/users/:id", users.Update)
	api.DELETE("/users/:id", users.Delete)
	api.POST("/users/:id/avatar", users.UploadAvatar)
	return &testServer{engine: r, jwt: jwt}
}

func (s *testServer) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid json %q: %v", w.Body.String(), err)
	}
	return v
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/auth/register", `{"name":"Ann","email":"ann@x.com","password":"secret1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("register status = %d, body = %s", w.Code, w.Body.String())
	}
	reg := decode[map[string]any](t, w)
	if reg["name"] != "Ann" || reg["email"] != "ann@x.com" || reg["id"] == "" {
		t.Errorf("register body = %v", reg)
	}
	if len(reg) != 3 {
		t.Errorf("register body has extra fields: %v", reg)
	}

	w = s.do(http.MethodPost, "/api/auth/login", `{"email":"ann@x.com","password":"secret1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}
	login := decode[map[string]any](t, w)
	if login["id"] != reg["id"] || login["email"] != "ann@x.com" {
		t.Errorf("login body = %v", login)
	}
	var names []string
	for _, c := range w.Result().Cookies() {
		names = append(names, c.Name)
	}
	if strings.Join(names, ",") != helpers.AccessCookie+","+helpers.RefreshCookie {
		t.Errorf("cookies = %v", names)
	}

	w = s.do(http.MethodPost, "/api/auth/login", `{"email":"ann@x.com","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"error":"Invalid credentials"}` {
		t.Errorf("wrong password body = %s", w.Body.String())
	}

	w = s.do(http.MethodPost, "/api/auth/login", `{"email":"ghost@x.com","password":"secret1"}`)
	if w.Code != http.StatusUnauthorized || strings.TrimSpace(w.Body.String()) != `{"error":"Invalid credentials"}` {
		t.Errorf("unknown email = %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing name", `{"email":"a@x.com","password":"p"}`, "name"},
		{"bad email", `{"name":"A","email":"nope","password":"p"}`, "email"},
		{"missing password", `{"name":"A","email":"a@x.com"}`, "password"},
		{"password too long", `{"name":"A","email":"a@x.com","password":"` + strings.Repeat("p", 73) + `"}`, "password"},
		{"blank name", `{"name":"   ","email":"a@x.com","password":"secret1"}`, "name"},
		{"blank password", `{"name":"A","email":"a@x.com","password":"   "}`, "password"},
		{"broken json", `{"name":`, "payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/auth/register", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			body := decode[map[string]any](t, w)
			details, _ := body["error"].(map[string]any)
			if _, ok := details[tt.field]; !ok {
				t.Errorf("details = %v, want key %q", details, tt.field)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	body := `{"name":"Ann","email":"ann@x.com","password":"secret1"}`
	if w := s.do(http.MethodPost, "/api/auth/register", body); w.Code != http.StatusOK {
		t.Fatalf("first register = %d", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/auth/register", body); w.Code != http.StatusConflict {
		t.Fatalf("second register = %d, want 409", w.Code)
	}
}

func TestLoginValidation(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/api/auth/login", `{"email":"not-an-email","password":"x"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestMeRefreshLogout(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/api/auth/register", `{"name":"Ann","email":"ann@x.com","password":"secret1"}`)
	w := s.do(http.MethodPost, "/api/auth/login", `{"email":"ann@x.com","password":"secret1"}`)
	cookies := w.Result().Cookies()

	if w := s.do(http.MethodGet, "/api/auth/me", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("me without cookie = %d, want 401", w.Code)
	}
	w = s.do(http.MethodGet, "/api/auth/me", "", cookies...)
	if w.Code != http.StatusOK {
		t.Fatalf("me = %d %s", w.Code, w.Body.String())
	}
	me := decode[map[string]any](t, w)
	data, _ := me["data"].(map[string]any)
	if data["email"] != "ann@x.com" {
		t.Errorf("me data = %v", data)
	}
	if _, leaked := data["password_hash"]; leaked {
		t.Error("password hash exposed")
	}

	w = s.do(http.MethodPost, "/api/auth/refresh", "", cookies...)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh = %d %s", w.Code, w.Body.String())
	}
	if w := s.do(http.MethodPost, "/api/auth/refresh", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("refresh without cookie = %d, want 401", w.Code)
	}

	w = s.do(http.MethodPost, "/api/auth/logout", "", cookies...)
	if w.Code != http.StatusOK {
		t.Fatalf("logout = %d", w.Code)
	}
	for _, c := range w.Result().Cookies() {
		if c.MaxAge >= 0 {
			t.Errorf("cookie %s not cleared: MaxAge=%d", c.Name, c.MaxAge)
		}
	}
}

func TestUserCRUD(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/users", `{"name":"Bob","email":"bob@x.com","bio":"hello"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	created := decode[map[string]any](t, w)
	id, _ := created["id"].(string)
	if id == "" || created["bio"] != "hello" {
		t.Fatalf("created = %v", created)
	}
	if _, ok := created["avatar"]; ok {
		t.Errorf("absent avatar should be omitted: %v", created)
	}

	if w := s.do(http.MethodGet, "/api/users/"+id, ""); w.Code != http.StatusOK {
		t.Errorf("get = %d", w.Code)
	}

	w = s.do(http.MethodPut, "/api/users/"+id, `{"name":"Bobby","email":"bobby@x.com","avatar":"b.png"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d %s", w.Code, w.Body.String())
	}
	updated := decode[map[string]any](t, w)
	if updated["name"] != "Bobby" || updated["avatar"] != "b.png" {
		t.Errorf("updated = %v", updated)
	}
	if _, ok := updated["bio"]; ok {
		t.Errorf("bio should be cleared by full overwrite: %v", updated)
	}

	w = s.do(http.MethodGet, "/api/users", "")
	if list := decode[[]map[string]any](t, w); len(list) != 1 || list[0]["id"] != id {
		t.Errorf("list = %v", list)
	}

	// created users have no credentials
	if w := s.do(http.MethodPost, "/api/auth/login", `{"email":"bobby@x.com","password":"x"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("login of created user = %d, want 401", w.Code)
	}

	if w := s.do(http.MethodDelete, "/api/users/"+id, ""); w.Code != http.StatusNoContent {
		t.Errorf("delete = %d", w.Code)
	}
	if w := s.do(http.MethodDelete, "/api/users/"+id, ""); w.Code != http.StatusNoContent {
		t.Errorf("repeated delete = %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/users/"+id, ""); w.Code != http.StatusNotFound {
		t.Errorf("get deleted = %d, want 404", w.Code)
	}
}

func TestUserErrors(t *testing.T) {
	s := newTestServer(t)

	if w := s.do(http.MethodPut, "/api/users/missing", `{"name":"X","email":"x@x.com"}`); w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/users", `{"name":"X","email":"bad"}`); w.Code != http.StatusBadRequest {
		t.Errorf("create invalid = %d, want 400", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/users", `{"name":"  ","email":"x@x.com"}`); w.Code != http.StatusBadRequest {
		t.Errorf("create blank name = %d, want 400", w.Code)
	}
	long := strings.Repeat("b", 2001)
	if w := s.do(http.MethodPost, "/api/users", `{"name":"X","email":"x@x.com","bio":"`+long+`"}`); w.Code != http.StatusBadRequest {
		t.Errorf("create long bio = %d, want 400", w.Code)
	}
	s.do(http.MethodPost, "/api/users", `{"name":"X","email":"x@x.com"}`)
	if w := s.do(http.MethodPost, "/api/users", `{"name":"Y","email":"x@x.com"}`); w.Code != http.StatusConflict {
		t.Errorf("create duplicate = %d, want 409", w.Code)
	}
}

func TestSearchWithoutIndex(t *testing.T) {
	s := newTestServer(t)
	if w := s.do(http.MethodGet, "/api/users/search", ""); w.Code != http.StatusBadRequest {
		t.Errorf("search without q = %d, want 400", w.Code)
	}
	w := s.do(http.MethodGet, "/api/users/search?q=ann", "")
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	body := decode[map[string]any](t, w)
	meta, _ := body["meta"].(map[string]any)
	if meta["count"] != float64(0) {
		t.Errorf("meta = %v", meta)
	}
}

type memUploader struct{}

func (memUploader) Upload(_ context.Context, objectPath, _ string, _ io.Reader) (string, error) {
	return helpers.PublicURL("avatars-bucket", objectPath), nil
}

func multipartBody(t *testing.T, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="me.png"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte("\x89PNG"))
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func (s *testServer) upload(t *testing.T, id, contentType string) *httptest.ResponseRecorder {
	body, ct := multipartBody(t, contentType)
	req := httptest.NewRequest(http.MethodPost, "/api/users/"+id+"/avatar", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestUploadAvatar(t *testing.T) {
	s := newTestServer(t, userapp.WithAvatars(memUploader{}))
	created := decode[map[string]any](t, s.do(http.MethodPost, "/api/users", `{"name":"Bob","email":"bob@x.com"}`))
	id := created["id"].(string)

	w := s.upload(t, id, "image/png")
	if w.Code != http.StatusOK {
		t.Fatalf("upload = %d %s", w.Code, w.Body.String())
	}
	got := decode[map[string]any](t, w)
	avatar, _ := got["avatar"].(string)
	if !strings.HasPrefix(avatar, "https://storage.googleapis.com/avatars-bucket/avatars/"+id+"/") {
		t.Errorf("avatar = %q", avatar)
	}

	if w := s.upload(t, id, "text/plain"); w.Code != http.StatusBadRequest {
		t.Errorf("non-image upload = %d, want 400", w.Code)
	}
	if w := s.upload(t, "missing", "image/png"); w.Code != http.StatusNotFound {
		t.Errorf("upload for missing user = %d, want 404", w.Code)
	}
}

func TestUploadAvatarWithoutStorage(t *testing.T) {
	s := newTestServer(t)
	created := decode[map[string]any](t, s.do(http.MethodPost, "/api/users", `{"name":"Bob","email":"bob@x.com"}`))
	if w := s.upload(t, created["id"].(string), "image/png"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("upload without storage = %d, want 503", w.Code)
	}
}
