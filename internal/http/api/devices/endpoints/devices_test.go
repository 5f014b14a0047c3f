package endpoints

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ezanapp/minaret/internal/db"
	"github.com/ezanapp/minaret/internal/http/api"
	"github.com/ezanapp/minaret/internal/http/middleware"
	"github.com/ezanapp/minaret/internal/model"
)

const testSecretKey = "test-jwt-secret"

func newTestRouter(store db.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api.MountGroup(router, api.GroupConfig{Prefix: "/api/app"}, DevicePublicModule(testSecretKey, store))

	// one authenticated probe route so issued tokens can be verified end to end
	api.MountGroup(router, api.GroupConfig{
		Prefix: "/api/app/protected", Auth: true, SecretKey: testSecretKey, Store: store,
	}, api.ModuleFunc(func(c *api.Controller) {
		c.GET("/whoami", func(_ *gin.Context, device *model.Device) (any, *api.APIError) {
			return gin.H{"device_id": device.DeviceID}, nil
		})
	}))
	return router
}

func doJSON(router *gin.Engine, method, path string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func register(t *testing.T, router *gin.Engine, deviceID, secret string) string {
	t.Helper()
	w := doJSON(router, http.MethodPost, "/api/app/devices/register",
		map[string]string{"device_id": deviceID, "secret": secret}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("register failed: status=%d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("register must return a token, got body=%s err=%v", w.Body.String(), err)
	}
	return resp.Token
}

func TestRegisterIssuesWorkingToken(t *testing.T) {
	router := newTestRouter(db.NewMemStore())
	token := register(t, router, "android-abc123", "install-s3cret-0123456789")

	w := doJSON(router, http.MethodGet, "/api/app/protected/whoami", nil,
		map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusOK {
		t.Fatalf("issued token must pass auth, got status=%d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		DeviceID string `json:"device_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.DeviceID != "android-abc123" {
		t.Fatalf("expected the registered device back, got %s", w.Body.String())
	}
}

func TestRegisterDuplicateConflicts(t *testing.T) {
	router := newTestRouter(db.NewMemStore())
	register(t, router, "android-abc123", "install-s3cret-0123456789")

	w := doJSON(router, http.MethodPost, "/api/app/devices/register",
		map[string]string{"device_id": "android-abc123", "secret": "another-s3cret-0123456789"}, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("re-registering must conflict, got status=%d", w.Code)
	}
}

func TestTokenRefresh(t *testing.T) {
	router := newTestRouter(db.NewMemStore())
	register(t, router, "android-abc123", "install-s3cret-0123456789")

	w := doJSON(router, http.MethodPost, "/api/app/devices/token",
		map[string]string{"device_id": "android-abc123", "secret": "install-s3cret-0123456789"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh with the right secret must succeed, got status=%d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(router, http.MethodPost, "/api/app/devices/token",
		map[string]string{"device_id": "android-abc123", "secret": "wrong-s3cret-000123456789"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("a wrong secret must be rejected, got status=%d", w.Code)
	}
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil || errResp.Error != middleware.ErrInvalidCredentials.Error() {
		t.Fatalf("rejection must carry the credentials error, got %s", w.Body.String())
	}

	w = doJSON(router, http.MethodPost, "/api/app/devices/token",
		map[string]string{"device_id": "never-registered", "secret": "install-s3cret-0123456789"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("an unknown device must be rejected, got status=%d", w.Code)
	}
}

func TestProtectedRouteRejectsBadTokens(t *testing.T) {
	router := newTestRouter(db.NewMemStore())

	w := doJSON(router, http.MethodGet, "/api/app/protected/whoami", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token must be rejected, got status=%d", w.Code)
	}

	w = doJSON(router, http.MethodGet, "/api/app/protected/whoami", nil,
		map[string]string{"Authorization": "Bearer not-a-jwt"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token must be rejected, got status=%d", w.Code)
	}
}
