package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"contract-backend/internal/shared/auth"
)

const testSecret = "test-secret"

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(testSecret))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": UserIDFromContext(c)})
	})
	return r
}

func TestAuthAcceptsValidBearerToken(t *testing.T) {
	r := newAuthRouter(t)

	token, err := auth.Sign(testSecret, "user-42", "u@example.com", "U")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if want := `"userId":"user-42"`; !strings.Contains(rec.Body.String(), want) {
		t.Fatalf("body = %s, want to contain %s", rec.Body.String(), want)
	}
}

func TestAuthRejectsBadToken(t *testing.T) {
	r := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	r := newAuthRouter(t)

	token, err := auth.Sign("other-secret", "user-42", "", "")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthFallsBackToGuestHeader(t *testing.T) {
	r := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Guest-Id", "abc123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if want := `"userId":"guest:abc123"`; !strings.Contains(rec.Body.String(), want) {
		t.Fatalf("body = %s, want to contain %s", rec.Body.String(), want)
	}
}

func TestAuthAnswersPreflightWithoutRunningHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(testSecret))
	handlerRan := false
	r.OPTIONS("/whoami", func(c *gin.Context) {
		handlerRan = true
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/whoami", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if handlerRan {
		t.Fatal("handler ran for a preflight request")
	}
}

func TestAuthRejectsMissingIdentity(t *testing.T) {
	r := newAuthRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
