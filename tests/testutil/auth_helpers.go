package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fasttech-foods/backoffice-api/middleware"
	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/gin-gonic/gin"
	jose "gopkg.in/go-jose/go-jose.v2"
	"gopkg.in/go-jose/go-jose.v2/jwt"
)

// JWT settings shared by the test configs and SignToken
const (
	TestJWTSecret   = "integration-secret-with-enough-bytes"
	TestJWTIssuer   = "fasttech-identity"
	TestJWTAudience = "fasttech-backoffice"
)

// SignToken issues an HS256 bearer token accepted by a validator built from the test JWT settings
func SignToken(t *testing.T, subject, name string, roles []string, ttl time.Duration) string {
	t.Helper()
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: []byte(TestJWTSecret)},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		t.Fatalf("Failed to create signer: %v", err)
	}

	now := time.Now()
	token, err := jwt.Signed(signer).
		Claims(jwt.Claims{
			Subject:  subject,
			Issuer:   TestJWTIssuer,
			Audience: jwt.Audience{TestJWTAudience},
			IssuedAt: jwt.NewNumericDate(now),
			Expiry:   jwt.NewNumericDate(now.Add(ttl)),
		}).
		Claims(map[string]interface{}{"name": name, "roles": roles}).
		CompactSerialize()
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

// SetMockSession puts a signed-in session on a test context
func SetMockSession(c *gin.Context, userID string, roles ...string) *models.Session {
	session := &models.Session{
		ID:          "session-" + userID,
		AccessToken: "token-" + userID,
		User:        &models.User{ID: userID, Name: "Test User", Roles: roles},
	}
	middleware.SetSession(c, session)
	return session
}

// CreateTestContext creates a test Gin context recording into the returned recorder
func CreateTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}
