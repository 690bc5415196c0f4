package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/fasttech-foods/backoffice-api/clients"
	"github.com/fasttech-foods/backoffice-api/config"
	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/gin-gonic/gin"
)

const (
	// SessionCookie carries the session id for browser clients
	SessionCookie = "backoffice_session"
	// SessionHeader carries the session id for API clients, and echoes it back
	SessionHeader = "X-Session-ID"

	sessionKey       = "session"
	claimsKey        = "validated_claims"
	cookieOptionsKey = "session_cookie"
)

type cookieOptions struct {
	maxAge int
	secure bool
}

// SessionResolver loads or creates the session behind an id
type SessionResolver interface {
	Resolve(ctx context.Context, id string) (*models.Session, error)
}

// Sessions resolves the caller's session, creating an anonymous one when the
// request carries no known id, and puts the session token on the request context
func Sessions(resolver SessionResolver, cookieMaxAge time.Duration, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if id == "" {
			id, _ = c.Cookie(SessionCookie)
		}

		session, err := resolver.Resolve(c.Request.Context(), id)
		if err != nil {
			log.Printf("Failed to resolve session: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "SESSION_ERROR",
					"message": "Could not load session",
				},
			})
			c.Abort()
			return
		}

		opts := cookieOptions{maxAge: int(cookieMaxAge.Seconds()), secure: secure}
		c.Set(cookieOptionsKey, opts)
		if session.ID != id {
			setSessionCookie(c, session.ID, opts)
		}
		c.Header(SessionHeader, session.ID)
		c.Set(sessionKey, session)

		if session.AccessToken != "" {
			c.Request = c.Request.WithContext(clients.WithBearerToken(c.Request.Context(), session.AccessToken))
		}
		c.Next()
	}
}

// CustomClaims contains the identity data we read from bearer tokens
type CustomClaims struct {
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  string   `json:"role"`
	Roles []string `json:"roles"`
}

// Validate does nothing, but we need it to satisfy validator.CustomClaims interface.
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// AllRoles merges the single role claim into the role list
func (c CustomClaims) AllRoles() []string {
	roles := append([]string(nil), c.Roles...)
	if c.Role != "" {
		for _, r := range roles {
			if r == c.Role {
				return roles
			}
		}
		roles = append(roles, c.Role)
	}
	return roles
}

// NewTokenValidator builds the HS256 validator for stateless bearer callers.
// It returns nil when no JWT secret is configured.
func NewTokenValidator(cfg *config.Config) (*validator.Validator, error) {
	if !cfg.BearerAuthEnabled() {
		return nil, nil
	}

	secret := []byte(cfg.JWTSecret)
	return validator.New(
		func(context.Context) (interface{}, error) { return secret, nil },
		validator.HS256,
		cfg.JWTIssuer,
		[]string{cfg.JWTAudience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
}

// RequireAuth admits signed-in sessions, and callers presenting a valid bearer
// JWT when a validator is configured. Bearer callers get a stateless session.
func RequireAuth(jwtValidator *validator.Validator) gin.HandlerFunc {
	var checker *jwtmiddleware.JWTMiddleware
	if jwtValidator != nil {
		errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
			log.Printf("Encountered error while validating JWT: %v", err)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			if _, writeErr := w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"Failed to validate JWT."}}`)); writeErr != nil {
				log.Printf("Failed to write error response: %v", writeErr)
			}
		}
		checker = jwtmiddleware.New(
			jwtValidator.ValidateToken,
			jwtmiddleware.WithErrorHandler(errorHandler),
		)
	}

	return func(c *gin.Context) {
		if session, err := GetSession(c); err == nil && session.Authenticated() {
			c.Next()
			return
		}

		if checker == nil || c.GetHeader("Authorization") == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Authentication required",
				},
			})
			c.Abort()
			return
		}

		passed := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			passed = true
			claims := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))

			c.Set(claimsKey, claims)
			c.Set(sessionKey, statelessSession(claims, token))
			c.Request = r.WithContext(clients.WithBearerToken(r.Context(), token))
			c.Next()
		}

		checker.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}

func statelessSession(claims *validator.ValidatedClaims, token string) *models.Session {
	subject := claims.RegisteredClaims.Subject
	user := &models.User{ID: subject}
	if custom, ok := claims.CustomClaims.(*CustomClaims); ok {
		user.Name = custom.Name
		user.Email = custom.Email
		user.Roles = custom.AllRoles()
	}
	return &models.Session{
		ID:          "bearer:" + subject,
		AccessToken: token,
		User:        user,
		Stateless:   true,
	}
}

// RequireRole admits users holding the role or a more privileged one
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := GetSession(c)
		if err != nil || session.User == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Authentication required",
				},
			})
			c.Abort()
			return
		}

		if !hasRole(session.User, role) {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Insufficient permissions to access this resource",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func hasRole(user *models.User, role string) bool {
	switch role {
	case models.RoleAdmin:
		return user.IsAdmin()
	case models.RoleManager:
		return user.IsManager()
	case models.RoleEmployee:
		return user.IsEmployee()
	default:
		return user.HasRole(role)
	}
}

// GetSession extracts the session from the Gin context
func GetSession(c *gin.Context) (*models.Session, error) {
	value, exists := c.Get(sessionKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_SESSION", Message: "Session not found in context"}
	}

	session, ok := value.(*models.Session)
	if !ok {
		return nil, &AuthError{Code: "INVALID_SESSION", Message: "Session is not in the expected format"}
	}

	return session, nil
}

func setSessionCookie(c *gin.Context, id string, opts cookieOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, id, opts.maxAge, "/", "", opts.secure, true)
}

// RenewSession hands the caller a session whose id changed during the request,
// replacing the cookie and the echoed header
func RenewSession(c *gin.Context, session *models.Session) {
	c.Set(sessionKey, session)
	if session.Stateless {
		return
	}
	if opts, ok := c.Get(cookieOptionsKey); ok {
		setSessionCookie(c, session.ID, opts.(cookieOptions))
	}
	c.Header(SessionHeader, session.ID)
}

// SetSession replaces the session in the Gin context (primarily for testing)
func SetSession(c *gin.Context, session *models.Session) {
	c.Set(sessionKey, session)
}

// GetActor identifies the signed-in staff member for audit fields
func GetActor(c *gin.Context) models.Actor {
	session, err := GetSession(c)
	if err != nil || session.User == nil {
		return models.Actor{}
	}
	return models.Actor{ID: session.User.ID, Name: session.User.Name}
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(claimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
