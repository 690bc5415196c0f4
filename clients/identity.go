package clients

import (
	"context"
	"strings"
	"time"

	"github.com/fasttech-foods/backoffice-api/models"
)

// LoginResponse is the identity service's answer to POST /auth/login
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refreshToken"`
	User         models.User `json:"user"`
}

// TokenClaim is one claim reported by /auth/token-info
type TokenClaim struct {
	Type            string `json:"type"`
	Value           string `json:"value"`
	IsStandardClaim bool   `json:"isStandardClaim"`
}

// TokenInfo describes the caller's token as seen by the identity service
type TokenInfo struct {
	IsAuthenticated    bool              `json:"isAuthenticated"`
	AuthenticationType string            `json:"authenticationType"`
	Name               string            `json:"name"`
	UserIDDebugging    map[string]string `json:"userIdDebugging"`
	TotalClaims        int               `json:"totalClaims"`
	Claims             []TokenClaim      `json:"claims"`
	Timestamp          string            `json:"timestamp"`
}

// AdminAccess is the answer of GET /auth/admin
type AdminAccess struct {
	Message  string `json:"message"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Roles    string `json:"roles"`
}

// InstanceInfo describes the pod serving the identity API
type InstanceInfo struct {
	PodName         string `json:"podName"`
	PodNamespace    string `json:"podNamespace"`
	PodIP           string `json:"podIp"`
	NodeName        string `json:"nodeName"`
	ApplicationName string `json:"applicationName"`
	Version         string `json:"version"`
	Environment     string `json:"environment"`
	Platform        string `json:"platform"`
	Uptime          string `json:"uptime"`
	Timestamp       string `json:"timestamp"`
}

// IdentityClient talks to the identity service
type IdentityClient struct {
	*Client
}

// NewIdentityClient creates a client for the identity service
func NewIdentityClient(baseURL string, timeout time.Duration) *IdentityClient {
	return &IdentityClient{Client: NewClient("identity", baseURL, timeout)}
}

// Login exchanges credentials for tokens
func (c *IdentityClient) Login(ctx context.Context, emailOrCPF, password string) (*LoginResponse, error) {
	body := map[string]string{"emailOrCpf": emailOrCPF, "password": password}
	var resp LoginResponse
	if err := c.Post(ctx, "/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates a user account
func (c *IdentityClient) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	var user models.User
	if err := c.Post(ctx, "/auth/register", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUser returns the profile behind the context's token
func (c *IdentityClient) CurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.Get(ctx, "/auth/eu", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// TokenInfo returns the identity service's view of the context's token
func (c *IdentityClient) TokenInfo(ctx context.Context) (*TokenInfo, error) {
	var info TokenInfo
	if err := c.Get(ctx, "/auth/token-info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CheckAdminAccess calls the admin-only probe endpoint
func (c *IdentityClient) CheckAdminAccess(ctx context.Context) (*AdminAccess, error) {
	var access AdminAccess
	if err := c.Get(ctx, "/auth/admin", nil, &access); err != nil {
		return nil, err
	}
	return &access, nil
}

// InstanceInfo returns the serving pod's metadata
func (c *IdentityClient) InstanceInfo(ctx context.Context) (*InstanceInfo, error) {
	var info InstanceInfo
	if err := c.Get(ctx, "/instance/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Health probes the service root's /health endpoint, which lives outside the /api prefix
func (c *IdentityClient) Health(ctx context.Context) (string, error) {
	root := strings.TrimSuffix(c.BaseURL(), "/api")
	return c.GetRaw(ctx, root+"/health")
}

// DetailedHealth returns the raw body of <root>/health/detailed
func (c *IdentityClient) DetailedHealth(ctx context.Context) (string, error) {
	root := strings.TrimSuffix(c.BaseURL(), "/api")
	return c.GetRaw(ctx, root+"/health/detailed")
}
