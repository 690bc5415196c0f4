package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/fasttech-foods/backoffice-api/clients"
	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/gin-gonic/gin"
)

func newUpstream(t *testing.T, router *gin.Engine) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func upstreamRouter(failing func() bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if failing() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "Service unavailable"})
			return
		}
		c.Next()
	})
	return router
}

// FakeKitchen serves the kitchen and analytics endpoints from memory
type FakeKitchen struct {
	Server *httptest.Server

	mu      sync.Mutex
	orders  []models.KitchenOrder
	updates []models.UpdateOrderStatusRequest
	queries []url.Values
	failing bool

	Totals models.DashboardTotals
	Counts []models.StatusCount
	Top    []models.TopProduct
}

// NewFakeKitchen starts a kitchen service holding the given orders
func NewFakeKitchen(t *testing.T, orders ...models.KitchenOrder) *FakeKitchen {
	f := &FakeKitchen{orders: append([]models.KitchenOrder(nil), orders...)}
	router := upstreamRouter(f.isFailing)

	router.GET("/orders", func(c *gin.Context) {
		c.JSON(http.StatusOK, f.list(c.Query("status")))
	})
	router.GET("/orders/pending", func(c *gin.Context) {
		c.JSON(http.StatusOK, append(f.list("Received"), f.list("pending")...))
	})
	router.GET("/orders/:id", func(c *gin.Context) {
		order, ok := f.find(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
			return
		}
		c.JSON(http.StatusOK, order)
	})
	router.PUT("/orders/:id/status", func(c *gin.Context) {
		var req models.UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		if !f.setStatus(c.Param("id"), req) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
			return
		}
		c.Status(http.StatusNoContent)
	})

	analytics := router.Group("/Analytics")
	analytics.GET("/dashboard", func(c *gin.Context) {
		f.record(c.Request.URL.Query())
		c.JSON(http.StatusOK, f.Totals)
	})
	analytics.GET("/orders-by-status", func(c *gin.Context) {
		f.record(c.Request.URL.Query())
		c.JSON(http.StatusOK, f.Counts)
	})
	analytics.GET("/top-products", func(c *gin.Context) {
		f.record(c.Request.URL.Query())
		c.JSON(http.StatusOK, f.Top)
	})
	analytics.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "Healthy"})
	})

	f.Server = newUpstream(t, router)
	return f
}

// URL is the base URL to configure the kitchen client with
func (f *FakeKitchen) URL() string {
	return f.Server.URL
}

// SetFailing makes every endpoint answer 503
func (f *FakeKitchen) SetFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

func (f *FakeKitchen) isFailing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failing
}

// Updates returns the status updates received so far
func (f *FakeKitchen) Updates() []models.UpdateOrderStatusRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.UpdateOrderStatusRequest(nil), f.updates...)
}

// AnalyticsQueries returns the query strings the analytics endpoints received
func (f *FakeKitchen) AnalyticsQueries() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.queries...)
}

// Status returns the current upstream status of an order
func (f *FakeKitchen) Status(id string) string {
	order, _ := f.find(id)
	return order.Status
}

func (f *FakeKitchen) list(status string) []models.KitchenOrder {
	f.mu.Lock()
	defer f.mu.Unlock()
	orders := []models.KitchenOrder{}
	for _, o := range f.orders {
		if status == "" || strings.EqualFold(o.Status, status) {
			orders = append(orders, o)
		}
	}
	return orders
}

func (f *FakeKitchen) find(id string) (models.KitchenOrder, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == id {
			return o, true
		}
	}
	return models.KitchenOrder{}, false
}

func (f *FakeKitchen) setStatus(id string, req models.UpdateOrderStatusRequest) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders[i].Status = req.Status
			f.updates = append(f.updates, req)
			return true
		}
	}
	return false
}

func (f *FakeKitchen) record(query url.Values) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
}

// FakeCatalog serves the catalog endpoints from memory
type FakeCatalog struct {
	Server *httptest.Server

	mu           sync.Mutex
	categories   []models.Category
	products     []models.Product
	nextID       int
	productLists int
	failing      bool
}

// NewFakeCatalog starts a catalog service with the given content
func NewFakeCatalog(t *testing.T, categories []models.Category, products []models.Product) *FakeCatalog {
	f := &FakeCatalog{
		categories: append([]models.Category(nil), categories...),
		products:   append([]models.Product(nil), products...),
	}
	router := upstreamRouter(f.isFailing)

	router.GET("/categories", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		c.JSON(http.StatusOK, append([]models.Category{}, f.categories...))
	})
	router.POST("/categories", func(c *gin.Context) {
		var req models.CategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		category := models.Category{ID: f.id("cat"), Name: req.Name, Description: req.Description, IsActive: req.IsActive}
		f.categories = append(f.categories, category)
		c.JSON(http.StatusCreated, category)
	})
	router.PUT("/categories/:id", func(c *gin.Context) {
		var req models.CategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.categories {
			if f.categories[i].ID == c.Param("id") {
				f.categories[i].Name = req.Name
				f.categories[i].Description = req.Description
				f.categories[i].IsActive = req.IsActive
				c.JSON(http.StatusOK, f.categories[i])
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"message": "Category not found"})
	})
	router.DELETE("/categories/:id", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.categories {
			if f.categories[i].ID == c.Param("id") {
				f.categories = append(f.categories[:i], f.categories[i+1:]...)
				c.Status(http.StatusNoContent)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"message": "Category not found"})
	})

	router.GET("/products", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.productLists++
		c.JSON(http.StatusOK, append([]models.Product{}, f.products...))
	})
	router.GET("/products/:id", func(c *gin.Context) {
		product, ok := f.Product(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
			return
		}
		c.JSON(http.StatusOK, product)
	})
	router.POST("/products", func(c *gin.Context) {
		price, err := strconv.ParseFloat(c.PostForm("Price"), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"details": "Price is invalid"})
			return
		}
		product := models.Product{
			Name:         c.PostForm("Name"),
			Description:  c.PostForm("Description"),
			Price:        price,
			Availability: c.PostForm("Availability") == "true",
			CategoryID:   c.PostForm("CategoryId"),
		}
		if image, err := c.FormFile("Image"); err == nil {
			product.ImageURL = "https://cdn.fasttech.test/" + image.Filename
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		product.ID = f.id("prod")
		f.products = append(f.products, product)
		c.JSON(http.StatusCreated, product)
	})
	router.PUT("/products/:id", func(c *gin.Context) {
		var req models.ProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.products {
			if f.products[i].ID == c.Param("id") {
				p := &f.products[i]
				p.Name, p.Description, p.Price = req.Name, req.Description, req.Price
				p.Availability, p.CategoryID = req.Availability, req.CategoryID
				if req.ImageURL != "" {
					p.ImageURL = req.ImageURL
				}
				c.JSON(http.StatusOK, *p)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
	})
	router.PATCH("/products/:id/availability", func(c *gin.Context) {
		var req models.AvailabilityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.products {
			if f.products[i].ID == c.Param("id") {
				f.products[i].Availability = req.Availability
				c.JSON(http.StatusOK, f.products[i])
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
	})
	router.DELETE("/products/:id", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.products {
			if f.products[i].ID == c.Param("id") {
				f.products = append(f.products[:i], f.products[i+1:]...)
				c.Status(http.StatusNoContent)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
	})

	router.GET("/menu", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		menu := []models.Product{}
		for _, p := range f.products {
			if !p.Availability {
				continue
			}
			if id := c.Query("categoryId"); id != "" && p.CategoryID != id {
				continue
			}
			if !p.Matches(c.Query("search")) {
				continue
			}
			menu = append(menu, p)
		}
		c.JSON(http.StatusOK, menu)
	})

	f.Server = newUpstream(t, router)
	return f
}

// URL is the base URL to configure the catalog client with
func (f *FakeCatalog) URL() string {
	return f.Server.URL
}

// SetFailing makes every endpoint answer 503
func (f *FakeCatalog) SetFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

func (f *FakeCatalog) isFailing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failing
}

// ProductLists counts the GET /products calls received
func (f *FakeCatalog) ProductLists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.productLists
}

// Product looks a product up by id
func (f *FakeCatalog) Product(id string) (models.Product, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

func (f *FakeCatalog) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

// FakeAccount is a user known to FakeIdentity
type FakeAccount struct {
	Password string
	User     models.User
}

// FakeIdentity serves the identity endpoints. Its API base is URL()+"/api";
// /health lives at the server root.
type FakeIdentity struct {
	Server *httptest.Server

	mu       sync.Mutex
	accounts map[string]*FakeAccount
	tokens   map[string]string
	nextID   int
}

// NewFakeIdentity starts an identity service knowing the given accounts
func NewFakeIdentity(t *testing.T, accounts ...FakeAccount) *FakeIdentity {
	f := &FakeIdentity{accounts: map[string]*FakeAccount{}, tokens: map[string]string{}}
	for i := range accounts {
		account := accounts[i]
		f.accounts[strings.ToLower(account.User.Email)] = &account
	}

	router := upstreamRouter(func() bool { return false })
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "Healthy")
	})

	api := router.Group("/api")
	api.POST("/auth/login", func(c *gin.Context) {
		var req struct {
			EmailOrCPF string `json:"emailOrCpf"`
			Password   string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		account := f.lookup(req.EmailOrCPF)
		if account == nil || account.Password != req.Password {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
			return
		}
		token := fmt.Sprintf("token-%s-%d", account.User.ID, len(f.tokens)+1)
		f.tokens[token] = strings.ToLower(account.User.Email)
		c.JSON(http.StatusOK, clients.LoginResponse{AccessToken: token, RefreshToken: "refresh-" + token, User: account.User})
	})
	api.POST("/auth/register", func(c *gin.Context) {
		var req models.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.lookup(req.Email) != nil {
			c.JSON(http.StatusConflict, gin.H{"message": "Email already registered"})
			return
		}
		role := req.Role
		if role == "" {
			role = models.RoleClient
		}
		f.nextID++
		user := models.User{ID: fmt.Sprintf("user-%d", f.nextID), Name: req.Name, Email: req.Email, CPF: req.CPF, Roles: []string{role}}
		f.accounts[strings.ToLower(req.Email)] = &FakeAccount{Password: req.Password, User: user}
		c.JSON(http.StatusCreated, user)
	})

	authed := api.Group("", f.requireToken)
	authed.GET("/auth/eu", func(c *gin.Context) {
		c.JSON(http.StatusOK, c.MustGet("account").(*FakeAccount).User)
	})
	authed.GET("/auth/token-info", func(c *gin.Context) {
		user := c.MustGet("account").(*FakeAccount).User
		c.JSON(http.StatusOK, clients.TokenInfo{
			IsAuthenticated:    true,
			AuthenticationType: "Bearer",
			Name:               user.Name,
			TotalClaims:        2,
			Claims: []clients.TokenClaim{
				{Type: "sub", Value: user.ID, IsStandardClaim: true},
				{Type: "name", Value: user.Name},
			},
		})
	})
	authed.GET("/auth/admin", func(c *gin.Context) {
		user := c.MustGet("account").(*FakeAccount).User
		if !user.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"message": "Admin role required"})
			return
		}
		c.JSON(http.StatusOK, clients.AdminAccess{Message: "Admin access granted", UserID: user.ID, UserName: user.Name, Roles: strings.Join(user.Roles, ",")})
	})
	authed.GET("/instance/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, clients.InstanceInfo{PodName: "identity-0", ApplicationName: "identity", Version: "1.0.0", Environment: "test"})
	})

	f.Server = newUpstream(t, router)
	return f
}

// URL is the API base URL to configure the identity client with
func (f *FakeIdentity) URL() string {
	return f.Server.URL + "/api"
}

func (f *FakeIdentity) lookup(emailOrCPF string) *FakeAccount {
	if account, ok := f.accounts[strings.ToLower(emailOrCPF)]; ok {
		return account
	}
	for _, account := range f.accounts {
		if account.User.CPF != "" && account.User.CPF == emailOrCPF {
			return account
		}
	}
	return nil
}

func (f *FakeIdentity) requireToken(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	f.mu.Lock()
	email, ok := f.tokens[token]
	var account *FakeAccount
	if ok {
		account = f.accounts[email]
	}
	f.mu.Unlock()
	if account == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	c.Set("account", account)
	c.Next()
}
