package integration

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fasttech-foods/backoffice-api/clients"
	"github.com/fasttech-foods/backoffice-api/controllers"
	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/fasttech-foods/backoffice-api/services"
	"github.com/fasttech-foods/backoffice-api/tests/testutil"
	"github.com/fasttech-foods/backoffice-api/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// FileUploadIntegrationTestSuite stores product images in a local directory
// and serves them back through the uploads route
type FileUploadIntegrationTestSuite struct {
	suite.Suite
	uploadDir string
	catalog   *testutil.FakeCatalog
	router    *gin.Engine
}

// SetupSuite runs once before all tests
func (suite *FileUploadIntegrationTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	testutil.MustSetTestEnvironment(suite.T())
}

// SetupTest gives each test an empty upload directory and a fresh catalog
func (suite *FileUploadIntegrationTestSuite) SetupTest() {
	suite.uploadDir = suite.T().TempDir()
	suite.catalog = testutil.NewFakeCatalog(suite.T(),
		[]models.Category{{ID: "burgers", Name: "Burgers", IsActive: true}},
		[]models.Product{{ID: "p1", Name: "Classic Burger", Price: 18.90, Availability: true, CategoryID: "burgers"}},
	)

	images := services.NewLocalImageService(suite.uploadDir)
	catalog := services.NewCatalogService(
		clients.NewCatalogClient(suite.catalog.URL(), 5*time.Second),
		images,
		testutil.Logger(),
	)
	catalogCtl := controllers.NewCatalogController(catalog, testutil.Logger())
	uploads := controllers.NewUploadController(images.Dir())

	suite.router = gin.New()
	v1 := suite.router.Group("/api/v1")
	v1.GET("/uploads/:filename", uploads.GetUploadedImage)

	manager := v1.Group("/catalog", func(c *gin.Context) {
		testutil.SetMockSession(c, "u-ana", models.RoleManager)
		c.Next()
	})
	manager.POST("/products", catalogCtl.CreateProduct)
	manager.PUT("/products/:id/image", catalogCtl.UploadProductImage)
}

func (suite *FileUploadIntegrationTestSuite) upload(method, path string, fields map[string]string, filename string, content []byte) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		suite.Require().NoError(writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("image", filename)
		suite.Require().NoError(err)
		_, err = part.Write(content)
		suite.Require().NoError(err)
	}
	suite.Require().NoError(writer.Close())

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *FileUploadIntegrationTestSuite) product(w *httptest.ResponseRecorder) models.Product {
	var response struct {
		Success bool           `json:"success"`
		Data    models.Product `json:"data"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	suite.Require().True(response.Success)
	return response.Data
}

func (suite *FileUploadIntegrationTestSuite) errorCode(w *httptest.ResponseRecorder) string {
	var response struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response.Error.Code
}

func (suite *FileUploadIntegrationTestSuite) storedFiles() []string {
	entries, err := os.ReadDir(suite.uploadDir)
	suite.Require().NoError(err)
	names := []string{}
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

// TestUploadProductImage_WithValidPNGFile tests storing, linking and serving an image
func (suite *FileUploadIntegrationTestSuite) TestUploadProductImage_WithValidPNGFile() {
	content := append(append([]byte{}, pngHeader...), make([]byte, 64)...)

	w := suite.upload(http.MethodPut, "/api/v1/catalog/products/p1/image", nil, "burger.png", content)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	product := suite.product(w)
	suite.True(strings.HasPrefix(product.ImageURL, "/api/v1/uploads/"), product.ImageURL)
	suite.Equal("Classic Burger", product.Name, "other fields are kept")

	files := suite.storedFiles()
	suite.Require().Len(files, 1)
	suite.Equal(".png", filepath.Ext(files[0]))
	suite.Equal(utils.GetImageURL(files[0]), product.ImageURL)

	stored, ok := suite.catalog.Product("p1")
	suite.Require().True(ok)
	suite.Equal(product.ImageURL, stored.ImageURL)

	req := httptest.NewRequest(http.MethodGet, product.ImageURL, nil)
	served := httptest.NewRecorder()
	suite.router.ServeHTTP(served, req)
	suite.Equal(http.StatusOK, served.Code)
	suite.Equal("image/png", served.Header().Get("Content-Type"))
	suite.Equal(content, served.Body.Bytes())
}

// TestUploadProductImage_NamedAfterContent tests that a file without an extension is still served
func (suite *FileUploadIntegrationTestSuite) TestUploadProductImage_NamedAfterContent() {
	content := append(append([]byte{}, pngHeader...), make([]byte, 64)...)

	w := suite.upload(http.MethodPut, "/api/v1/catalog/products/p1/image", nil, "photo", content)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	product := suite.product(w)
	suite.Equal(".png", filepath.Ext(product.ImageURL))

	req := httptest.NewRequest(http.MethodGet, product.ImageURL, nil)
	served := httptest.NewRecorder()
	suite.router.ServeHTTP(served, req)
	suite.Equal(http.StatusOK, served.Code, served.Body.String())
	suite.Equal("image/png", served.Header().Get("Content-Type"))
}

// TestUploadProductImage_Rejected tests the upload guards; nothing reaches the disk
func (suite *FileUploadIntegrationTestSuite) TestUploadProductImage_Rejected() {
	testCases := []struct {
		name           string
		path           string
		filename       string
		content        []byte
		expectedStatus int
		expectedCode   string
	}{
		{"without file", "/api/v1/catalog/products/p1/image", "", nil, http.StatusBadRequest, "MISSING_FILE"},
		{"text disguised as png", "/api/v1/catalog/products/p1/image", "notes.png", []byte("just some text"), http.StatusBadRequest, "INVALID_FILE_FORMAT"},
		{"pdf", "/api/v1/catalog/products/p1/image", "menu.pdf", []byte("%PDF-1.4\n"), http.StatusBadRequest, "INVALID_FILE_FORMAT"},
		{"too large", "/api/v1/catalog/products/p1/image", "huge.png", append(append([]byte{}, pngHeader...), make([]byte, utils.MaxFileSize)...), http.StatusBadRequest, "FILE_TOO_LARGE"},
		{"unknown product", "/api/v1/catalog/products/p404/image", "burger.png", pngHeader, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			w := suite.upload(http.MethodPut, tc.path, nil, tc.filename, tc.content)
			suite.Equal(tc.expectedStatus, w.Code, w.Body.String())
			suite.Equal(tc.expectedCode, suite.errorCode(w))
			suite.Empty(suite.storedFiles())
		})
	}
}

// TestCreateProduct_ForwardsImageUpstream tests that new products hand the image to the catalog service
func (suite *FileUploadIntegrationTestSuite) TestCreateProduct_ForwardsImageUpstream() {
	fields := map[string]string{"name": "Onion Rings", "price": "12.5", "categoryId": "burgers", "availability": "true"}

	w := suite.upload(http.MethodPost, "/api/v1/catalog/products", fields, "rings.png", pngHeader)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	product := suite.product(w)
	suite.Equal("https://cdn.fasttech.test/rings.png", product.ImageURL)
	suite.Empty(suite.storedFiles(), "the catalog service owns images of new products")

	w = suite.upload(http.MethodPost, "/api/v1/catalog/products", fields, "", nil)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	suite.Empty(suite.product(w).ImageURL)
}

// TestServeUploadedFile_Guards tests the uploads route on its own
func (suite *FileUploadIntegrationTestSuite) TestServeUploadedFile_Guards() {
	suite.Require().NoError(os.WriteFile(filepath.Join(suite.uploadDir, "notes.txt"), []byte("x"), 0o600))

	testCases := []struct {
		path           string
		expectedStatus int
	}{
		{"/api/v1/uploads/missing.png", http.StatusNotFound},
		{"/api/v1/uploads/notes.txt", http.StatusBadRequest},
		{"/api/v1/uploads/..secret.png", http.StatusBadRequest},
	}

	for _, tc := range testCases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		w := httptest.NewRecorder()
		suite.router.ServeHTTP(w, req)
		suite.Equal(tc.expectedStatus, w.Code, tc.path)
	}
}

func TestFileUploadIntegrationSuite(t *testing.T) {
	suite.Run(t, new(FileUploadIntegrationTestSuite))
}
