package server

import (
	"strings"
	"time"

	productdomain "github.com/cartforgelabs/cartforge/internal/product/domain"
	providersdomain "github.com/cartforgelabs/cartforge/internal/providers/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type createProductRequest struct {
	SKU         string   `json:"sku"`
	Title       string   `json:"title"`
	UnitAmount  int64    `json:"unit_amount"`
	Currency    string   `json:"currency"`
	TaxCategory string   `json:"tax_category"`
	Tags        []string `json:"tags"`
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.SKU) == "" || strings.TrimSpace(req.Title) == "" || req.UnitAmount < 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	now := time.Now().UTC()
	product := &productdomain.Product{
		SKU:         strings.TrimSpace(req.SKU),
		Title:       strings.TrimSpace(req.Title),
		UnitAmount:  req.UnitAmount,
		Currency:    strings.ToUpper(strings.TrimSpace(req.Currency)),
		TaxCategory: strings.TrimSpace(req.TaxCategory),
		Tags:        datatypes.NewJSONSlice(req.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.products.Create(c.Request.Context(), product); err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, product)
}

func (s *Server) ListProducts(c *gin.Context) {
	products, err := s.products.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, products)
}

type createProviderRequest struct {
	Type          string            `json:"type"`
	Adapter       string            `json:"adapter"`
	Configuration map[string]string `json:"configuration"`
}

func (s *Server) CreateProvider(c *gin.Context) {
	var req createProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	providerType := providersdomain.ProviderType(strings.ToUpper(strings.TrimSpace(req.Type)))
	if providerType != providersdomain.TypeDelivery && providerType != providersdomain.TypePayment {
		AbortWithError(c, invalidRequestError())
		return
	}

	entries := make([]providersdomain.ConfigurationEntry, 0, len(req.Configuration))
	for key, value := range req.Configuration {
		entries = append(entries, providersdomain.ConfigurationEntry{Key: key, Value: value})
	}

	provider := &providersdomain.Provider{
		Type:          providerType,
		Adapter:       strings.TrimSpace(req.Adapter),
		Configuration: datatypes.NewJSONSlice(entries),
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.providers.Create(c.Request.Context(), provider); err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, provider)
}

func (s *Server) ListProviders(c *gin.Context) {
	providerType := providersdomain.ProviderType(strings.ToUpper(strings.TrimSpace(c.Query("type"))))
	if providerType != providersdomain.TypeDelivery && providerType != providersdomain.TypePayment {
		AbortWithError(c, invalidRequestError())
		return
	}

	providers, err := s.providers.ListByType(c.Request.Context(), providerType)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, providers)
}
