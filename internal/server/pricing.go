package server

import (
	"strings"

	orderdomain "github.com/cartforgelabs/cartforge/internal/order/domain"
	"github.com/gin-gonic/gin"
)

type simulatePriceRequest struct {
	SKU         string `json:"sku"`
	Quantity    int    `json:"quantity"`
	Currency    string `json:"currency"`
	CountryCode string `json:"country_code"`
}

// SimulatePrice runs the product pricing pass without touching any order.
func (s *Server) SimulatePrice(c *gin.Context) {
	var req simulatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	sheet, err := s.orderSvc.SimulatePrice(c.Request.Context(), orderdomain.SimulatePriceInput{
		SKU:         strings.TrimSpace(req.SKU),
		Quantity:    req.Quantity,
		Currency:    strings.ToUpper(strings.TrimSpace(req.Currency)),
		CountryCode: strings.ToUpper(strings.TrimSpace(req.CountryCode)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, gin.H{
		"rows":    sheet.Rows,
		"gross":   sheet.Gross(),
		"net":     sheet.Net(),
		"tax_sum": sheet.TaxSum(),
	})
}
