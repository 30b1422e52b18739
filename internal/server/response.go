package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	discountdomain "github.com/cartforgelabs/cartforge/internal/discount/domain"
	orderdomain "github.com/cartforgelabs/cartforge/internal/order/domain"
	"github.com/cartforgelabs/cartforge/internal/pricing"
	productdomain "github.com/cartforgelabs/cartforge/internal/product/domain"
	providersdomain "github.com/cartforgelabs/cartforge/internal/providers/domain"
	"github.com/gin-gonic/gin"
)

var errInvalidRequest = errors.New("invalid_request")

func respondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// AbortWithError maps domain sentinels onto HTTP status codes and renders
// the error message as a stable machine-readable code.
func AbortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, orderdomain.ErrInvalidQuantity),
		errors.Is(err, orderdomain.ErrInvalidCurrency),
		errors.Is(err, orderdomain.ErrMissingBillingAddress),
		errors.Is(err, orderdomain.ErrMissingContact),
		errors.Is(err, orderdomain.ErrMissingDeliveryProvider),
		errors.Is(err, orderdomain.ErrMissingPaymentProvider),
		errors.Is(err, pricing.ErrIncompleteConfiguration):
		status = http.StatusBadRequest
	case errors.Is(err, orderdomain.ErrOrderNotFound),
		errors.Is(err, orderdomain.ErrPositionNotFound),
		errors.Is(err, orderdomain.ErrDiscountNotFound),
		errors.Is(err, productdomain.ErrProductNotFound),
		errors.Is(err, providersdomain.ErrProviderNotFound),
		errors.Is(err, pricing.ErrAdapterNotFound):
		status = http.StatusNotFound
	case errors.Is(err, orderdomain.ErrWrongStatus),
		errors.Is(err, orderdomain.ErrOrderImmutable):
		status = http.StatusConflict
	case errors.Is(err, discountdomain.ErrDiscountInvalid):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, discountdomain.ErrDiscountExhausted):
		status = http.StatusConflict
	}

	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func invalidRequestError() error {
	return errInvalidRequest
}

func snowflakeParam(c *gin.Context, name string) (snowflake.ID, error) {
	raw := c.Param(name)
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, invalidRequestError()
	}
	return snowflake.ID(parsed), nil
}
