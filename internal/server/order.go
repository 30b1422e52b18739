package server

import (
	"strings"

	orderdomain "github.com/cartforgelabs/cartforge/internal/order/domain"
	"github.com/gin-gonic/gin"
)

type createCartRequest struct {
	Currency    string `json:"currency"`
	CountryCode string `json:"country_code"`
}

func (s *Server) CreateCart(c *gin.Context) {
	var req createCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	order, err := s.orderSvc.CreateCart(c.Request.Context(), orderdomain.CreateCartInput{
		Currency:    strings.ToUpper(strings.TrimSpace(req.Currency)),
		CountryCode: strings.ToUpper(strings.TrimSpace(req.CountryCode)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, order)
}

func (s *Server) GetOrder(c *gin.Context) {
	orderID, err := snowflakeParam(c, "orderId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	order, err := s.orderSvc.Get(c.Request.Context(), orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, order)
}

type addItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (s *Server) AddItem(c *gin.Context) {
	orderID, err := snowflakeParam(c, "orderId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	order, err := s.orderSvc.AddItem(c.Request.Context(), orderID, snowflakeID(req.ProductID), req.Quantity)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, order)
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (s *Server) UpdateItemQuantity(c *gin.Context) {
	orderID, err := snowflakeParam(c, "orderId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	positionID, err := snowflakeParam(c, "positionId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	order, err := s.orderSvc.UpdateItemQuantity(c.Request.Context(), orderID, positionID, req.Quantity)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, order)
}

func (s *Server) RemoveItem(c *gin.Context) {
	orderID, err := snowflakeParam(c, "orderId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	positionID, err := snowflakeParam(c, "positionId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	order, err := s.orderSvc.RemoveItem(c.Request.Context(), orderID, positionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, order)
}

func (s *Server) SetBillingAddress(c *gin.Context) {
	orderID, err := snowflakeParam(c, "orderId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req orderdomain.Address
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.CountryCode = strings.ToUpper(strings.TrimSpace(req.CountryCode))

	order, err := s.orderSvc.SetBillingAddress(c.Request.Context(), orderID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, order)
}

func (s *Server) SetContact(c *gin.Context) {
	orderID, err := snowflakeParam(c, "orderId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req orderdomain.Contact
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	order, err := s.orderSvc.SetContact(c.Request.Context(), orderID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, order)
}

type setProviderRequest struct {
	ProviderID int64 `json:"provider_id"`
}

func (s *Server) SetDeliveryProvider(c *gin.Context) {
	orderID, err := snowflakeParam(c, "orderId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req setProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	order, err := s.orderSvc.SetDeliveryProvider(c.Request.Context(), orderID, snowflakeID(req.ProviderID))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, order)
}

func (s *Server) SetPaymentProvider(c *gin.Context) {
	orderID, err := snowflakeParam(c, "orderId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req setProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	order, err := s.orderSvc.SetPaymentProvider(c.Request.Context(), orderID, snowflakeID(req.ProviderID))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, order)
}

type applyDiscountRequest struct {
	Code string `json:"code"`
}

func (s *Server) ApplyDiscountCode(c *gin.Context) {
	orderID, err := snowflakeParam(c, "orderId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req applyDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	order, err := s.orderSvc.ApplyDiscountCode(c.Request.Context(), orderID, strings.TrimSpace(req.Code))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, order)
}

func (s *Server) RemoveDiscount(c *gin.Context) {
	orderID, err := snowflakeParam(c, "orderId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	discountID, err := snowflakeParam(c, "discountId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	order, err := s.orderSvc.RemoveDiscount(c.Request.Context(), orderID, discountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, order)
}

func (s *Server) Recalculate(c *gin.Context) {
	orderID, err := snowflakeParam(c, "orderId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	order, err := s.orderSvc.UpdateCalculation(c.Request.Context(), orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, order)
}

func (s *Server) Checkout(c *gin.Context) {
	s.transition(c, s.orderSvc.Checkout)
}

func (s *Server) Confirm(c *gin.Context) {
	s.transition(c, s.orderSvc.Confirm)
}

func (s *Server) Reject(c *gin.Context) {
	s.transition(c, s.orderSvc.Reject)
}

func (s *Server) MarkDelivered(c *gin.Context) {
	s.transition(c, s.orderSvc.MarkDelivered)
}

func (s *Server) MarkReturned(c *gin.Context) {
	s.transition(c, s.orderSvc.MarkReturned)
}

func (s *Server) MarkPaid(c *gin.Context) {
	s.transition(c, s.orderSvc.MarkPaid)
}

func (s *Server) MarkRefunded(c *gin.Context) {
	s.transition(c, s.orderSvc.MarkRefunded)
}
