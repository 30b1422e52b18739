package server

import (
	"context"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/cartforgelabs/cartforge/internal/order/domain"
	"github.com/gin-gonic/gin"
)

type transitionFunc func(ctx context.Context, orderID snowflake.ID) (*orderdomain.Order, error)

func (s *Server) transition(c *gin.Context, fn transitionFunc) {
	orderID, err := snowflakeParam(c, "orderId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	order, err := fn(c.Request.Context(), orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, order)
}

func snowflakeID(raw int64) snowflake.ID {
	return snowflake.ID(raw)
}
