package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cartforgelabs/cartforge/internal/config"
	orderdomain "github.com/cartforgelabs/cartforge/internal/order/domain"
	productdomain "github.com/cartforgelabs/cartforge/internal/product/domain"
	providersdomain "github.com/cartforgelabs/cartforge/internal/providers/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(Start),
)

type Server struct {
	log          *zap.Logger
	orderSvc     orderdomain.Service
	products     productdomain.Repository
	providers    providersdomain.Repository
	promRegistry *prometheus.Registry
}

type Param struct {
	fx.In

	Log          *zap.Logger
	OrderSvc     orderdomain.Service
	Products     productdomain.Repository
	Providers    providersdomain.Repository
	PromRegistry *prometheus.Registry `optional:"true"`
}

func NewServer(p Param) *Server {
	return &Server{
		log:          p.Log.Named("server"),
		orderSvc:     p.OrderSvc,
		products:     p.Products,
		providers:    p.Providers,
		promRegistry: p.PromRegistry,
	}
}

func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.promRegistry != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{})))
	}

	v1 := engine.Group("/api/v1")

	v1.GET("/products", s.ListProducts)
	v1.POST("/products", s.CreateProduct)
	v1.GET("/providers", s.ListProviders)
	v1.POST("/providers", s.CreateProvider)

	v1.POST("/pricing/simulate", s.SimulatePrice)

	orders := v1.Group("/orders")
	orders.POST("", s.CreateCart)
	orders.GET("/:orderId", s.GetOrder)
	orders.POST("/:orderId/items", s.AddItem)
	orders.PATCH("/:orderId/items/:positionId", s.UpdateItemQuantity)
	orders.DELETE("/:orderId/items/:positionId", s.RemoveItem)
	orders.PUT("/:orderId/billing-address", s.SetBillingAddress)
	orders.PUT("/:orderId/contact", s.SetContact)
	orders.PUT("/:orderId/delivery-provider", s.SetDeliveryProvider)
	orders.PUT("/:orderId/payment-provider", s.SetPaymentProvider)
	orders.POST("/:orderId/discounts", s.ApplyDiscountCode)
	orders.DELETE("/:orderId/discounts/:discountId", s.RemoveDiscount)
	orders.POST("/:orderId/recalculate", s.Recalculate)
	orders.POST("/:orderId/checkout", s.Checkout)
	orders.POST("/:orderId/confirm", s.Confirm)
	orders.POST("/:orderId/reject", s.Reject)
	orders.POST("/:orderId/delivery/delivered", s.MarkDelivered)
	orders.POST("/:orderId/delivery/returned", s.MarkReturned)
	orders.POST("/:orderId/payment/paid", s.MarkPaid)
	orders.POST("/:orderId/payment/refunded", s.MarkRefunded)

	return engine
}

func Start(lc fx.Lifecycle, s *Server, cfg config.Config) {
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
