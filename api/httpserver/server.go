// Package httpserver adapts the matching engine to the REST surface:
// POST /order, DELETE /order/:id, GET /order/:id, GET /orderbook,
// GET /health.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"matchbook/domain/orderbook"
	"matchbook/engine"
	"matchbook/infra/store"
)

type Server struct {
	eng *engine.Engine
	log *slog.Logger
	srv *http.Server
}

func New(addr string, eng *engine.Engine, log *slog.Logger) *Server {
	s := &Server{eng: eng, log: log}
	s.srv = &http.Server{Addr: addr, Handler: s.Router()}
	return s
}

// Router builds the gin handler; split out so tests can drive it directly.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/order", s.placeOrder)
	r.DELETE("/order/:id", s.cancelOrder)
	r.GET("/order/:id", s.getOrder)
	r.GET("/orderbook", s.getOrderBook)
	r.GET("/health", s.health)
	return r
}

func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// -------------------- handlers --------------------

type placeOrderRequest struct {
	Owner    string `json:"owner" binding:"required"`
	Side     string `json:"side" binding:"required"`
	Price    string `json:"price" binding:"required"`
	Quantity string `json:"quantity" binding:"required"`
}

func (s *Server) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order payload"})
		return
	}
	side, err := orderbook.ParseSide(req.Side)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be buy or sell"})
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be a decimal number"})
		return
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be a decimal number"})
		return
	}

	o, err := s.eng.Submit(c.Request.Context(), req.Owner, side, price, qty)
	if errors.Is(err, orderbook.ErrSelfTrade) {
		// the remainder was cancelled; return the final order state
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "order": toOrderDTO(o)})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderDTO(o))
}

func (s *Server) cancelOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	o, err := s.eng.Cancel(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderDTO(o))
}

func (s *Server) getOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	o, err := s.eng.GetOrder(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderDTO(o))
}

func (s *Server) getOrderBook(c *gin.Context) {
	snap := s.eng.ListBook()
	bids := make([]orderDTO, 0, len(snap.Bids))
	for i := range snap.Bids {
		bids = append(bids, toOrderDTO(&snap.Bids[i]))
	}
	asks := make([]orderDTO, 0, len(snap.Asks))
	for i := range snap.Asks {
		asks = append(asks, toOrderDTO(&snap.Asks[i]))
	}
	c.JSON(http.StatusOK, gin.H{"bids": bids, "asks": asks})
}

func (s *Server) health(c *gin.Context) {
	if !s.eng.Running() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "stopped"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "instrument": s.eng.Symbol()})
}

func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orderbook.ErrInvalidOrder):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, orderbook.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, orderbook.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, engine.ErrStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// -------------------- DTOs --------------------

type orderDTO struct {
	ID        uint64          `json:"id"`
	Owner     string          `json:"owner"`
	Side      string          `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Original  decimal.Decimal `json:"original_quantity"`
	Remaining decimal.Decimal `json:"remaining_quantity"`
	Status    string          `json:"status"`
}

func toOrderDTO(o *orderbook.Order) orderDTO {
	return orderDTO{
		ID:        o.ID,
		Owner:     o.Owner,
		Side:      o.Side.String(),
		Price:     o.Price,
		Original:  o.Original,
		Remaining: o.Remaining,
		Status:    o.Status.String(),
	}
}
