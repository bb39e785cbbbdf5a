package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/application/service"
)

// Handler 聚合行情与价差统计的只读 API。
type Handler struct {
	market *service.MarketService
	repo   port.SnapshotRepository
}

func SetupRoutes(r *gin.RouterGroup, market *service.MarketService, repo port.SnapshotRepository) *Handler {
	h := &Handler{market: market, repo: repo}
	r.GET("/market/:symbol", h.GetMarket)
	r.GET("/spread-stats", h.GetSpreadStats)
	return h
}

// GetMarket GET /api/market/:symbol
// 返回全部交易所的行情行，缺数据的交易所字段为 null。
func (h *Handler) GetMarket(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	rows := h.market.MarketView(symbol)

	// 记录空数据的交易所，便于排查
	var emptyFunding, emptyFutures, emptySpot []string
	for _, row := range rows {
		if row.FundingRate == nil {
			emptyFunding = append(emptyFunding, row.Exchange)
		}
		if row.FuturesPrice == nil {
			emptyFutures = append(emptyFutures, row.Exchange)
		}
		if row.SpotPrice == nil {
			emptySpot = append(emptySpot, row.Exchange)
		}
	}
	log.Debug().Str("symbol", symbol).
		Strs("emptyFunding", emptyFunding).
		Strs("emptyFutures", emptyFutures).
		Strs("emptySpot", emptySpot).
		Msg("market view served")

	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"data":   rows,
	})
}

// GetSpreadStats GET /api/spread-stats
// 每个币种返回次数最多的前 5 个交易所对。
func (h *Handler) GetSpreadStats(c *gin.Context) {
	stats, err := h.repo.TopPairStats(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("query pair stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load spread stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pairStats": stats})
}

// Server 包一层 http.Server，做优雅关停。
type Server struct {
	srv *http.Server
}

func NewServer(addr string, market *service.MarketService, repo port.SnapshotRepository) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	SetupRoutes(engine.Group("/api"), market, repo)

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start 阻塞直到服务退出。正常关停返回 nil。
func (s *Server) Start() error {
	log.Info().Str("addr", s.srv.Addr).Msg("http api listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
