package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"auction-service/internal/models"
	"auction-service/internal/service"
	"auction-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Handler contains HTTP handlers
type Handler struct {
	auctionService *service.AuctionService
	catalogService *service.CatalogService
}

// NewHandler creates a new HTTP handler
func NewHandler(auctionService *service.AuctionService, catalogService *service.CatalogService) *Handler {
	return &Handler{
		auctionService: auctionService,
		catalogService: catalogService,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auctions", h.createAuction)
		v1.GET("/auctions/:id", h.getAuction)
		v1.DELETE("/auctions/:id", h.deleteAuction)
		v1.PUT("/auctions/:id/status", h.updateAuctionStatus)
		v1.PUT("/auctions/:id/catalog", h.assignAuction)
		v1.POST("/auctions/:id/bids", h.submitBid)

		v1.POST("/catalogs", h.createCatalog)
		v1.GET("/catalogs", h.listCatalogs)
		v1.GET("/catalogs/:id", h.getCatalog)
		v1.DELETE("/catalogs/:id", h.deleteCatalog)
		v1.GET("/catalogs/:id/auctions", h.listCatalogAuctions)
		v1.POST("/catalogs/:id/end", h.endCatalog)
		v1.POST("/catalogs/:id/finish", h.handleAuctionFinish)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createAuction handles auction creation
func (h *Handler) createAuction(c *gin.Context) {
	var req service.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	auction, err := h.auctionService.CreateAuction(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "Failed to create auction", err)
		return
	}

	c.JSON(http.StatusCreated, auction)
}

// getAuction handles get auction by ID
func (h *Handler) getAuction(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	auction, err := h.auctionService.GetAuction(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Failed to get auction", err)
		return
	}

	c.JSON(http.StatusOK, auction)
}

// deleteAuction handles auction deletion
func (h *Handler) deleteAuction(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.auctionService.DeleteAuction(c.Request.Context(), id); err != nil {
		respondError(c, "Failed to delete auction", err)
		return
	}

	c.Status(http.StatusNoContent)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// updateAuctionStatus handles explicit status updates
func (h *Handler) updateAuctionStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !validStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid status",
		})
		return
	}

	auction, err := h.auctionService.UpdateAuctionStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, "Failed to update auction status", err)
		return
	}

	c.JSON(http.StatusOK, auction)
}

type assignAuctionRequest struct {
	CatalogID uuid.UUID       `json:"catalog_id" binding:"required"`
	MinPrice  decimal.Decimal `json:"min_price"`
}

// assignAuction handles assigning an auction to a catalog
func (h *Handler) assignAuction(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req assignAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	auction, err := h.auctionService.AssignToCatalog(c.Request.Context(), id, req.CatalogID, req.MinPrice)
	if err != nil {
		respondError(c, "Failed to assign auction", err)
		return
	}

	c.JSON(http.StatusOK, auction)
}

// submitBid handles the synchronous bid submission path
func (h *Handler) submitBid(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req service.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	req.AuctionID = id

	auction, err := h.auctionService.SubmitBid(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "Bid rejected", err)
		return
	}

	c.JSON(http.StatusCreated, auction)
}

// createCatalog handles catalog creation
func (h *Handler) createCatalog(c *gin.Context) {
	var req service.CreateCatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	catalog, err := h.catalogService.CreateCatalog(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "Failed to create catalog", err)
		return
	}

	c.JSON(http.StatusCreated, catalog)
}

// listCatalogs handles listing all catalogs
func (h *Handler) listCatalogs(c *gin.Context) {
	catalogs, err := h.catalogService.ListCatalogs(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to list catalogs", err)
		return
	}

	c.JSON(http.StatusOK, catalogs)
}

// getCatalog handles get catalog by ID
func (h *Handler) getCatalog(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	catalog, err := h.catalogService.GetCatalog(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Failed to get catalog", err)
		return
	}

	c.JSON(http.StatusOK, catalog)
}

// deleteCatalog handles catalog deletion
func (h *Handler) deleteCatalog(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.catalogService.DeleteCatalog(c.Request.Context(), id); err != nil {
		respondError(c, "Failed to delete catalog", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// listCatalogAuctions lists a catalog's auctions, optionally by status
func (h *Handler) listCatalogAuctions(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	status := c.Query("status")
	if status != "" && !validStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	var auctions []models.Auction
	var err error
	if status == "" {
		auctions, err = h.catalogService.ListAuctions(c.Request.Context(), id)
	} else {
		auctions, err = h.auctionService.ListByCatalogStatus(c.Request.Context(), id, status)
	}
	if err != nil {
		respondError(c, "Failed to list auctions", err)
		return
	}

	c.JSON(http.StatusOK, auctions)
}

// endCatalog handles explicit catalog finalization
func (h *Handler) endCatalog(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.catalogService.EndCatalog(c.Request.Context(), id); err != nil {
		respondError(c, "Failed to end catalog", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// handleAuctionFinish handles the deadline-sweep finalization
func (h *Handler) handleAuctionFinish(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.catalogService.HandleAuctionFinish(c.Request.Context(), id); err != nil {
		respondError(c, "Failed to handle auction finish", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return uuid.Nil, false
	}
	return id, true
}

func validStatus(status string) bool {
	switch status {
	case models.AuctionStatusInactive, models.AuctionStatusActive, models.AuctionStatusClosed:
		return true
	}
	return false
}

// respondError maps domain errors onto HTTP statuses; anything else is a 500
func respondError(c *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrAuctionNotFound), errors.Is(err, models.ErrCatalogNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrAuctionNotActive), errors.Is(err, models.ErrBidTooLow), errors.Is(err, models.ErrNoAuctions):
		status = http.StatusConflict
	case errors.Is(err, models.ErrAuctionExpired):
		status = http.StatusGone
	}

	c.JSON(status, gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
