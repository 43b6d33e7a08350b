package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	reportapp "github.com/stockledger/backend/internal/application/report"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/interfaces/http/dto"
	"github.com/stockledger/backend/internal/interfaces/http/middleware"
)

const dateOnlyLayout = "2006-01-02"

// HistoryQuery holds the history list query parameters
type HistoryQuery struct {
	ProductID string `form:"product_id" binding:"omitempty,uuid"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1"`
}

// ReportHandler handles the read-only ledger views
type ReportHandler struct {
	BaseHandler
	reportService *reportapp.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService *reportapp.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// ListInbound godoc
// @Summary      List inbound records
// @Tags         reports
// @Produce      json
// @Param        product_id query string false "Product ID"
// @Param        start_date query string false "RFC3339 or YYYY-MM-DD, inclusive"
// @Param        end_date   query string false "RFC3339 (exclusive) or YYYY-MM-DD (whole day)"
// @Param        page       query int false "Page number"
// @Param        page_size  query int false "Page size"
// @Success      200 {object} dto.Response{data=[]reportapp.HistoryEntry}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /inbound [get]
func (h *ReportHandler) ListInbound(c *gin.Context) {
	h.history(c, inventory.EventKindInbound)
}

// ListOutbound godoc
// @Summary      List outbound records
// @Tags         reports
// @Produce      json
// @Param        product_id query string false "Product ID"
// @Param        start_date query string false "RFC3339 or YYYY-MM-DD, inclusive"
// @Param        end_date   query string false "RFC3339 (exclusive) or YYYY-MM-DD (whole day)"
// @Param        page       query int false "Page number"
// @Param        page_size  query int false "Page size"
// @Success      200 {object} dto.Response{data=[]reportapp.HistoryEntry}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /outbound [get]
func (h *ReportHandler) ListOutbound(c *gin.Context) {
	h.history(c, inventory.EventKindOutbound)
}

// Snapshot godoc
// @Summary      Current stock of every product
// @Tags         reports
// @Produce      json
// @Success      200 {object} dto.Response{data=[]reportapp.SnapshotEntry}
// @Router       /stock [get]
func (h *ReportHandler) Snapshot(c *gin.Context) {
	entries, err := h.reportService.Snapshot(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// Audit godoc
// @Summary      Recompute a product balance from the ledger
// @Tags         reports
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} dto.Response{data=reportapp.BalanceAudit}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{id}/audit [get]
func (h *ReportHandler) Audit(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	audit, err := h.reportService.VerifyBalance(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, audit)
}

func (h *ReportHandler) history(c *gin.Context, kind inventory.EventKind) {
	var query HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		if details, ok := middleware.ValidationDetails(err); ok {
			h.ValidationError(c, details)
			return
		}
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	filter := reportapp.HistoryFilter{Page: query.Page, PageSize: query.PageSize}
	if query.ProductID != "" {
		id, err := uuid.Parse(query.ProductID)
		if err != nil {
			h.ValidationError(c, []dto.ValidationDetail{{Field: "product_id", Message: "Invalid UUID format"}})
			return
		}
		filter.ProductID = &id
	}

	start, ok := parseDateParam(query.StartDate, false)
	if !ok {
		h.ValidationError(c, []dto.ValidationDetail{{Field: "start_date", Message: "Must be RFC3339 or YYYY-MM-DD"}})
		return
	}
	end, ok := parseDateParam(query.EndDate, true)
	if !ok {
		h.ValidationError(c, []dto.ValidationDetail{{Field: "end_date", Message: "Must be RFC3339 or YYYY-MM-DD"}})
		return
	}
	filter.StartDate, filter.EndDate = start, end

	page, err := h.reportService.History(c.Request.Context(), kind, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Entries, page.Total, page.Page, page.PageSize)
}

// parseDateParam accepts RFC3339 timestamps or calendar dates (UTC).
// A calendar date used as an exclusive upper bound is moved to the next midnight
// so the whole day is included.
func parseDateParam(value string, upperBound bool) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t, true
	}
	t, err := time.ParseInLocation(dateOnlyLayout, value, time.UTC)
	if err != nil {
		return nil, false
	}
	if upperBound {
		t = t.AddDate(0, 0, 1)
	}
	return &t, true
}
