package handler

import (
	"github.com/gin-gonic/gin"
	inventoryapp "github.com/stockledger/backend/internal/application/inventory"
)

// StockHandler handles inbound and outbound recording
type StockHandler struct {
	BaseHandler
	engine *inventoryapp.StockEngine
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(engine *inventoryapp.StockEngine) *StockHandler {
	return &StockHandler{engine: engine}
}

// RecordInbound godoc
// @Summary      Record stock received from a supplier
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.RecordInboundRequest true "Receipt"
// @Success      201 {object} dto.Response{data=inventoryapp.StockEventResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /inbound [post]
func (h *StockHandler) RecordInbound(c *gin.Context) {
	var req inventoryapp.RecordInboundRequest
	if !h.bindJSON(c, &req) {
		return
	}

	event, err := h.engine.RecordInbound(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, event)
}

// RecordOutbound godoc
// @Summary      Record stock shipped to a customer
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.RecordOutboundRequest true "Shipment"
// @Success      201 {object} dto.Response{data=inventoryapp.StockEventResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /outbound [post]
func (h *StockHandler) RecordOutbound(c *gin.Context) {
	var req inventoryapp.RecordOutboundRequest
	if !h.bindJSON(c, &req) {
		return
	}

	event, err := h.engine.RecordOutbound(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, event)
}

// GetBalance godoc
// @Summary      Get the current balance of a product
// @Tags         stock
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} dto.Response{data=inventoryapp.BalanceResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{id}/balance [get]
func (h *StockHandler) GetBalance(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	balance, err := h.engine.GetBalance(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}
