package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/senyabanana/licitaciones-service/internal/models"
	"github.com/senyabanana/licitaciones-service/internal/services"
	"github.com/senyabanana/licitaciones-service/internal/utils"

	"go.uber.org/zap"
)

// BidHandler - структура для обработки HTTP-запросов.
type BidHandler struct {
	Service *services.BidService
	Logger  *zap.Logger
	Timeout time.Duration
}

// NewBidHandler создает новый экземпляр BidHandler.
func NewBidHandler(service *services.BidService, logger *zap.Logger, timeout time.Duration) *BidHandler {
	return &BidHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// CreateBid обрабатывает запросы для подачи предложения.
func (h *BidHandler) CreateBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var bidReq models.BidRequest
	if err := json.NewDecoder(r.Body).Decode(&bidReq); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bid, err := h.Service.SubmitBid(ctx, bidReq)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to create bid")
		return
	}

	utils.SendJSON(w, http.StatusOK, bid, h.Logger)
}

// GetSupplierBids обрабатывает запросы для получения предложений поставщика.
func (h *BidHandler) GetSupplierBids(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limit, offset, err := utils.ParseLimitOffset(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	bids, err := h.Service.GetSupplierBids(ctx, r.URL.Query().Get("supplierId"), limit, offset)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to retrieve bids")
		return
	}

	utils.SendJSON(w, http.StatusOK, bids, h.Logger)
}

// GetTenderBids обрабатывает запросы для получения списка предложений по тендеру.
func (h *BidHandler) GetTenderBids(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limit, offset, err := utils.ParseLimitOffset(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	bids, err := h.Service.GetTenderBids(ctx, r.PathValue("tenderId"), limit, offset)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to retrieve bids for tender")
		return
	}

	utils.SendJSON(w, http.StatusOK, bids, h.Logger)
}

// GetBid обрабатывает запросы для получения предложения.
func (h *BidHandler) GetBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bid, err := h.Service.GetBid(ctx, r.PathValue("bidId"))
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to get bid")
		return
	}

	utils.SendJSON(w, http.StatusOK, bid, h.Logger)
}

// EditBid обрабатывает запросы для редактирования предложения.
func (h *BidHandler) EditBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var bidReq models.BidUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&bidReq); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bid, err := h.Service.UpdateBid(ctx, r.PathValue("bidId"), bidReq)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to update bid")
		return
	}

	utils.SendJSON(w, http.StatusOK, bid, h.Logger)
}

// UpdateBidStatus обрабатывает запросы для изменения статуса предложения.
func (h *BidHandler) UpdateBidStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	status := r.URL.Query().Get("status")
	if status == "" {
		utils.SendErrorResponse(w, http.StatusBadRequest, "missing required query parameter: status")
		return
	}

	bid, err := h.Service.UpdateBidStatus(ctx, r.PathValue("bidId"), status)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to update bid status")
		return
	}

	utils.SendJSON(w, http.StatusOK, bid, h.Logger)
}

// ScoreBid обрабатывает оценку предложения по критериям.
func (h *BidHandler) ScoreBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var scoreReq models.BidScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&scoreReq); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bid, err := h.Service.ScoreBid(ctx, r.PathValue("bidId"), scoreReq)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to score bid")
		return
	}

	utils.SendJSON(w, http.StatusOK, bid, h.Logger)
}

// DeleteBid обрабатывает отзыв предложения.
func (h *BidHandler) DeleteBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	if err := h.Service.DeleteBid(ctx, r.PathValue("bidId")); err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to delete bid")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
