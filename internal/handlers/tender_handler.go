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

// TenderHandler - структура для обработки HTTP-запросов.
type TenderHandler struct {
	Service *services.TenderService
	Logger  *zap.Logger
	Timeout time.Duration
}

// NewTenderHandler создаёт новый экземпляр TenderHandler.
func NewTenderHandler(service *services.TenderService, logger *zap.Logger, timeout time.Duration) *TenderHandler {
	return &TenderHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// GetTenders обрабатывает запросы для получения списка тендеров.
func (h *TenderHandler) GetTenders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limit, offset, err := utils.ParseLimitOffset(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	tenders, err := h.Service.FetchTenders(ctx, limit, offset, r.URL.Query()["status"])
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to fetch tenders")
		return
	}

	utils.SendJSON(w, http.StatusOK, tenders, h.Logger)
}

// CreateTender обрабатывает запросы для создания тендера.
func (h *TenderHandler) CreateTender(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var tenderReq models.TenderRequest
	if err := json.NewDecoder(r.Body).Decode(&tenderReq); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tender, err := h.Service.CreateTender(ctx, tenderReq)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to create tender")
		return
	}

	utils.SendJSON(w, http.StatusOK, tender, h.Logger)
}

// GetCompanyTenders обрабатывает запросы для получения тендеров компании.
func (h *TenderHandler) GetCompanyTenders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limit, offset, err := utils.ParseLimitOffset(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	tenders, err := h.Service.GetCompanyTenders(ctx, r.URL.Query().Get("companyId"), limit, offset)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to fetch company tenders")
		return
	}

	utils.SendJSON(w, http.StatusOK, tenders, h.Logger)
}

// GetTender обрабатывает запросы для получения тендера.
func (h *TenderHandler) GetTender(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tender, err := h.Service.GetTender(ctx, r.PathValue("tenderId"))
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to get tender")
		return
	}

	utils.SendJSON(w, http.StatusOK, tender, h.Logger)
}

// GetTenderStatus обрабатывает запросы для получения статуса тендера.
func (h *TenderHandler) GetTenderStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	status, err := h.Service.GetTenderStatus(ctx, r.PathValue("tenderId"))
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to get tender status")
		return
	}

	utils.SendJSON(w, http.StatusOK, status, h.Logger)
}

// EditTender обрабатывает запросы для редактирования тендера.
func (h *TenderHandler) EditTender(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var tenderReq models.TenderRequest
	if err := json.NewDecoder(r.Body).Decode(&tenderReq); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tender, err := h.Service.UpdateTender(ctx, r.PathValue("tenderId"), tenderReq)
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to update tender")
		return
	}

	utils.SendJSON(w, http.StatusOK, tender, h.Logger)
}

// CloseTender закрывает прием предложений и переводит тендер в оценку.
func (h *TenderHandler) CloseTender(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.Service.CloseTenderForEvaluation, "failed to close tender")
}

// AwardTender обрабатывает присуждение тендера.
func (h *TenderHandler) AwardTender(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.Service.AwardTender, "failed to award tender")
}

// FinalizeTender обрабатывает завершение тендера.
func (h *TenderHandler) FinalizeTender(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.Service.FinalizeTender, "failed to finalize tender")
}

func (h *TenderHandler) changeStatus(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, tenderId string) (*models.Tender, error), fallback string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tender, err := apply(ctx, r.PathValue("tenderId"))
	if err != nil {
		utils.SendServiceError(w, h.Logger, err, fallback)
		return
	}

	utils.SendJSON(w, http.StatusOK, tender, h.Logger)
}

// DeleteTender обрабатывает мягкое удаление тендера.
func (h *TenderHandler) DeleteTender(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	if err := h.Service.DeleteTender(ctx, r.PathValue("tenderId")); err != nil {
		utils.SendServiceError(w, h.Logger, err, "failed to delete tender")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
