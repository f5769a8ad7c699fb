package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/senyabanana/licitaciones-service/internal/criteria"
	"github.com/senyabanana/licitaciones-service/internal/models"
	"github.com/senyabanana/licitaciones-service/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RedistributeRequest - черновик критериев и изменение, которое нужно применить.
type RedistributeRequest struct {
	Criteria []models.CriterionRequest `json:"criteria"`
	Add      *models.CriterionRequest  `json:"add,omitempty"`
	Remove   *int                      `json:"remove,omitempty"`
}

// RedistributeResponse - черновик с перераспределенными весами.
type RedistributeResponse struct {
	Criteria []models.CriterionRequest `json:"criteria"`
	Sum      decimal.Decimal           `json:"sum"`
	Valid    bool                      `json:"valid"`
}

// CriteriaHandler пересчитывает веса черновика критериев при редактировании.
type CriteriaHandler struct {
	Logger *zap.Logger
}

// NewCriteriaHandler создает новый экземпляр CriteriaHandler.
func NewCriteriaHandler(logger *zap.Logger) *CriteriaHandler {
	return &CriteriaHandler{Logger: logger}
}

// Redistribute обрабатывает запросы на перераспределение весов.
func (h *CriteriaHandler) Redistribute(w http.ResponseWriter, r *http.Request) {
	var req RedistributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var draft []models.CriterionRequest
	switch {
	case req.Add != nil && req.Remove != nil:
		utils.SendErrorResponse(w, http.StatusBadRequest, "add and remove cannot be combined")
		return
	case req.Add != nil:
		draft = criteria.Add(req.Criteria, *req.Add)
	case req.Remove != nil:
		draft = criteria.Remove(req.Criteria, *req.Remove)
	default:
		draft = criteria.Rebalance(req.Criteria)
	}

	weights := criteria.RequestWeights(draft)
	utils.SendJSON(w, http.StatusOK, RedistributeResponse{
		Criteria: draft,
		Sum:      criteria.Sum(weights),
		Valid:    criteria.Validate(weights) == nil,
	}, h.Logger)
}
