package v1

import (
	"net/http"

	"github.com/goccy/go-json"

	"threadora-backend/internal/delivery/http/middleware"
	"threadora-backend/internal/domain"
	"threadora-backend/internal/usecase"
	"threadora-backend/pkg/logger"
	"threadora-backend/pkg/utils"
)

type AdminReturnHandler struct {
	returnUC *usecase.ReturnUsecase
}

func NewAdminReturnHandler(uc *usecase.ReturnUsecase) *AdminReturnHandler {
	return &AdminReturnHandler{returnUC: uc}
}

func (h *AdminReturnHandler) ListReturns(w http.ResponseWriter, r *http.Request) {
	filter := domain.ReturnFilter{
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 20),
		Status: r.URL.Query().Get("status"),
		UserID: r.URL.Query().Get("userId"),
	}

	returns, total, err := h.returnUC.GetAllReturns(r.Context(), filter)
	if err != nil {
		logger.WithContext(r.Context()).Error().Err(err).Msg("ListReturns failed")
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{
		Success: true,
		Data:    returns,
		Meta:    domain.NewPagination(filter.Page, filter.Limit, total),
	})
}

func (h *AdminReturnHandler) GetReturn(w http.ResponseWriter, r *http.Request) {
	returnID := r.PathValue("id")
	if returnID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Return ID required")
		return
	}

	ret, err := h.returnUC.GetReturn(r.Context(), returnID)
	if err != nil {
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, ret)
}

func (h *AdminReturnHandler) GetReturnEvents(w http.ResponseWriter, r *http.Request) {
	returnID := r.PathValue("id")
	if returnID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Return ID required")
		return
	}

	events, err := h.returnUC.GetReturnEvents(r.Context(), returnID)
	if err != nil {
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

type decideReturnReq struct {
	Approve bool   `json:"approve"`
	Comment string `json:"comment"`
}

func (h *AdminReturnHandler) DecideReturn(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	returnID := r.PathValue("id")
	if returnID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Return ID required")
		return
	}
	var req decideReturnReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	ret, err := h.returnUC.DecideReturnRequest(r.Context(), returnID, req.Approve, req.Comment, user.ID)
	if err != nil {
		logger.WithContext(r.Context()).Warn().Err(err).Str("return_id", returnID).Msg("DecideReturn failed")
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, ret)
}

type logisticsReq struct {
	Event string `json:"event"`
}

func (h *AdminReturnHandler) AdvanceLogistics(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	returnID := r.PathValue("id")
	if returnID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Return ID required")
		return
	}
	var req logisticsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	ret, err := h.returnUC.AdvanceReturnLogistics(r.Context(), returnID, domain.ReturnEvent(req.Event), user.ID)
	if err != nil {
		logger.WithContext(r.Context()).Warn().Err(err).Str("return_id", returnID).Str("event", req.Event).Msg("AdvanceLogistics failed")
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, ret)
}

type processRefundReq struct {
	Percent *float64 `json:"percent"`
}

func (h *AdminReturnHandler) ProcessRefund(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	returnID := r.PathValue("id")
	if returnID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Return ID required")
		return
	}
	var req processRefundReq
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	ret, err := h.returnUC.ProcessRefund(r.Context(), returnID, req.Percent, user.ID)
	if err != nil {
		middleware.RecordOperation("process_refund", false)
		logger.WithContext(r.Context()).Warn().Err(err).Str("return_id", returnID).Msg("ProcessRefund failed")
		utils.WriteDomainError(w, err)
		return
	}
	middleware.RecordOperation("process_refund", true)
	utils.WriteJSON(w, http.StatusOK, ret)
}

type completeRefundReq struct {
	TransactionID string `json:"transactionId"`
	Method        string `json:"method"`
	Comment       string `json:"comment"`
}

func (h *AdminReturnHandler) CompleteRefund(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	returnID := r.PathValue("id")
	if returnID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Return ID required")
		return
	}
	var req completeRefundReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	ret, err := h.returnUC.CompleteRefund(r.Context(), returnID, req.TransactionID, req.Method, req.Comment, user.ID)
	if err != nil {
		middleware.RecordOperation("complete_refund", false)
		logger.WithContext(r.Context()).Warn().Err(err).Str("return_id", returnID).Msg("CompleteRefund failed")
		utils.WriteDomainError(w, err)
		return
	}
	middleware.RecordOperation("complete_refund", true)
	utils.WriteJSON(w, http.StatusOK, ret)
}

type updateRefundReq struct {
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
	Method        string `json:"method"`
}

func (h *AdminReturnHandler) UpdateRefundStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	returnID := r.PathValue("id")
	if returnID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Return ID required")
		return
	}
	var req updateRefundReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	ret, err := h.returnUC.UpdateRefundStatus(r.Context(), returnID, domain.RefundStatus(req.Status), req.TransactionID, req.Method, user.ID)
	if err != nil {
		logger.WithContext(r.Context()).Warn().Err(err).Str("return_id", returnID).Str("status", req.Status).Msg("UpdateRefundStatus failed")
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, ret)
}
