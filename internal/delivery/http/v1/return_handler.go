package v1

import (
	"net/http"

	"github.com/goccy/go-json"

	"threadora-backend/internal/delivery/http/middleware"
	"threadora-backend/internal/usecase"
	"threadora-backend/pkg/logger"
	"threadora-backend/pkg/utils"
)

type ReturnHandler struct {
	returnUC *usecase.ReturnUsecase
}

func NewReturnHandler(uc *usecase.ReturnUsecase) *ReturnHandler {
	return &ReturnHandler{returnUC: uc}
}

type submitReturnReq struct {
	OrderID string                    `json:"orderId"`
	Items   []usecase.ReturnItemInput `json:"items"`
}

func (h *ReturnHandler) SubmitReturn(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req submitReturnReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.OrderID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Order ID required")
		return
	}

	ret, err := h.returnUC.SubmitReturnRequest(r.Context(), user.ID, req.OrderID, req.Items)
	if err != nil {
		middleware.RecordOperation("submit_return", false)
		logger.WithContext(r.Context()).Warn().Err(err).Str("user_id", user.ID).Str("order_id", req.OrderID).Msg("SubmitReturn failed")
		utils.WriteDomainError(w, err)
		return
	}
	middleware.RecordOperation("submit_return", true)
	utils.WriteJSON(w, http.StatusCreated, ret)
}

func (h *ReturnHandler) GetMyReturns(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	returns, err := h.returnUC.GetMyReturns(r.Context(), user.ID)
	if err != nil {
		logger.WithContext(r.Context()).Error().Err(err).Str("user_id", user.ID).Msg("GetMyReturns failed")
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"returns": returns})
}

type resubmitReturnReq struct {
	Comment string `json:"comment"`
}

func (h *ReturnHandler) ResubmitReturn(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	returnID := r.PathValue("id")
	if returnID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Return ID required")
		return
	}
	var req resubmitReturnReq
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	ret, err := h.returnUC.ResubmitReturnRequest(r.Context(), user.ID, returnID, req.Comment)
	if err != nil {
		logger.WithContext(r.Context()).Warn().Err(err).Str("user_id", user.ID).Str("return_id", returnID).Msg("ResubmitReturn failed")
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, ret)
}

func (h *ReturnHandler) CancelReturn(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	returnID := r.PathValue("id")
	if returnID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Return ID required")
		return
	}

	ret, err := h.returnUC.CancelReturn(r.Context(), user.ID, returnID)
	if err != nil {
		logger.WithContext(r.Context()).Warn().Err(err).Str("user_id", user.ID).Str("return_id", returnID).Msg("CancelReturn failed")
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, ret)
}
