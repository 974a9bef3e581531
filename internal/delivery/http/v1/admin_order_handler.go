package v1

import (
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"threadora-backend/internal/delivery/http/middleware"
	"threadora-backend/internal/domain"
	"threadora-backend/internal/usecase"
	"threadora-backend/pkg/logger"
	"threadora-backend/pkg/utils"
)

type AdminOrderHandler struct {
	orderUC *usecase.OrderUsecase
}

func NewAdminOrderHandler(uc *usecase.OrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{orderUC: uc}
}

func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func (h *AdminOrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter := domain.OrderFilter{
		Page:          queryInt(r, "page", 1),
		Limit:         queryInt(r, "limit", 20),
		Status:        r.URL.Query().Get("status"),
		PaymentStatus: r.URL.Query().Get("paymentStatus"),
		UserID:        r.URL.Query().Get("userId"),
	}

	orders, total, err := h.orderUC.GetAllOrders(r.Context(), filter)
	if err != nil {
		logger.WithContext(r.Context()).Error().Err(err).Msg("ListOrders failed")
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, domain.Response{
		Success: true,
		Data:    orders,
		Meta:    domain.NewPagination(filter.Page, filter.Limit, total),
	})
}

func (h *AdminOrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	if orderID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Order ID required")
		return
	}

	order, err := h.orderUC.GetOrder(r.Context(), orderID)
	if err != nil {
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

type updateStatusReq struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (h *AdminOrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID := r.PathValue("id")
	if orderID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Order ID required")
		return
	}
	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	order, err := h.orderUC.TransitionOrderStatus(r.Context(), orderID, domain.OrderStatus(req.Status), user.ID, req.Note)
	if err != nil {
		middleware.RecordOperation("transition_order", false)
		logger.WithContext(r.Context()).Warn().Err(err).Str("order_id", orderID).Str("status", req.Status).Msg("UpdateStatus failed")
		utils.WriteDomainError(w, err)
		return
	}
	middleware.RecordOperation("transition_order", true)
	utils.WriteJSON(w, http.StatusOK, order)
}

type bulkUpdateStatusReq struct {
	OrderIDs []string `json:"orderIds"`
	Status   string   `json:"status"`
	Note     string   `json:"note"`
}

func (h *AdminOrderHandler) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req bulkUpdateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if len(req.OrderIDs) == 0 {
		utils.WriteError(w, http.StatusBadRequest, "Order IDs required")
		return
	}

	result := h.orderUC.BulkTransitionOrderStatus(r.Context(), req.OrderIDs, domain.OrderStatus(req.Status), user.ID, req.Note)
	utils.WriteJSON(w, http.StatusOK, result)
}

func (h *AdminOrderHandler) GetOrderEvents(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	if orderID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Order ID required")
		return
	}

	events, err := h.orderUC.GetOrderEvents(r.Context(), orderID)
	if err != nil {
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}
