package v1

import (
	"net/http"

	"github.com/goccy/go-json"

	"threadora-backend/internal/delivery/http/middleware"
	"threadora-backend/internal/usecase"
	"threadora-backend/pkg/logger"
	"threadora-backend/pkg/utils"
)

type OrderHandler struct {
	orderUC  *usecase.OrderUsecase
	returnUC *usecase.ReturnUsecase
}

func NewOrderHandler(orderUC *usecase.OrderUsecase, returnUC *usecase.ReturnUsecase) *OrderHandler {
	return &OrderHandler{
		orderUC:  orderUC,
		returnUC: returnUC,
	}
}

func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req usecase.PlaceOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	order, err := h.orderUC.PlaceOrder(r.Context(), user.ID, req)
	if err != nil {
		middleware.RecordOperation("place_order", false)
		logger.WithContext(r.Context()).Warn().Err(err).Str("user_id", user.ID).Msg("Checkout failed")
		utils.WriteDomainError(w, err)
		return
	}
	middleware.RecordOperation("place_order", true)
	utils.WriteJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	orders, err := h.orderUC.GetMyOrders(r.Context(), user.ID)
	if err != nil {
		logger.WithContext(r.Context()).Error().Err(err).Str("user_id", user.ID).Msg("GetMyOrders failed")
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID := r.PathValue("id")
	if orderID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Order ID required")
		return
	}

	order, err := h.orderUC.GetUserOrder(r.Context(), user.ID, orderID)
	if err != nil {
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID := r.PathValue("id")
	if orderID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Order ID required")
		return
	}

	order, err := h.orderUC.CancelMyOrder(r.Context(), user.ID, orderID)
	if err != nil {
		middleware.RecordOperation("cancel_order", false)
		logger.WithContext(r.Context()).Warn().Err(err).Str("user_id", user.ID).Str("order_id", orderID).Msg("CancelOrder failed")
		utils.WriteDomainError(w, err)
		return
	}
	middleware.RecordOperation("cancel_order", true)
	utils.WriteJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) GetReturnable(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	orderID := r.PathValue("id")
	if orderID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Order ID required")
		return
	}

	items, err := h.returnUC.ListReturnable(r.Context(), user.ID, orderID)
	if err != nil {
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}
