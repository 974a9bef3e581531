package v1

import (
	"net/http"

	"github.com/goccy/go-json"

	"threadora-backend/internal/domain"
	"threadora-backend/internal/usecase"
	"threadora-backend/pkg/logger"
	"threadora-backend/pkg/utils"
)

type CartHandler struct {
	cartUC          *usecase.CartUsecase
	maxCartQuantity int
}

func NewCartHandler(uc *usecase.CartUsecase, maxCartQuantity int) *CartHandler {
	return &CartHandler{
		cartUC:          uc,
		maxCartQuantity: maxCartQuantity,
	}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	lines, err := h.cartUC.GetCart(r.Context(), user.ID)
	if err != nil {
		logger.WithContext(r.Context()).Error().Err(err).Str("user_id", user.ID).Msg("GetCart failed")
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"lines": lines})
}

type addToCartReq struct {
	Kind      domain.ItemKind `json:"kind"`
	ProductID string          `json:"productId"`
	Size      string          `json:"size"`
	BundleID  string          `json:"bundleId"`
	Quantity  int             `json:"quantity"`
}

func (h *CartHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req addToCartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if req.Quantity <= 0 {
		utils.WriteError(w, http.StatusBadRequest, "Quantity must be positive")
		return
	}
	if req.Quantity > h.maxCartQuantity {
		utils.WriteError(w, http.StatusBadRequest, "Quantity exceeds maximum limit")
		return
	}

	refID := req.ProductID
	if req.Kind == domain.ItemKindBundle {
		refID = req.BundleID
	}

	line, err := h.cartUC.AddToCart(r.Context(), user.ID, req.Kind, refID, req.Size, req.Quantity)
	if err != nil {
		logger.WithContext(r.Context()).Warn().Err(err).Str("user_id", user.ID).Msg("AddToCart failed")
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, line)
}

type updateLineReq struct {
	LineID   string `json:"lineId"`
	Quantity int    `json:"quantity"`
}

func (h *CartHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req updateLineReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.LineID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Line ID required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > h.maxCartQuantity {
		utils.WriteError(w, http.StatusBadRequest, "Quantity out of bounds")
		return
	}

	line, err := h.cartUC.UpdateLineQuantity(r.Context(), user.ID, req.LineID, req.Quantity)
	if err != nil {
		logger.WithContext(r.Context()).Warn().Err(err).Str("user_id", user.ID).Str("line_id", req.LineID).Msg("UpdateLine failed")
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, line)
}

func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	lineID := r.PathValue("lineId")
	if lineID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Line ID required")
		return
	}

	if err := h.cartUC.RemoveLine(r.Context(), user.ID, lineID); err != nil {
		logger.WithContext(r.Context()).Warn().Err(err).Str("user_id", user.ID).Str("line_id", lineID).Msg("RemoveLine failed")
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

type validateCartReq struct {
	LineIDs []string `json:"lineIds"`
}

func (h *CartHandler) ValidateCart(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req validateCartReq
	if r.Body != nil {
		// An empty or absent body validates the whole cart.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	review, err := h.cartUC.ValidateCart(r.Context(), user.ID, req.LineIDs)
	if err != nil {
		logger.WithContext(r.Context()).Warn().Err(err).Str("user_id", user.ID).Msg("ValidateCart failed")
		utils.WriteDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, review)
}
