package v1

import (
	"net/http"
	"time"

	"threadora-backend/internal/domain"
	"threadora-backend/pkg/cache"
	"threadora-backend/pkg/utils"
)

const enumsCacheKey = "config:enums"

// ConfigHandler serves static configuration consumed by clients, cached
// in memory since the enum sets only change on deploy.
type ConfigHandler struct {
	cache cache.CacheService
	ttl   time.Duration
}

func NewConfigHandler(c cache.CacheService, ttl time.Duration) *ConfigHandler {
	return &ConfigHandler{cache: c, ttl: ttl}
}

func (h *ConfigHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	if cached, found := h.cache.Get(enumsCacheKey); found {
		utils.WriteJSON(w, http.StatusOK, cached)
		return
	}

	enums := map[string]interface{}{
		"orderStatuses":  domain.OrderStatuses,
		"returnStatuses": domain.ReturnStatuses,
		"refundStatuses": domain.RefundStatuses,
		"returnReasons":  domain.ReturnReasons,
		"paymentMethods": domain.PaymentMethods,
	}
	h.cache.Set(enumsCacheKey, enums, h.ttl)
	utils.WriteJSON(w, http.StatusOK, enums)
}
