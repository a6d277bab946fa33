package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopx/internal/domain"
	"shopx/internal/logger"
	"shopx/internal/session"
)

func (h *handler) checkoutStart(c *gin.Context) {
	o, err := h.deps.Checkout.Start(c.Request.Context(), userID(c), session.FromGin(c))
	if err != nil {
		if errors.Is(err, domain.ErrEmptyCart) {
			h.flash(c, "info", "Your cart is empty.")
			h.redirectTo(c, "/cart/")
			return
		}
		h.serverError(c, "checkout", err)
		return
	}
	logger.FromGin(c).Info("checkout complete", zap.String("order_id", o.ID))
	h.redirectTo(c, "/checkout/success/")
}

func (h *handler) checkoutSuccess(c *gin.Context) {
	h.deps.Checkout.ClearCarts(c.Request.Context(), userID(c), session.FromGin(c))
	h.render(c, http.StatusOK, "checkout_success", "Thank you", nil)
}

func (h *handler) checkoutCancel(c *gin.Context) {
	h.render(c, http.StatusOK, "checkout_cancel", "Checkout cancelled", nil)
}
