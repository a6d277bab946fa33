package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopx/internal/domain"
	cartsvc "shopx/internal/service/cart"
	"shopx/internal/session"
)

func (h *handler) cartSource(c *gin.Context) cartsvc.Source {
	return h.deps.Carts.Resolve(userID(c), session.FromGin(c))
}

// cartProduct loads the product named in the path, writing a 404 when it
// does not exist.
func (h *handler) cartProduct(c *gin.Context) (*domain.Product, bool) {
	p, err := h.deps.Catalog.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err == nil {
		return p, true
	}
	if errors.Is(err, domain.ErrNotFound) {
		if isAJAX(c) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "product not found"})
			return nil, false
		}
		h.notFound(c)
		return nil, false
	}
	h.serverError(c, "load product", err)
	return nil, false
}

func (h *handler) addToCart(c *gin.Context) {
	p, ok := h.cartProduct(c)
	if !ok {
		return
	}
	if err := h.cartSource(c).Add(c.Request.Context(), *p, 1); err != nil {
		if isAJAX(c) {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not add to cart"})
			return
		}
		h.serverError(c, "add to cart", err)
		return
	}
	if isAJAX(c) {
		h.saveSession(c)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": p.Name + " added to cart"})
		return
	}
	h.redirect(c, "/")
}

func (h *handler) decrementInCart(c *gin.Context) {
	p, ok := h.cartProduct(c)
	if !ok {
		return
	}
	if err := h.cartSource(c).Decrement(c.Request.Context(), p.ID); err != nil {
		h.serverError(c, "decrement cart line", err)
		return
	}
	h.redirect(c, "/cart/")
}

func (h *handler) removeFromCart(c *gin.Context) {
	p, ok := h.cartProduct(c)
	if !ok {
		return
	}
	if err := h.cartSource(c).Remove(c.Request.Context(), p.ID); err != nil {
		h.serverError(c, "remove cart line", err)
		return
	}
	h.redirect(c, "/cart/")
}

func (h *handler) cartView(c *gin.Context) {
	lines, err := h.cartSource(c).Lines(c.Request.Context())
	if err != nil {
		h.serverError(c, "load cart", err)
		return
	}
	h.render(c, http.StatusOK, "cart", "Your cart", gin.H{
		"items": lines,
		"total": domain.Subtotal(lines),
		"count": domain.ItemsCount(lines),
	})
}
