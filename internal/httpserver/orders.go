package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shopx/internal/domain"
)

func (h *handler) orderHistory(c *gin.Context) {
	orders, err := h.deps.Orders.History(c.Request.Context(), userID(c))
	if err != nil {
		h.serverError(c, "order history", err)
		return
	}
	h.render(c, http.StatusOK, "orders", "Your orders", gin.H{"orders": orders})
}

func (h *handler) orderDetail(c *gin.Context) {
	o, err := h.deps.Orders.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.notFound(c)
		return
	case err != nil:
		h.serverError(c, "order detail", err)
		return
	}
	h.render(c, http.StatusOK, "orders", "Order "+o.ID, gin.H{"orders": []domain.Order{*o}})
}

func (h *handler) adminOrders(c *gin.Context) {
	orders, err := h.deps.Orders.ListAll(c.Request.Context(), currentUser(c))
	if err != nil {
		h.serverError(c, "admin orders", err)
		return
	}
	h.render(c, http.StatusOK, "admin_orders", "Orders", gin.H{"orders": orders})
}

func (h *handler) adminCancelOrder(c *gin.Context) {
	id := c.Param("id")
	_, err := h.deps.Orders.Cancel(c.Request.Context(), currentUser(c), id)
	switch {
	case err == nil:
		h.flash(c, "success", fmt.Sprintf("Order %s cancelled.", id))
	case errors.Is(err, domain.ErrNotFound):
		h.notFound(c)
		return
	case errors.Is(err, domain.ErrInvalidTransition):
		h.flash(c, "error", fmt.Sprintf("Order %s can no longer be cancelled.", id))
	default:
		h.serverError(c, "cancel order", err)
		return
	}
	h.redirectTo(c, "/admin/orders/")
}

func (h *handler) adminDeleteProduct(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.deps.Catalog.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.notFound(c)
			return
		}
		h.serverError(c, "load product", err)
		return
	}
	switch err := h.deps.Catalog.Delete(ctx, currentUser(c), p.ID); {
	case err == nil:
		h.flash(c, "success", fmt.Sprintf("Product %q deleted.", p.Name))
		h.redirectTo(c, "/")
	case errors.Is(err, domain.ErrProductInUse):
		h.flash(c, "error", fmt.Sprintf("Product %q appears in an order and cannot be deleted.", p.Name))
		h.redirectTo(c, "/"+p.Slug+"/")
	default:
		h.serverError(c, "delete product", err)
	}
}

func (h *handler) adminCategories(c *gin.Context) {
	categories, err := h.deps.Categories.List(c.Request.Context())
	if err != nil {
		h.serverError(c, "list categories", err)
		return
	}
	h.render(c, http.StatusOK, "admin_categories", "Categories", gin.H{"categories": categories})
}

func (h *handler) adminUpsertCategory(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		h.flash(c, "error", "name: this field is required")
		h.redirectTo(c, "/admin/categories/")
		return
	}
	cat, err := h.deps.Categories.Upsert(c.Request.Context(), currentUser(c), name, strings.TrimSpace(c.PostForm("slug")))
	if err != nil {
		h.serverError(c, "upsert category", err)
		return
	}
	h.flash(c, "success", fmt.Sprintf("Category %q saved.", cat.Name))
	h.redirectTo(c, "/admin/categories/")
}
