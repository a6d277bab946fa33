package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopx/internal/domain"
	"shopx/internal/logger"
	productsvc "shopx/internal/service/product"
)

const maxImageBytes = 5 << 20

func (h *handler) home(c *gin.Context) {
	groups, err := h.deps.Catalog.Home(c.Request.Context())
	if err != nil {
		h.serverError(c, "home listing", err)
		return
	}
	h.render(c, http.StatusOK, "home", "ShopX", gin.H{"groups": groups})
}

func (h *handler) categoryList(c *gin.Context) {
	cat, products, err := h.deps.Catalog.ByCategory(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.notFound(c)
			return
		}
		h.serverError(c, "category listing", err)
		return
	}
	h.render(c, http.StatusOK, "category_list", cat.Name, gin.H{"category": cat, "products": products})
}

func (h *handler) productDetail(c *gin.Context) {
	p, err := h.deps.Catalog.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.notFound(c)
			return
		}
		h.serverError(c, "product detail", err)
		return
	}
	h.render(c, http.StatusOK, "product_detail", p.Name, gin.H{"product": p})
}

func (h *handler) search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	products, err := h.deps.Catalog.Search(c.Request.Context(), query)
	if err != nil {
		h.serverError(c, "search", err)
		return
	}
	h.render(c, http.StatusOK, "search_results", "Search", gin.H{"query": query, "products": products})
}

func (h *handler) addProductForm(c *gin.Context) {
	if !currentUser(c).IsAdministrator() {
		h.denyAdmin(c)
		return
	}
	h.renderProductForm(c, http.StatusOK, productsvc.CreateInput{})
}

func (h *handler) addProduct(c *gin.Context) {
	actor := currentUser(c)
	if !actor.IsAdministrator() {
		h.denyAdmin(c)
		return
	}

	var in productsvc.CreateInput
	if err := c.ShouldBind(&in); err != nil {
		h.flash(c, "error", "Error creating product: "+err.Error())
		h.renderProductForm(c, http.StatusBadRequest, in)
		return
	}
	in.Tags = splitTags(c.PostForm("tags"))

	if fh, err := c.FormFile("image"); err == nil {
		if fh.Size > maxImageBytes {
			h.flash(c, "error", "Error creating product: image is larger than 5 MB")
			h.renderProductForm(c, http.StatusBadRequest, in)
			return
		}
		f, err := fh.Open()
		if err != nil {
			h.serverError(c, "open upload", err)
			return
		}
		defer f.Close()
		in.Image = &productsvc.Image{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		}
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		h.flash(c, "error", "Error creating product: "+err.Error())
		h.renderProductForm(c, http.StatusBadRequest, in)
		return
	}

	p, err := h.deps.Catalog.Create(c.Request.Context(), actor, in)
	if err != nil {
		var verr *productsvc.ValidationError
		switch {
		case errors.As(err, &verr):
			for _, field := range sortedKeys(verr.Fields) {
				h.flash(c, "error", fmt.Sprintf("Error creating product: %s: %s", field, verr.Fields[field]))
			}
			h.renderProductForm(c, http.StatusBadRequest, in)
		case errors.Is(err, domain.ErrForbidden):
			h.denyAdmin(c)
		default:
			h.serverError(c, "create product", err)
		}
		return
	}

	logger.FromGin(c).Info("product added", zap.String("slug", p.Slug))
	h.flash(c, "success", fmt.Sprintf("Product %q created successfully!", p.Name))
	h.redirectTo(c, "/"+p.Slug+"/")
}

func (h *handler) renderProductForm(c *gin.Context, status int, in productsvc.CreateInput) {
	categories, err := h.deps.Categories.List(c.Request.Context())
	if err != nil {
		h.serverError(c, "list categories", err)
		return
	}
	h.render(c, status, "add_product", "Add product", gin.H{
		"categories": categories,
		"form":       in,
		"tags":       strings.Join(in.Tags, ", "),
	})
}

func (h *handler) denyAdmin(c *gin.Context) {
	h.flash(c, "error", "Access denied. Only admin users can add products.")
	h.redirectTo(c, "/")
}

func splitTags(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
