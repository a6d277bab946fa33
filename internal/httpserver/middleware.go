package httpserver

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopx/internal/domain"
	"shopx/internal/logger"
	"shopx/internal/session"
)

const userCtxKey = "user"

// currentUser resolves the session's user. A session pointing at a deleted
// account is reset to anonymous.
func (h *handler) currentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := session.FromGin(c)
		id := sess.UserID()
		if id == "" {
			c.Next()
			return
		}
		u, err := h.deps.Identity.GetUser(c.Request.Context(), id)
		switch {
		case err == nil:
			c.Set(userCtxKey, u)
		case errors.Is(err, domain.ErrNotFound):
			sess.Invalidate()
		default:
			logger.FromGin(c).Error("load session user", zap.String("user_id", id), zap.Error(err))
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(userCtxKey); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// userID is empty for anonymous visitors.
func userID(c *gin.Context) string {
	if u := currentUser(c); u != nil {
		return u.ID
	}
	return ""
}

func (h *handler) requireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) != nil {
			c.Next()
			return
		}
		h.saveSession(c)
		c.Redirect(http.StatusFound, "/accounts/login/?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

func (h *handler) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil {
			h.requireLogin()(c)
			return
		}
		if !u.IsAdministrator() {
			h.flash(c, "error", "Access denied. Only admin users can do that.")
			h.redirectTo(c, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}
