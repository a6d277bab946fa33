package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopx/internal/logger"
	identitysvc "shopx/internal/service/identity"
	"shopx/internal/session"
)

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

func (h *handler) loginForm(c *gin.Context) {
	if currentUser(c) != nil {
		h.redirectTo(c, "/")
		return
	}
	h.render(c, http.StatusOK, "login", "Log in", gin.H{"next": c.Query("next")})
}

func (h *handler) login(c *gin.Context) {
	if currentUser(c) != nil {
		h.redirectTo(c, "/")
		return
	}
	var form loginForm
	_ = c.ShouldBind(&form)

	u, err := h.deps.Identity.Login(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		if !errors.Is(err, identitysvc.ErrInvalidCredentials) {
			h.serverError(c, "login", err)
			return
		}
		h.flash(c, "error", "Invalid credentials")
		h.render(c, http.StatusOK, "login", "Log in", gin.H{"next": c.Query("next"), "username": form.Username})
		return
	}

	sess := session.FromGin(c)
	if err := h.deps.Carts.MergeSession(c.Request.Context(), u.ID, sess); err != nil {
		logger.FromGin(c).Warn("merge session cart", zap.String("user_id", u.ID), zap.Error(err))
	}
	sess.Login(u.ID)
	h.flash(c, "success", "Logged in successfully")

	dest := "/"
	if next := c.Query("next"); isLocalPath(next) {
		dest = next
	}
	h.redirectTo(c, dest)
}

// logout drops the whole session, anonymous cart included.
func (h *handler) logout(c *gin.Context) {
	sess := session.FromGin(c)
	sess.Invalidate()
	sess.AddFlash("success", "You have been logged out successfully")
	h.redirectTo(c, "/accounts/login/")
}

func (h *handler) registerForm(c *gin.Context) {
	h.render(c, http.StatusOK, "register", "Register", gin.H{"form": identitysvc.RegisterInput{}})
}

func (h *handler) register(c *gin.Context) {
	var in identitysvc.RegisterInput
	_ = c.ShouldBind(&in)

	u, err := h.deps.Identity.Register(c.Request.Context(), in)
	if err != nil {
		var verr *identitysvc.ValidationError
		if !errors.As(err, &verr) {
			h.serverError(c, "register", err)
			return
		}
		for _, m := range verr.Messages() {
			h.flash(c, "error", m)
		}
		in.Password1, in.Password2, in.InvitationToken = "", "", ""
		h.render(c, http.StatusOK, "register", "Register", gin.H{"form": in})
		return
	}

	logger.FromGin(c).Info("user registered", zap.String("username", u.Username), zap.Bool("admin", u.IsAdministrator()))
	h.flash(c, "success", "Registration successful! Please log in.")
	h.redirectTo(c, "/accounts/login/")
}
