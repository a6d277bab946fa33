package httpserver

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shopx/internal/domain"
	"shopx/internal/logger"
	"shopx/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// pageSet renders each page inside the shared base layout.
type pageSet map[string]*template.Template

func (p pageSet) Instance(name string, data any) render.Render {
	t, ok := p[name]
	if !ok {
		t = p["not_found"]
	}
	return render.HTML{Template: t, Name: "base", Data: data}
}

func loadPages(currency string) (pageSet, error) {
	if currency == "" {
		currency = "$"
	}
	funcs := template.FuncMap{
		"currency": func(v decimal.Decimal) string {
			return currency + v.StringFixed(2)
		},
	}
	base, err := template.New("base.html").Funcs(funcs).ParseFS(templatesFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parse base template: %w", err)
	}
	files, err := fs.Glob(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	pages := pageSet{}
	for _, f := range files {
		name := strings.TrimSuffix(path.Base(f), ".html")
		if name == "base" {
			continue
		}
		t, err := template.Must(base.Clone()).ParseFS(templatesFS, f)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		pages[name] = t
	}
	if _, ok := pages["not_found"]; !ok {
		return nil, fmt.Errorf("missing not_found template")
	}
	return pages, nil
}

// view is the data every page receives.
type view struct {
	Title   string
	User    *domain.User
	Flashes []session.Flash
	Path    string
	Data    gin.H
}

// render pops pending flashes, saves the session and writes the page.
func (h *handler) render(c *gin.Context, status int, page, title string, data gin.H) {
	sess := session.FromGin(c)
	v := view{
		Title:   title,
		User:    currentUser(c),
		Flashes: sess.Flashes(),
		Path:    c.Request.URL.Path,
		Data:    data,
	}
	h.saveSession(c)
	c.HTML(status, page, v)
}

// saveSession must run before any response bytes are written.
func (h *handler) saveSession(c *gin.Context) {
	if err := session.FromGin(c).Save(c.Request.Context(), c.Writer); err != nil {
		logger.FromGin(c).Error("save session", zap.Error(err))
	}
}

func (h *handler) flash(c *gin.Context, level, message string) {
	session.FromGin(c).AddFlash(level, message)
}

// redirect saves the session and sends the client to the first of ?next,
// the Referer header and fallback.
func (h *handler) redirect(c *gin.Context, fallback string) {
	h.saveSession(c)
	c.Redirect(http.StatusFound, nextURL(c, fallback))
}

func (h *handler) redirectTo(c *gin.Context, location string) {
	h.saveSession(c)
	c.Redirect(http.StatusFound, location)
}

func nextURL(c *gin.Context, fallback string) string {
	if next := c.Query("next"); isLocalPath(next) {
		return next
	}
	if ref := c.Request.Referer(); ref != "" {
		return ref
	}
	return fallback
}

func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}

func (h *handler) notFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "not_found", "Not found", nil)
}

func (h *handler) serverError(c *gin.Context, msg string, err error) {
	logger.FromGin(c).Error(msg, zap.Error(err))
	_ = c.Error(err)
	h.render(c, http.StatusInternalServerError, "error", "Something went wrong", nil)
}

func isAJAX(c *gin.Context) bool {
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}
