// Package session keeps per-visitor state (login, anonymous cart, flash
// messages) in Redis or memory, keyed by a cookie.
//
// Handlers read and mutate the session through FromGin and must call Save
// before writing the response so the cookie reaches the client.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrNotFound is returned by stores for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Data is the persisted session payload.
type Data struct {
	UserID  string         `json:"user_id,omitempty"`
	Cart    map[string]int `json:"cart,omitempty"`
	Flashes []Flash        `json:"flashes,omitempty"`
}

// Flash is a one-shot message rendered on the next page.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Store persists session data by id.
type Store interface {
	Load(ctx context.Context, id string) (*Data, error)
	Save(ctx context.Context, id string, data *Data, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Options configures the session cookie.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	Path       string
}

func (o Options) withDefaults() Options {
	if o.CookieName == "" {
		o.CookieName = "shopx_session"
	}
	if o.TTL <= 0 {
		o.TTL = 14 * 24 * time.Hour
	}
	if o.Path == "" {
		o.Path = "/"
	}
	return o
}

// Session is the in-request handle.
type Session struct {
	id      string
	staleID string
	isNew   bool
	data    *Data
	changed bool
	store   Store
	opts    Options
}

// New returns an empty, unsaved session.
func New(store Store, opts Options) *Session {
	return &Session{id: uuid.NewString(), isNew: true, data: &Data{}, store: store, opts: opts.withDefaults()}
}

func (s *Session) ID() string { return s.id }

func (s *Session) UserID() string { return s.data.UserID }

// Login binds the session to a user under a fresh id.
func (s *Session) Login(userID string) {
	s.rotate()
	s.data.UserID = userID
	s.changed = true
}

// Cart returns a copy of the anonymous cart mapping product id to quantity.
func (s *Session) Cart() map[string]int {
	out := make(map[string]int, len(s.data.Cart))
	for k, v := range s.data.Cart {
		out[k] = v
	}
	return out
}

// SetCart replaces the anonymous cart. Non-positive quantities are dropped.
func (s *Session) SetCart(cart map[string]int) {
	clean := make(map[string]int, len(cart))
	for k, v := range cart {
		if v > 0 {
			clean[k] = v
		}
	}
	if len(clean) == 0 {
		clean = nil
	}
	s.data.Cart = clean
	s.changed = true
}

// AddFlash queues a message for the next rendered page.
func (s *Session) AddFlash(level, message string) {
	s.data.Flashes = append(s.data.Flashes, Flash{Level: level, Message: message})
	s.changed = true
}

// Flashes returns and clears queued messages.
func (s *Session) Flashes() []Flash {
	out := s.data.Flashes
	if len(out) > 0 {
		s.data.Flashes = nil
		s.changed = true
	}
	return out
}

// Invalidate drops all data, including the anonymous cart, and rotates the id.
func (s *Session) Invalidate() {
	s.rotate()
	s.data = &Data{}
	s.changed = true
}

func (s *Session) rotate() {
	if !s.isNew && s.staleID == "" {
		s.staleID = s.id
	}
	s.id = uuid.NewString()
	s.isNew = true
}

// Save persists changed data and writes the cookie.
func (s *Session) Save(ctx context.Context, w http.ResponseWriter) error {
	if !s.changed {
		return nil
	}
	if s.staleID != "" {
		if err := s.store.Delete(ctx, s.staleID); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("session: delete stale: %w", err)
		}
		s.staleID = ""
	}
	if err := s.store.Save(ctx, s.id, s.data, s.opts.TTL); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    s.id,
		Path:     s.opts.Path,
		MaxAge:   int(s.opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.changed = false
	s.isNew = false
	return nil
}

const ginKey = "session"

// Middleware loads the session named by the cookie, or starts a new one.
func Middleware(store Store, opts Options) gin.HandlerFunc {
	opts = opts.withDefaults()
	return func(c *gin.Context) {
		sess := New(store, opts)
		if cookie, err := c.Request.Cookie(opts.CookieName); err == nil && cookie.Value != "" {
			if data, err := store.Load(c.Request.Context(), cookie.Value); err == nil {
				sess.id = cookie.Value
				sess.data = data
				sess.isNew = false
			}
		}
		c.Set(ginKey, sess)
		c.Next()
	}
}

// FromGin returns the request session, or a fresh in-memory one.
func FromGin(c *gin.Context) *Session {
	if v, ok := c.Get(ginKey); ok {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	sess := New(NewMemoryStore(), Options{})
	c.Set(ginKey, sess)
	return sess
}
