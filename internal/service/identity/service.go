package identity

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"shopx/internal/domain"
	"shopx/internal/logger"
	"shopx/internal/notify"
)

// ErrInvalidCredentials is returned when the identifier/password pair does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

type userRepo interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	CreateAdmin(ctx context.Context, u domain.User, invitationID string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type invitationRepo interface {
	Create(ctx context.Context, inv domain.Invitation) error
}

// Service handles registration, login and admin invitations.
type Service struct {
	users       userRepo
	invitations invitationRepo
	signer      *InvitationSigner
	mailer      notify.Mailer
	validate    *validator.Validate
	logger      *zap.Logger
	passwordMin int
	bcryptCost  int
}

// New creates a Service. A nil signer disables admin registration.
func New(users userRepo, invitations invitationRepo, signer *InvitationSigner, mailer notify.Mailer, l *zap.Logger) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
	})
	return &Service{
		users:       users,
		invitations: invitations,
		signer:      signer,
		mailer:      mailer,
		validate:    v,
		logger:      logger.OrNop(l),
		passwordMin: 8,
		bcryptCost:  bcrypt.DefaultCost,
	}
}

// ValidationError maps form fields to messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "invalid registration: " + strings.Join(e.Messages(), "; ")
}

// Messages returns "field: message" lines in field order.
func (e *ValidationError) Messages() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+": "+e.Fields[k])
	}
	return out
}

// RegisterInput mirrors the registration form.
type RegisterInput struct {
	Username        string `form:"username" validate:"required,max=150"`
	Email           string `form:"email" validate:"required,email"`
	Password1       string `form:"password1" validate:"required"`
	Password2       string `form:"password2" validate:"required"`
	UserType        string `form:"user_type"`
	InvitationToken string `form:"invitation_token"`
}

// Register creates a standard user, or an administrator when UserType is
// "admin" and InvitationToken is a valid, unredeemed invitation for Email.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	asAdmin := in.UserType == "admin"

	fields := map[string]string{}
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
	}
	if _, bad := fields["password1"]; !bad {
		if err := validatePassword(in.Password1, s.passwordMin); err != nil {
			fields["password1"] = err.Error()
		}
	}
	if in.Password1 != in.Password2 {
		fields["password2"] = "the two password fields didn't match"
	}

	var invitationID string
	if asAdmin {
		id, err := s.checkInvitation(in.InvitationToken, in.Email)
		if err != nil {
			fields["invitation_token"] = err.Error()
		}
		invitationID = id
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if err := s.checkAvailable(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password1), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	u := domain.User{Username: in.Username, Email: in.Email, PasswordHash: string(hashed)}

	if asAdmin {
		created, err := s.users.CreateAdmin(ctx, u, invitationID)
		if err != nil {
			return nil, s.mapCreateErr(err)
		}
		s.logger.Info("admin registered", zap.String("username", created.Username), zap.String("invitation", invitationID))
		return created, nil
	}

	created, err := s.users.Create(ctx, u)
	if err != nil {
		return nil, s.mapCreateErr(err)
	}
	s.sendWelcome(ctx, created)
	return created, nil
}

// Login accepts a username or an e-mail address. The username is tried first.
func (s *Service) Login(ctx context.Context, identifier, password string) (*domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	if u, err := s.users.GetByUsername(ctx, identifier); err == nil {
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil {
			return u, nil
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	u, err := s.users.GetByEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GetUser resolves the user bound to a session.
func (s *Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// IssueInvitation records a single-use admin invitation and returns its token.
func (s *Service) IssueInvitation(ctx context.Context, email string, ttl time.Duration) (string, *domain.Invitation, error) {
	if s.signer == nil {
		return "", nil, errors.New("admin invitations are disabled: INVITE_SECRET is not set")
	}
	email = strings.TrimSpace(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return "", nil, fmt.Errorf("invalid email %q", email)
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	inv := domain.Invitation{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(email),
		ExpiresAt: time.Now().Add(ttl).UTC().Truncate(time.Second),
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return "", nil, fmt.Errorf("store invitation: %w", err)
	}
	token, err := s.signer.Sign(inv)
	if err != nil {
		return "", nil, err
	}
	s.logger.Info("admin invitation issued", zap.String("email", inv.Email), zap.Time("expires_at", inv.ExpiresAt))
	return token, &inv, nil
}

// CreateSuperuser creates an administrator without an invitation. It is
// reserved for the operator CLI and returns domain.ErrAlreadyExists when the
// username is taken.
func (s *Service) CreateSuperuser(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	fields := map[string]string{}
	if username == "" {
		fields["username"] = "this field is required"
	}
	if err := s.validate.Var(email, "required,email"); err != nil {
		fields["email"] = "enter a valid e-mail address"
	}
	if err := validatePassword(password, s.passwordMin); err != nil {
		fields["password"] = err.Error()
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		IsAdmin:      true,
		IsStaff:      true,
		IsSuperuser:  true,
	})
}

func (s *Service) checkInvitation(token, email string) (string, error) {
	if s.signer == nil {
		return "", errors.New("admin registration is disabled")
	}
	if strings.TrimSpace(token) == "" {
		return "", errors.New("an invitation token is required to register as admin")
	}
	id, invited, err := s.signer.Parse(token)
	if err != nil {
		return "", errors.New("invalid or expired invitation token")
	}
	if !strings.EqualFold(invited, email) {
		return "", errors.New("this invitation was issued for a different e-mail address")
	}
	return id, nil
}

func (s *Service) checkAvailable(ctx context.Context, username, email string) error {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return &ValidationError{Fields: map[string]string{"username": "a user with that username already exists"}}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return &ValidationError{Fields: map[string]string{"email": "a user with that e-mail already exists"}}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

func (s *Service) mapCreateErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		return &ValidationError{Fields: map[string]string{"username": "a user with that username or e-mail already exists"}}
	case errors.Is(err, domain.ErrInvitationInvalid):
		return &ValidationError{Fields: map[string]string{"invitation_token": "invitation is expired, already used or issued for another address"}}
	default:
		return err
	}
}

// sendWelcome never fails registration.
func (s *Service) sendWelcome(ctx context.Context, u *domain.User) {
	if s.mailer == nil {
		return
	}
	err := s.mailer.Send(ctx, notify.Message{
		To:      []string{u.Email},
		Subject: "Welcome to ShopX",
		Body:    "Hi, your registration at ShopX was successful. Happy shopping!",
	})
	if err != nil {
		s.logger.Warn("welcome mail failed", zap.String("username", u.Username), zap.Error(err))
	}
}

func validatePassword(p string, min int) error {
	trimmed := strings.TrimSpace(p)
	if len(trimmed) < min {
		return fmt.Errorf("password must be at least %d characters", min)
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid e-mail address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "invalid value"
	}
}
