package identitystub

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"

	"github.com/goliatone/go-authclient/transport"
)

const (
	userLocalsKey    = "identitystub.user"
	sessionLocalsKey = "identitystub.session"
	problemMIME      = "application/problem+json"
)

type registerPayload struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone"`
}

// Validate will run validation rules
func (r registerPayload) Validate(region string) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.DisplayName, validation.Length(0, 200)),
		validation.Field(&r.Phone, validation.By(validatePhone(region))),
	)
}

type loginPayload struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type forgotPayload struct {
	Email string `json:"email"`
}

type resetPayload struct {
	Email       string `json:"email"`
	ResetCode   string `json:"resetCode"`
	NewPassword string `json:"newPassword"`
}

// Validate will run validation rules
func (r resetPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.ResetCode, validation.Required),
		validation.Field(&r.NewPassword, validation.Required),
	)
}

type identityResponse struct {
	ID               string   `json:"id"`
	Email            string   `json:"email"`
	DisplayName      string   `json:"displayName,omitempty"`
	Phone            string   `json:"phone,omitempty"`
	IsEmailConfirmed bool     `json:"isEmailConfirmed"`
	Roles            []string `json:"roles,omitempty"`
}

// newServer builds the router adapter and keeps the fiber app it wraps, which
// runs the listener and serves app.Test.
func (s *Stub) newServer() router.Server[*fiber.App] {
	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		s.app = router.DefaultFiberOptions(fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ErrorHandler:          s.errorHandler,
		}))
		return s.app
	})

	RegisterRoutes(srv.Router(), s)

	return srv
}

// RegisterRoutes mounts the identity endpoints of stub on app
func RegisterRoutes[T any](app router.Router[T], s *Stub) {
	r := s.cfg.Routes

	app.Post(r.Register, s.register).
		SetName("register.post")
	app.Post(r.Login, s.login).
		SetName("sign-in.post")
	app.Post(r.Logout, s.logout, s.requireSession).
		SetName("sign-out.post")
	app.Get(r.Identity, s.identity, s.requireSession).
		SetName("identity.get")
	app.Post(r.ForgotPassword, s.forgotPassword).
		SetName("pwd-forgot.post")
	app.Post(r.ResetPassword, s.resetPassword).
		SetName("pwd-reset.post")
}

func (s *Stub) register(ctx router.Context) error {
	payload := new(registerPayload)
	if err := ctx.Bind(payload); err != nil {
		return problem(ctx, router.StatusBadRequest, "Failed to parse body", nil)
	}

	masked := *payload
	masked.Password = "********"
	s.logger.Debug("register: %s", print.MaybePrettyJSON(masked))

	if err := payload.Validate(s.cfg.PhoneRegion); err != nil {
		return problem(ctx, router.StatusBadRequest, "One or more validation errors occurred.", validationProblem(err))
	}

	if errs := passwordPolicy(payload.Password, s.cfg.MinPassword); errs != nil {
		return problem(ctx, router.StatusBadRequest, "One or more validation errors occurred.", errs)
	}

	phone := payload.Phone
	if phone != "" {
		if num, err := phonenumbers.Parse(phone, s.cfg.PhoneRegion); err == nil {
			phone = phonenumbers.Format(num, phonenumbers.E164)
		}
	}

	if _, err := s.AddUser(payload.Email, payload.Password, payload.DisplayName, phone); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryConflict {
			return problem(ctx, fiber.StatusConflict, "Conflict", map[string][]string{
				"DuplicateEmail": {"Email '" + payload.Email + "' is already taken."},
			})
		}
		return err
	}

	s.logger.Info("registered %s", normalizeEmail(payload.Email))
	return sendOK(ctx)
}

func (s *Stub) login(ctx router.Context) error {
	if !s.limiter.allow(ctx.IP()) {
		ctx.SetHeader(fiber.HeaderRetryAfter, s.limiter.retryAfter())
		return problem(ctx, fiber.StatusTooManyRequests, "Too many login attempts", nil)
	}

	if ctx.Query("useCookies") != "true" {
		return problem(ctx, router.StatusBadRequest, "Only cookie sessions are supported", map[string][]string{
			"useCookies": {"useCookies must be true."},
		})
	}

	payload := new(loginPayload)
	if err := ctx.Bind(payload); err != nil {
		return problem(ctx, router.StatusBadRequest, "Failed to parse body", nil)
	}

	user, found := s.User(payload.Email)
	if !found || ComparePasswordAndHash(payload.Password, user.PasswordHash) != nil {
		s.logger.Debug("login rejected for %s", normalizeEmail(payload.Email))
		return problem(ctx, router.StatusUnauthorized, "Unauthorized", nil)
	}

	sessionID := uuid.NewString()
	ttl := s.cfg.SessionTTL
	if payload.RememberMe {
		ttl = s.cfg.RememberTTL
	}
	s.sessions.set(sessionID, user.Email, ttl)

	cookie := &router.Cookie{
		Name:     s.cfg.CookieName,
		Value:    sessionID,
		Path:     "/",
		HTTPOnly: true,
		SameSite: "Lax",
	}
	if payload.RememberMe {
		cookie.Expires = s.now().Add(ttl)
	}
	ctx.Cookie(cookie)

	s.logger.Info("login %s remember=%t", user.Email, payload.RememberMe)
	return sendOK(ctx)
}

func (s *Stub) logout(ctx router.Context) error {
	if id, found := ctx.Locals(sessionLocalsKey).(string); found {
		s.sessions.delete(id)
	}

	ctx.Cookie(&router.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: "Lax",
		Expires:  s.now().Add(-time.Hour),
	})

	return sendOK(ctx)
}

func (s *Stub) identity(ctx router.Context) error {
	user, found := ctx.Locals(userLocalsKey).(User)
	if !found {
		return problem(ctx, router.StatusUnauthorized, "Unauthorized", nil)
	}

	return ctx.JSON(router.StatusOK, identityResponse{
		ID:               user.ID.String(),
		Email:            user.Email,
		DisplayName:      user.DisplayName,
		Phone:            user.Phone,
		IsEmailConfirmed: user.EmailConfirmed,
		Roles:            user.Roles,
	})
}

// forgotPassword answers 200 for unknown accounts too, so it cannot be used
// to enumerate them.
func (s *Stub) forgotPassword(ctx router.Context) error {
	payload := new(forgotPayload)
	if err := ctx.Bind(payload); err != nil {
		return problem(ctx, router.StatusBadRequest, "Failed to parse body", nil)
	}

	if err := validation.Validate(payload.Email, validation.Required, is.Email); err != nil {
		return problem(ctx, router.StatusBadRequest, "One or more validation errors occurred.", map[string][]string{
			"email": {err.Error()},
		})
	}

	email := normalizeEmail(payload.Email)
	if _, found := s.User(email); found {
		s.issueResetCode(email)
		s.logger.Info("reset code issued for %s", email)
	}

	return sendOK(ctx)
}

func (s *Stub) resetPassword(ctx router.Context) error {
	payload := new(resetPayload)
	if err := ctx.Bind(payload); err != nil {
		return problem(ctx, router.StatusBadRequest, "Failed to parse body", nil)
	}

	if err := payload.Validate(); err != nil {
		return problem(ctx, router.StatusBadRequest, "One or more validation errors occurred.", validationProblem(err))
	}

	email := normalizeEmail(payload.Email)
	if _, found := s.User(email); !found {
		return problem(ctx, router.StatusBadRequest, "One or more validation errors occurred.", invalidToken())
	}

	code := strings.TrimSpace(payload.ResetCode)
	if !s.validResetCode(email, code) {
		return problem(ctx, router.StatusBadRequest, "One or more validation errors occurred.", invalidToken())
	}

	if errs := passwordPolicy(payload.NewPassword, s.cfg.MinPassword); errs != nil {
		return problem(ctx, router.StatusBadRequest, "One or more validation errors occurred.", errs)
	}

	if !s.consumeResetCode(email, code) {
		return problem(ctx, router.StatusBadRequest, "One or more validation errors occurred.", invalidToken())
	}

	if err := s.setPassword(email, payload.NewPassword); err != nil {
		return err
	}

	s.sessions.deleteFor(email)
	s.logger.Info("password reset for %s", email)

	return sendOK(ctx)
}

// requireSession resolves the session cookie and stores the session id and
// the user in locals for the wrapped handler.
func (s *Stub) requireSession(hf router.HandlerFunc) router.HandlerFunc {
	return func(ctx router.Context) error {
		id := ctx.Cookies(s.cfg.CookieName)
		if id == "" {
			return problem(ctx, router.StatusUnauthorized, "Unauthorized", nil)
		}

		email, found := s.sessions.get(id)
		if !found {
			return problem(ctx, router.StatusUnauthorized, "Unauthorized", nil)
		}

		user, found := s.User(email)
		if !found {
			s.sessions.delete(id)
			return problem(ctx, router.StatusUnauthorized, "Unauthorized", nil)
		}

		ctx.Locals(sessionLocalsKey, id)
		ctx.Locals(userLocalsKey, user)

		return hf(ctx)
	}
}

// errorHandler is the fiber fallback for errors handlers return
func (s *Stub) errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	var fe *fiber.Error
	var richErr *goerrors.Error
	switch {
	case errors.As(err, &fe):
		status = fe.Code
	case goerrors.As(err, &richErr):
		status = statusForCategory(richErr.Category)
	}

	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request %s %s failed: %v", c.Method(), c.Path(), err)
	}

	return c.Status(status).JSON(newProblem(status, err.Error(), nil), problemMIME)
}

func statusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return fiber.StatusBadRequest
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	case goerrors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	}
	return fiber.StatusInternalServerError
}

func newProblem(status int, title string, errs map[string][]string) transport.Problem {
	return transport.Problem{
		Type:   "https://tools.ietf.org/html/rfc9110",
		Title:  title,
		Status: status,
		Errors: errs,
	}
}

func problem(ctx router.Context, status int, title string, errs map[string][]string) error {
	err := ctx.JSON(status, newProblem(status, title, errs))
	ctx.SetHeader(fiber.HeaderContentType, problemMIME)
	return err
}

func sendOK(ctx router.Context) error {
	return ctx.Status(router.StatusOK).SendString("")
}

func invalidToken() map[string][]string {
	return map[string][]string{
		"InvalidToken": {"Invalid token."},
	}
}

func validationProblem(err error) map[string][]string {
	out := map[string][]string{}
	verrs, ok := err.(validation.Errors)
	if !ok {
		out["form"] = []string{err.Error()}
		return out
	}
	for field, ferr := range verrs {
		if ferr != nil {
			out[field] = []string{ferr.Error()}
		}
	}
	return out
}

func validatePhone(region string) validation.RuleFunc {
	return func(value any) error {
		raw, _ := value.(string)
		if strings.TrimSpace(raw) == "" {
			return nil
		}
		num, err := phonenumbers.Parse(raw, region)
		if err != nil || !phonenumbers.IsValidNumber(num) {
			return errors.New("must be a valid phone number")
		}
		return nil
	}
}
