package authclient

import (
	"context"
	"net/http"

	"github.com/goliatone/go-print"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-authclient/transport"
)

// Doer sends one request to the identity service
type Doer interface {
	Do(ctx context.Context, req transport.Request, out any) error
}

// NewTransport builds the cookie authenticated client described by cfg. Every
// 401 it receives, from any caller, is emitted on bus.
func NewTransport(cfg Config, bus *UnauthorizedBus, opts ...transport.Option) (*transport.Client, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}

	base := []transport.Option{
		transport.WithTimeout(cfg.GetRequestTimeout()),
	}
	if cfg.GetUseCookies() {
		base = append(base, transport.WithDefaultQuery("useCookies", "true"))
	}
	if bus != nil {
		base = append(base, transport.WithUnauthorizedHandler(bus.Emit))
	}

	return transport.New(cfg.GetBaseURL(), append(base, opts...)...)
}

// GatewayOption customizes the HTTP gateway
type GatewayOption func(*HTTPGateway)

// WithGatewayLogger overrides the logger
func WithGatewayLogger(logger Logger) GatewayOption {
	return func(g *HTTPGateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGatewayTracer overrides the tracer
func WithGatewayTracer(tracer trace.Tracer) GatewayOption {
	return func(g *HTTPGateway) {
		if tracer != nil {
			g.tracer = tracer
		}
	}
}

// HTTPGateway implements Gateway against an ASP.NET Identity style API
type HTTPGateway struct {
	client Doer
	cfg    Config
	logger Logger
	tracer trace.Tracer
}

var _ Gateway = (*HTTPGateway)(nil)

// NewHTTPGateway returns a gateway issuing requests through client
func NewHTTPGateway(client Doer, cfg Config, opts ...GatewayOption) *HTTPGateway {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}

	g := &HTTPGateway{
		client: client,
		cfg:    cfg,
		logger: defLogger{},
		tracer: otel.Tracer("github.com/goliatone/go-authclient"),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

type registerWire struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone"`
}

// Register creates an account. It never touches the session.
func (g *HTTPGateway) Register(ctx context.Context, req RegisterRequest) (err error) {
	ctx, end := g.start(ctx, "register")
	defer func() { end(err) }()

	g.logger.Debug("register payload: %s", print.MaybePrettyJSON(req.masked()))

	if err := req.ValidateWith(g.cfg); err != nil {
		return newValidationError(err)
	}

	phone, err := NormalizePhone(req.Phone, g.cfg.GetPhoneRegion())
	if err != nil {
		return newValidationError(err)
	}

	body := registerWire{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Phone:       phone,
	}

	if err := g.post(ctx, g.cfg.GetRoutes().Register, body); err != nil {
		respErr, ok := transport.AsResponseError(err)
		switch {
		case ok && respErr.Status == http.StatusConflict,
			ok && respErr.Status == http.StatusBadRequest && respErr.Problem.HasError("Duplicate"):
			return withDetails(ErrConflict, err, map[string]any{"email": req.Email})
		case ok && respErr.Status == http.StatusBadRequest:
			return remoteValidationError(err, respErr.Problem)
		}
		return g.transportError("register", err)
	}

	return nil
}

// Login establishes a session cookie. The caller must follow with Identity.
func (g *HTTPGateway) Login(ctx context.Context, req LoginRequest) (err error) {
	ctx, end := g.start(ctx, "login")
	defer func() { end(err) }()

	g.logger.Debug("login payload: %s", print.MaybePrettyJSON(req.masked()))

	if err := req.Validate(); err != nil {
		return newValidationError(err)
	}

	if err := g.post(ctx, g.cfg.GetRoutes().Login, req); err != nil {
		respErr, ok := transport.AsResponseError(err)
		switch {
		case ok && respErr.Status == http.StatusUnauthorized:
			return withDetails(ErrInvalidCredentials, err, nil)
		case ok && respErr.Status == http.StatusBadRequest:
			return remoteValidationError(err, respErr.Problem)
		}
		return g.transportError("login", err)
	}

	return nil
}

// Logout ends the remote session
func (g *HTTPGateway) Logout(ctx context.Context) (err error) {
	ctx, end := g.start(ctx, "logout")
	defer func() { end(err) }()

	if err := g.post(ctx, g.cfg.GetRoutes().Logout, struct{}{}); err != nil {
		return g.transportError("logout", err)
	}
	return nil
}

// Identity resolves the current identity. Every failure, including a
// malformed body, yields nil.
func (g *HTTPGateway) Identity(ctx context.Context) *Identity {
	ctx, end := g.start(ctx, "identity")

	identity := &Identity{}
	err := g.client.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   g.cfg.GetRoutes().Identity,
	}, identity)
	end(nil)

	if err != nil {
		g.logger.Debug("identity unavailable: %v", err)
		return nil
	}

	if !identity.Valid() {
		g.logger.Debug("identity response carried no id or email")
		return nil
	}

	return identity
}

// ForgotPassword asks the service to deliver a reset code
func (g *HTTPGateway) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (err error) {
	ctx, end := g.start(ctx, "forgot_password")
	defer func() { end(err) }()

	if err := req.Validate(); err != nil {
		return newValidationError(err)
	}

	if err := g.post(ctx, g.cfg.GetRoutes().ForgotPassword, req); err != nil {
		return g.transportError("forgot_password", err)
	}
	return nil
}

// ResetPassword sets a new password using a reset code
func (g *HTTPGateway) ResetPassword(ctx context.Context, req ResetPasswordRequest) (err error) {
	ctx, end := g.start(ctx, "reset_password")
	defer func() { end(err) }()

	g.logger.Debug("reset password payload: %s", print.MaybePrettyJSON(req.masked()))

	if err := req.Validate(); err != nil {
		return newValidationError(err)
	}

	if err := g.post(ctx, g.cfg.GetRoutes().ResetPassword, req); err != nil {
		respErr, ok := transport.AsResponseError(err)
		if ok && respErr.Status == http.StatusBadRequest {
			switch {
			case respErr.Problem.HasError("InvalidToken"):
				return withDetails(ErrInvalidCode, err, nil)
			case respErr.Problem.HasError("Password"):
				return withDetails(ErrWeakPassword, err, map[string]any{
					"fields": respErr.Problem.Fields(),
				})
			}
			return remoteValidationError(err, respErr.Problem)
		}
		return g.transportError("reset_password", err)
	}

	return nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, body any) error {
	return g.client.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	}, nil)
}

func (g *HTTPGateway) start(ctx context.Context, op string) (context.Context, func(error)) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := g.tracer.Start(ctx, "authclient."+op,
		trace.WithAttributes(attribute.String("authclient.operation", op)),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (g *HTTPGateway) transportError(op string, err error) error {
	meta := map[string]any{"operation": op}
	if status := transport.StatusOf(err); status != 0 {
		meta["status"] = status
	}
	g.logger.Debug("%s failed: %v", op, err)
	return withDetails(ErrTransport, err, meta)
}

func remoteValidationError(err error, problem *transport.Problem) error {
	fields := problem.Fields()
	if len(fields) == 0 {
		msg := err.Error()
		if problem != nil && problem.Title != "" {
			msg = problem.Title
		}
		fields = map[string]string{"form": msg}
	}
	return withDetails(ErrValidation, err, map[string]any{"fields": fields})
}
