package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/publicsuffix"
)

const (
	// TracerName is used when no tracer is configured
	TracerName = "github.com/goliatone/go-authclient/transport"

	HeaderRequestID = "X-Request-ID"

	defaultTimeout = 15 * time.Second
	maxBodySize    = 1 << 20
)

// Request describes one outbound JSON call
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient uses a copy of hc as the underlying http client, so hc
// itself is never modified. The copy gets the client cookie jar when hc has
// none, and the WithTimeout value when one is given or hc has no timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
			c.timeoutSet = true
		}
	}
}

// WithCookieJar sets the jar holding the session cookie
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		if jar != nil {
			c.jar = jar
		}
	}
}

// WithUnauthorizedHandler registers fn to run whenever any call receives a
// 401. Handlers run synchronously, after the response body is closed.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) {
		if fn != nil {
			c.onUnauthorized = append(c.onUnauthorized, fn)
		}
	}
}

// WithDefaultQuery adds a query parameter to every request
func WithDefaultQuery(key, value string) Option {
	return func(c *Client) {
		c.defaultQuery.Set(key, value)
	}
}

// WithHeader adds a header to every request
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithTracer overrides the tracer used for client spans
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// Client is a cookie authenticated JSON client. Every response with status
// 401 is reported to the unauthorized handlers before the error is returned.
type Client struct {
	baseURL        *url.URL
	http           *http.Client
	jar            http.CookieJar
	timeout        time.Duration
	timeoutSet     bool
	defaultQuery   url.Values
	headers        http.Header
	tracer         trace.Tracer
	onUnauthorized []func()
}

// New returns a client rooted at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid base url").
			WithTextCode(TextCodeRequest)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, goerrors.New("base url must be absolute: "+baseURL, goerrors.CategoryBadInput).
			WithTextCode(TextCodeRequest)
	}

	c := &Client{
		baseURL:      u,
		timeout:      defaultTimeout,
		defaultQuery: url.Values{},
		headers:      http.Header{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "create cookie jar")
		}
		c.jar = jar
	}

	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	} else {
		hc := *c.http
		if c.timeoutSet || hc.Timeout == 0 {
			hc.Timeout = c.timeout
		}
		c.http = &hc
	}

	if c.http.Jar == nil {
		c.http.Jar = c.jar
	} else {
		c.jar = c.http.Jar
	}

	if c.tracer == nil {
		c.tracer = otel.Tracer(TracerName)
	}

	return c, nil
}

// BaseURL returns the service root
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Cookies returns the cookies the jar would send to the service
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.baseURL)
}

// Do sends req and decodes a 2xx JSON body into out when out is not nil.
func (c *Client) Do(ctx context.Context, req Request, out any) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx, span := c.tracer.Start(ctx, "HTTP "+method+" "+req.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(method),
			semconv.URLPath(req.Path),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	httpReq, err := c.newRequest(ctx, method, req)
	if err != nil {
		return err
	}

	requestID := httpReq.Header.Get(HeaderRequestID)
	span.SetAttributes(attribute.String("http.request.id", requestID))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		span.SetStatus(codes.Error, "request failed")
		return goerrors.Wrap(err, goerrors.CategoryOperation, "request failed: "+method+" "+req.Path).
			WithTextCode(TextCodeNetwork).
			WithMetadata(map[string]any{"request_id": requestID})
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	resp.Body.Close()

	span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		if resp.StatusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		}

		respErr := &ResponseError{
			Method:  method,
			Path:    req.Path,
			Status:  resp.StatusCode,
			Problem: decodeProblem(body),
		}

		if resp.StatusCode == http.StatusUnauthorized {
			c.notifyUnauthorized()
		}

		return newStatusError(respErr)
	}

	if readErr != nil {
		span.SetStatus(codes.Error, "read body")
		return goerrors.Wrap(readErr, goerrors.CategoryOperation, "read response body").
			WithTextCode(TextCodeNetwork)
	}

	if out == nil {
		return nil
	}

	if len(bytes.TrimSpace(body)) == 0 {
		span.SetStatus(codes.Error, "empty body")
		return goerrors.New("empty response body: "+method+" "+req.Path, goerrors.CategoryOperation).
			WithTextCode(TextCodeDecode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		span.SetStatus(codes.Error, "decode body")
		return goerrors.Wrap(err, goerrors.CategoryOperation, "decode response body: "+method+" "+req.Path).
			WithTextCode(TextCodeDecode)
	}

	return nil
}

func (c *Client) newRequest(ctx context.Context, method string, req Request) (*http.Request, error) {
	u := c.baseURL.JoinPath(req.Path)

	query := url.Values{}
	for key, values := range c.defaultQuery {
		query[key] = append([]string(nil), values...)
	}
	for key, values := range req.Query {
		query[key] = append([]string(nil), values...)
	}
	u.RawQuery = query.Encode()

	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "encode request body").
				WithTextCode(TextCodeRequest)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "build request").
			WithTextCode(TextCodeRequest)
	}

	for key, values := range c.headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get(HeaderRequestID) == "" {
		httpReq.Header.Set(HeaderRequestID, uuid.NewString())
	}

	return httpReq, nil
}

func (c *Client) notifyUnauthorized() {
	for _, fn := range c.onUnauthorized {
		fn()
	}
}

func decodeProblem(body []byte) *Problem {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	problem := &Problem{}
	if err := json.Unmarshal(body, problem); err != nil {
		return nil
	}
	return problem
}
