package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/antipasta/dispatch/internal/constants"
)

// Config configures a dispatch client.
//
// Each cross-cutting behavior is independently optional: retry, response
// caching, inflation, and the wrapping error policy all default to off, and
// any subset may be enabled without affecting the others.
type Config struct {
	// Endpoint is the base URL all method paths are resolved against.
	Endpoint string

	// Registry supplies the method catalog. The engine performs no I/O to
	// obtain it; see internal/registryio for a YAML loader.
	Registry *Registry

	// Transport performs the network exchanges. See internal/transport
	// for the default implementation.
	Transport Transport

	// Credential is the initial authorization material. Replaceable later
	// via SetCredential.
	Credential Credential

	// WrapErrors selects the wrapping error policy: failed calls return
	// the no-result sentinel and record LastError instead of returning an
	// error. The wrapping policy is not safe under concurrent calls.
	WrapErrors bool

	// KeepStaleErrors leaves the last-error record in place after a
	// successful call. Only meaningful with WrapErrors.
	KeepStaleErrors bool

	// Retry enables bounded retry with backoff. Nil means one attempt.
	Retry *RetryPolicy

	// Inflator post-processes successful payloads. Nil means raw payloads.
	Inflator *Inflator

	// Cache, when set, stores successful GET payloads for CacheTTL.
	Cache    Cache
	CacheTTL time.Duration

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// Logger receives structured engine logs. Nil disables logging.
	Logger Logger
}

// Client is the generic method dispatcher: one Invoke entry point driven by
// the method registry, with the configured cross-cutting behaviors composed
// around each call.
//
// A client may be shared across goroutines with two documented exceptions:
// the credential is a single mutable slot (serialize SetCredential against
// in-flight calls), and the wrapping error policy's last-error record is
// overwritten by any concurrent call.
type Client struct {
	endpoint     string
	registry     *Registry
	transport    Transport
	credential   Credential
	policy       ErrorPolicy
	retry        *RetryPolicy
	inflator     *Inflator
	cache        Cache
	cacheTTL     time.Duration
	userAgent    string
	logger       Logger
	interceptors *InterceptorChain
}

// New builds a client from configuration.
func New(config *Config) (*Client, error) {
	if config == nil {
		return nil, ErrConfigRequired
	}

	if config.Endpoint == "" {
		return nil, ErrEndpointRequired
	}

	if config.Registry == nil {
		return nil, ErrRegistryRequired
	}

	if config.Transport == nil {
		return nil, ErrTransportRequired
	}

	var policy ErrorPolicy = ThrowingPolicy{}
	if config.WrapErrors {
		policy = &WrappingPolicy{KeepStaleOnSuccess: config.KeepStaleErrors}
	}

	cacheTTL := config.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = constants.DefaultCacheTTL
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = constants.DefaultUserAgent
	}

	return &Client{
		endpoint:     strings.TrimSuffix(config.Endpoint, "/"),
		registry:     config.Registry,
		transport:    config.Transport,
		credential:   config.Credential,
		policy:       policy,
		retry:        config.Retry,
		inflator:     config.Inflator,
		cache:        config.Cache,
		cacheTTL:     cacheTTL,
		userAgent:    userAgent,
		logger:       config.Logger,
		interceptors: NewInterceptorChain(),
	}, nil
}

// Registry returns the method catalog backing this client.
func (c *Client) Registry() *Registry {
	return c.registry
}

// Interceptors returns the interceptor chain run around each HTTP attempt.
func (c *Client) Interceptors() *InterceptorChain {
	return c.interceptors
}

// SetCredential replaces the client's authorization material. Callers must
// serialize this against in-flight calls; no internal locking is provided.
func (c *Client) SetCredential(cred Credential) {
	c.credential = cred
}

// LastError returns the most recent failure recorded by the wrapping error
// policy, or nil. It is only meaningful between issuing a call and issuing
// the next one on this client.
func (c *Client) LastError() *CallError {
	return c.policy.LastError()
}

// Invoke calls a method by name or alias. Arguments are positional in
// required-parameter order; when the final argument is an Args map (or a
// plain map) it is merged as the named set rather than consumed
// positionally.
//
// Under the throwing policy a failed call returns a *CallError; under the
// wrapping policy it returns (nil, nil) and records LastError. Binding
// errors are returned directly under either policy.
func (c *Client) Invoke(ctx context.Context, nameOrAlias string, args ...interface{}) (interface{}, error) {
	def, ok := c.registry.Lookup(nameOrAlias)
	if !ok {
		return nil, bindingErrorf(nameOrAlias, "unknown method")
	}

	bound, err := Bind(def, nameOrAlias, splitArguments(args))
	if err != nil {
		return nil, err
	}

	return c.execute(ctx, bound)
}

// FetchPage performs one step of a pagination loop: it merges the pager's
// current pagination arguments into the call, invokes the method, and
// advances the pager. Done is true when the protocol reports no further
// page. Under the wrapping policy a failed fetch returns (nil, true, nil)
// with the failure recorded in LastError.
func (c *Client) FetchPage(ctx context.Context, nameOrAlias string, pager Pager, extra Args) (interface{}, bool, error) {
	merged := extra.Clone()
	if merged == nil {
		merged = make(Args)
	}

	for key, value := range pager.PageArgs() {
		merged[key] = value
	}

	payload, err := c.Invoke(ctx, nameOrAlias, merged)
	if err != nil {
		return nil, true, err
	}

	if payload == nil {
		return nil, true, nil
	}

	done := pager.Advance(payload)

	return payload, done, nil
}

// splitArguments separates variadic call arguments into positional values
// and the trailing named set.
func splitArguments(args []interface{}) CallArguments {
	if len(args) == 0 {
		return CallArguments{}
	}

	switch named := args[len(args)-1].(type) {
	case Args:
		return CallArguments{Positional: args[:len(args)-1], Named: named}
	case map[string]interface{}:
		return CallArguments{Positional: args[:len(args)-1], Named: Args(named)}
	default:
		return CallArguments{Positional: args}
	}
}

// execute runs a bound call through the full pipeline: request build, auth
// decoration, cache, retry, and terminal error reporting.
func (c *Client) execute(ctx context.Context, bound *BoundCall) (interface{}, error) {
	if bound.Definition.Deprecated && !bound.Synthetics.Legacy && c.logger != nil {
		c.logger.Warn("invoking deprecated method", map[string]interface{}{
			"method": bound.Definition.Name,
		})
	}

	req, err := c.buildRequest(bound)
	if err != nil {
		return nil, err
	}

	if err := decorateRequest(req, c.credential, bound.Synthetics.Authenticate); err != nil {
		return nil, fmt.Errorf("decorating request: %w", err)
	}

	cacheKey := ""
	if c.cache != nil && req.Method == http.MethodGet {
		cacheKey = CacheKey(bound)
		if payload, ok := c.cachedPayload(ctx, cacheKey, bound); ok {
			return payload, nil
		}
	}

	var rawBody []byte

	attempt := func(ctx context.Context) *Outcome {
		outcome, body := c.attempt(ctx, req)
		rawBody = body

		return outcome
	}

	outcome := c.retry.Execute(ctx, attempt)

	if !outcome.OK() {
		return nil, c.policy.Failure(outcome.Failure)
	}

	if cacheKey != "" && len(rawBody) > 0 {
		entry := &CacheEntry{Data: rawBody, ExpiresAt: time.Now().Add(c.cacheTTL)}
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil && c.logger != nil {
			c.logger.Warn("caching response failed", map[string]interface{}{"error": err.Error()})
		}
	}

	payload := outcome.Payload
	if c.inflator != nil {
		payload = c.inflator.Inflate(bound.Definition.Name, payload)
	}

	c.policy.Success()

	return payload, nil
}

// attempt performs one HTTP exchange and classifies its result.
func (c *Client) attempt(ctx context.Context, req *Request) (*Outcome, []byte) {
	if err := c.interceptors.ExecuteRequestInterceptors(ctx, req); err != nil {
		return &Outcome{Failure: TransportFailure(err)}, nil
	}

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return &Outcome{Failure: TransportFailure(err)}, nil
	}

	if resp.StatusCode >= constants.HTTPStatusBadRequest {
		resp.Err = fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	if err := c.interceptors.ExecuteResponseInterceptors(ctx, req, resp); err != nil {
		return &Outcome{Failure: TransportFailure(err)}, nil
	}

	if resp.StatusCode >= constants.HTTPStatusBadRequest {
		return &Outcome{Failure: FailureFromResponse(resp)}, nil
	}

	payload, err := decodePayload(resp.Body)
	if err != nil {
		return &Outcome{Failure: &Failure{
			Classification: ClassPermanent,
			StatusCode:     resp.StatusCode,
			Message:        err.Error(),
			RawBody:        resp.Body,
		}}, nil
	}

	return &Outcome{Payload: payload}, resp.Body
}

// cachedPayload serves a prior successful payload when present.
func (c *Client) cachedPayload(ctx context.Context, key string, bound *BoundCall) (interface{}, bool) {
	entry, err := c.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}

	payload, err := decodePayload(entry.Data)
	if err != nil {
		return nil, false
	}

	if c.logger != nil {
		c.logger.Debug("cache hit", map[string]interface{}{"method": bound.Definition.Name})
	}

	if c.inflator != nil {
		payload = c.inflator.Inflate(bound.Definition.Name, payload)
	}

	c.policy.Success()

	return payload, true
}

// buildRequest renders a bound call into an outbound request: path template
// placeholders are substituted, and the remaining parameters travel as the
// query string for GET and DELETE or as a form body otherwise.
func (c *Client) buildRequest(bound *BoundCall) (*Request, error) {
	params := bound.Params.Clone()
	if params == nil {
		params = make(Args)
	}

	path, err := expandPath(bound, params)
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req := &Request{
		Method:  strings.ToUpper(bound.Definition.Verb),
		BaseURL: c.endpoint,
		Path:    path,
		Headers: make(http.Header),
	}

	values := url.Values{}
	for key, value := range params {
		values.Set(key, paramString(value))
	}

	switch req.Method {
	case http.MethodGet, http.MethodDelete:
		req.Query = values
	default:
		req.Form = values
	}

	req.Headers.Set("User-Agent", c.userAgent)
	req.Headers.Set("Accept", "application/json")

	if !bound.Synthetics.Since.IsZero() {
		req.Headers.Set("If-Modified-Since", bound.Synthetics.Since.UTC().Format(http.TimeFormat))
	}

	return req, nil
}

// pathParamPattern matches ":name" placeholders in a path template. The
// name is the identifier run after the colon; any trailing text such as a
// ".json" extension stays in the template.
var pathParamPattern = regexp.MustCompile(`:(\w+)`)

// expandPath substitutes ":name" placeholders from the bound parameters,
// consuming each substituted parameter.
func expandPath(bound *BoundCall, params Args) (string, error) {
	template := bound.Definition.PathTemplate
	if !strings.Contains(template, ":") {
		return template, nil
	}

	var missing error

	expanded := pathParamPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1:]

		value, ok := params[name]
		if !ok {
			if missing == nil {
				missing = bindingErrorf(bound.InvokedAs, "missing path parameter: %s", name)
			}

			return match
		}

		delete(params, name)

		return url.PathEscape(paramString(value))
	})

	if missing != nil {
		return "", missing
	}

	return expanded, nil
}

// paramString renders a parameter value for the wire.
func paramString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}

		return "false"
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// decodePayload decodes a JSON response body. Empty bodies yield a nil
// payload.
func decodePayload(body []byte) (interface{}, error) {
	if len(body) == 0 {
		return nil, nil
	}

	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding response payload: %w", err)
	}

	return payload, nil
}
