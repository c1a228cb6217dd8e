package dispatch

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Args is a set of named arguments for a method call.
type Args map[string]interface{}

// Clone returns a shallow copy of the argument set.
func (a Args) Clone() Args {
	if a == nil {
		return nil
	}

	out := make(Args, len(a))
	for k, v := range a {
		out[k] = v
	}

	return out
}

// CredentialKind discriminates the credential union.
type CredentialKind int

const (
	// CredentialNone means requests are sent without authorization material.
	CredentialNone CredentialKind = iota

	// CredentialBasic uses HTTP Basic authorization.
	CredentialBasic

	// CredentialOAuth uses OAuth 1.0a request signing.
	CredentialOAuth
)

// Credential is the authorization material owned by a client instance.
//
// A credential may be replaced via Client.SetCredential. No internal locking
// is provided; callers must serialize credential updates relative to
// in-flight calls.
type Credential struct {
	Kind CredentialKind

	// Basic
	Username string
	Password string

	// OAuth
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
}

// BasicCredential builds a Basic credential.
func BasicCredential(username, password string) Credential {
	return Credential{
		Kind:     CredentialBasic,
		Username: username,
		Password: password,
	}
}

// OAuthCredential builds an OAuth 1.0a credential.
func OAuthCredential(consumerKey, consumerSecret, accessToken, accessTokenSecret string) Credential {
	return Credential{
		Kind:              CredentialOAuth,
		ConsumerKey:       consumerKey,
		ConsumerSecret:    consumerSecret,
		AccessToken:       accessToken,
		AccessTokenSecret: accessTokenSecret,
	}
}

// IsNone reports whether no credential material is present.
func (c Credential) IsNone() bool {
	return c.Kind == CredentialNone
}

// Classification buckets a failed attempt for retry and reporting decisions.
type Classification int

const (
	// ClassTransient covers network failures, timeouts, and 5xx responses.
	// Eligible for retry.
	ClassTransient Classification = iota

	// ClassPermanent covers 4xx responses other than auth and rate limiting.
	// Never retried.
	ClassPermanent

	// ClassAuthRequired covers 401 responses. Never retried.
	ClassAuthRequired

	// ClassRateLimited covers 429 (and the legacy 420) responses.
	// Eligible for retry.
	ClassRateLimited
)

// String returns the classification name.
func (c Classification) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	case ClassAuthRequired:
		return "auth_required"
	case ClassRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Failure describes one failed HTTP attempt.
type Failure struct {
	Classification Classification
	StatusCode     int
	Message        string
	RawBody        []byte

	// Provider holds the provider's own error payload when it was parseable.
	Provider *ProviderError

	// RateLimitReset carries the provider-supplied reset hint for
	// rate-limited failures, when available.
	RateLimitReset time.Time
}

// Outcome is the result of executing a logical call attempt. Exactly one of
// Payload and Failure is meaningful.
type Outcome struct {
	Payload interface{}
	Failure *Failure
}

// OK reports whether the outcome is a success.
func (o *Outcome) OK() bool {
	return o.Failure == nil
}

// Request is an outbound request under construction. It is handed to the
// authentication strategy and request interceptors before being sent.
type Request struct {
	Method  string
	BaseURL string
	Path    string
	Query   url.Values
	Form    url.Values
	Headers http.Header

	// Metadata carries interceptor-private values across the request
	// lifecycle (timing marks and the like).
	Metadata map[string]interface{}
}

// URL returns the full request URL including the encoded query string.
func (r *Request) URL() string {
	u := r.BaseURL + r.Path
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}

	return u
}

// Response is a raw transport response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte

	// Err is set by response interceptors observing a failed exchange.
	Err error
}

// Transport performs exactly one network exchange. Connection failures and
// timeouts are returned as errors and classified as transient by the engine.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Logger is the minimal structured logging interface used by the engine and
// its collaborators.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}
