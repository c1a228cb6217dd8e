// Package apiclient provides the main entry point for constructing dispatch
// clients with the default collaborators wired in.
package apiclient

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/antipasta/dispatch/internal/credstore"
	"github.com/antipasta/dispatch/internal/transport"
	"github.com/antipasta/dispatch/pkg/dispatch"
)

// Options carries the construction-time extras the engine config does not
// know about: the transport tuning and the optional credential file lookup.
type Options struct {
	// CredentialFile, when set together with an empty config credential,
	// is consulted once for the endpoint's host.
	CredentialFile string

	// Debug enables transport request/response logging.
	Debug bool

	// TransportOptions are applied to the default transport.
	TransportOptions []transport.Option
}

// New creates a dispatch client backed by the default HTTP transport. The
// endpoint is normalized (scheme added, trailing slash trimmed) and, when a
// credential file is configured and the config carries no credential, the
// stored credential for the endpoint's host is loaded.
func New(config *dispatch.Config, opts ...Options) (*dispatch.Client, error) {
	if config == nil {
		return nil, dispatch.ErrConfigRequired
	}

	if config.Endpoint == "" {
		return nil, dispatch.ErrEndpointRequired
	}

	var options Options
	if len(opts) > 0 {
		options = opts[0]
	}

	config.Endpoint = normalizeEndpoint(config.Endpoint)

	if config.Credential.IsNone() && options.CredentialFile != "" {
		host, err := endpointHost(config.Endpoint)
		if err != nil {
			return nil, err
		}

		cred, err := credstore.Lookup(options.CredentialFile, host)
		if err != nil {
			return nil, fmt.Errorf("loading stored credentials: %w", err)
		}

		config.Credential = cred
	}

	if config.Transport == nil {
		transportOpts := options.TransportOptions
		if options.Debug {
			transportOpts = append(transportOpts, transport.WithDebug(true))
		}

		if config.Logger != nil {
			transportOpts = append(transportOpts, transport.WithLogger(config.Logger))
		}

		config.Transport = transport.New(transportOpts...)
	}

	client, err := dispatch.New(config)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	return client, nil
}

// normalizeEndpoint trims a trailing slash and defaults the scheme to
// https.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSuffix(endpoint, "/")
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}

// endpointHost extracts the host component for credential lookup.
func endpointHost(endpoint string) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint: %w", err)
	}

	return parsed.Hostname(), nil
}
