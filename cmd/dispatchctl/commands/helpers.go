package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/antipasta/dispatch/internal/registryio"
	"github.com/antipasta/dispatch/pkg/apiclient"
	"github.com/antipasta/dispatch/pkg/dispatch"
)

// Static errors for err113 compliance.
var (
	ErrEndpointRequired  = errors.New("endpoint is required (--endpoint or config)")
	ErrRegistryRequired  = errors.New("registry file is required (--registry or config)")
	ErrMalformedArgument = errors.New("arguments must be key=value pairs")
)

// createClient builds a dispatch client from the active CLI configuration.
func createClient() (*dispatch.Client, error) {
	endpoint := viper.GetString("endpoint")
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}

	registry, err := loadRegistry()
	if err != nil {
		return nil, err
	}

	config := &dispatch.Config{
		Endpoint: endpoint,
		Registry: registry,
	}

	if retryMax := viper.GetInt("retry-max"); retryMax > 0 {
		policy := dispatch.DefaultRetryPolicy()
		policy.MaxAttempts = retryMax
		config.Retry = policy
	}

	return apiclient.New(config, apiclient.Options{
		CredentialFile: credentialFilePath(),
		Debug:          viper.GetBool("verbose"),
	})
}

// loadRegistry reads the configured registry document.
func loadRegistry() (*dispatch.Registry, error) {
	path := viper.GetString("registry")
	if path == "" {
		return nil, ErrRegistryRequired
	}

	registry, err := registryio.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}

	return registry, nil
}

// credentialFilePath resolves the credential file location.
func credentialFilePath() string {
	if path := viper.GetString("credentials"); path != "" {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".dispatchctl", "credentials.yml")
}

// parseCallArgs converts key=value pairs into a named argument set. Values
// that parse as integers or booleans are passed through typed so numeric
// endpoint parameters keep their shape.
func parseCallArgs(pairs []string) (dispatch.Args, error) {
	args := make(dispatch.Args, len(pairs))

	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedArgument, pair)
		}

		args[key] = typedValue(value)
	}

	return args, nil
}

func typedValue(value string) interface{} {
	if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
		return parsed
	}

	if parsed, err := strconv.ParseBool(value); err == nil {
		return parsed
	}

	return value
}
