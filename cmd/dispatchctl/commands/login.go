package commands

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/antipasta/dispatch/internal/credstore"
	"github.com/antipasta/dispatch/pkg/dispatch"
)

// Static errors for err113 compliance.
var (
	ErrLoginEndpointRequired = errors.New("API endpoint is required")
	ErrUnknownAuthType       = errors.New("auth type must be basic or oauth")
)

// NewLoginCommand creates the login command
func NewLoginCommand() *cobra.Command {
	var (
		authType string
		username string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store credentials for an endpoint",
		Long:  "Prompt for credentials and store them in the credential file, keyed by endpoint host",
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := viper.GetString("endpoint")
			if endpoint == "" {
				reader := bufio.NewReader(os.Stdin)
				fmt.Print("API endpoint: ")
				endpoint, _ = reader.ReadString('\n')
				endpoint = strings.TrimSpace(endpoint)
			}

			if endpoint == "" {
				return ErrLoginEndpointRequired
			}

			host, err := hostOf(endpoint)
			if err != nil {
				return err
			}

			cred, err := promptCredential(authType, username)
			if err != nil {
				return err
			}

			if err := credstore.Save(credentialFilePath(), host, cred); err != nil {
				return err
			}

			fmt.Printf("Credentials stored for %s\n", host)

			return nil
		},
	}

	cmd.Flags().StringVar(&authType, "type", "oauth", "credential type (basic, oauth)")
	cmd.Flags().StringVarP(&username, "username", "u", "", "username for basic credentials")

	return cmd
}

// promptCredential collects the credential fields interactively. Secrets
// are read without echo.
func promptCredential(authType, username string) (dispatch.Credential, error) {
	switch authType {
	case "basic":
		if username == "" {
			username = promptLine("Username: ")
		}

		password, err := promptSecret("Password: ")
		if err != nil {
			return dispatch.Credential{}, err
		}

		return dispatch.BasicCredential(username, password), nil

	case "oauth":
		consumerKey := promptLine("Consumer key: ")

		consumerSecret, err := promptSecret("Consumer secret: ")
		if err != nil {
			return dispatch.Credential{}, err
		}

		accessToken := promptLine("Access token: ")

		accessTokenSecret, err := promptSecret("Access token secret: ")
		if err != nil {
			return dispatch.Credential{}, err
		}

		return dispatch.OAuthCredential(consumerKey, consumerSecret, accessToken, accessTokenSecret), nil

	default:
		return dispatch.Credential{}, fmt.Errorf("%w: %s", ErrUnknownAuthType, authType)
	}
}

func promptLine(prompt string) string {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print(prompt)
	line, _ := reader.ReadString('\n')

	return strings.TrimSpace(line)
}

func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)

	secretBytes, err := term.ReadPassword(syscall.Stdin)

	fmt.Println()

	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}

	return strings.TrimSpace(string(secretBytes)), nil
}

func hostOf(endpoint string) (string, error) {
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint: %w", err)
	}

	return parsed.Hostname(), nil
}
