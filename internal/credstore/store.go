// Package credstore reads and writes the local credential file. It is the
// credential-store collaborator: consulted once at client construction,
// never per call.
package credstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/antipasta/dispatch/internal/constants"
	"github.com/antipasta/dispatch/pkg/dispatch"
)

// Static errors for err113 compliance.
var (
	ErrHostNotFound        = errors.New("no credentials stored for host")
	ErrUnknownCredType     = errors.New("unknown credential type")
	ErrIncompleteBasicCred = errors.New("basic credentials require username and password")
	ErrIncompleteOAuthCred = errors.New("oauth credentials require all four token fields")
)

// hostEntry is the per-host credential record in the file.
type hostEntry struct {
	Type              string `mapstructure:"type"                yaml:"type"`
	Username          string `mapstructure:"username"            yaml:"username,omitempty"`
	Password          string `mapstructure:"password"            yaml:"password,omitempty"`
	ConsumerKey       string `mapstructure:"consumer_key"        yaml:"consumer_key,omitempty"`
	ConsumerSecret    string `mapstructure:"consumer_secret"     yaml:"consumer_secret,omitempty"`
	AccessToken       string `mapstructure:"access_token"        yaml:"access_token,omitempty"`
	AccessTokenSecret string `mapstructure:"access_token_secret" yaml:"access_token_secret,omitempty"`
}

// credentialFile is the full on-disk shape.
type credentialFile struct {
	Hosts map[string]hostEntry `mapstructure:"hosts" yaml:"hosts"`
}

// Lookup reads the credential stored for a host from the given file. The
// viper instance uses a "::" key delimiter so that hostnames, which contain
// dots, survive as single map keys.
func Lookup(path, host string) (dispatch.Credential, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return dispatch.Credential{}, fmt.Errorf("reading credential file: %w", err)
	}

	var file credentialFile
	if err := v.Unmarshal(&file); err != nil {
		return dispatch.Credential{}, fmt.Errorf("parsing credential file: %w", err)
	}

	entry, ok := file.Hosts[host]
	if !ok {
		return dispatch.Credential{}, fmt.Errorf("%w: %s", ErrHostNotFound, host)
	}

	return entry.credential()
}

// credential converts a file record into the engine credential union.
func (e hostEntry) credential() (dispatch.Credential, error) {
	switch e.Type {
	case "basic":
		if e.Username == "" || e.Password == "" {
			return dispatch.Credential{}, ErrIncompleteBasicCred
		}

		return dispatch.BasicCredential(e.Username, e.Password), nil

	case "oauth":
		if e.ConsumerKey == "" || e.ConsumerSecret == "" || e.AccessToken == "" || e.AccessTokenSecret == "" {
			return dispatch.Credential{}, ErrIncompleteOAuthCred
		}

		return dispatch.OAuthCredential(e.ConsumerKey, e.ConsumerSecret, e.AccessToken, e.AccessTokenSecret), nil

	case "none", "":
		return dispatch.Credential{}, nil

	default:
		return dispatch.Credential{}, fmt.Errorf("%w: %s", ErrUnknownCredType, e.Type)
	}
}

// Save writes or replaces the credential stored for a host, creating the
// file when absent. The file is written with owner-only permissions.
func Save(path, host string, cred dispatch.Credential) error {
	file := credentialFile{Hosts: map[string]hostEntry{}}

	if data, err := os.ReadFile(path); err == nil { // #nosec G304 -- path is operator-supplied configuration
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parsing existing credential file: %w", err)
		}

		if file.Hosts == nil {
			file.Hosts = map[string]hostEntry{}
		}
	}

	file.Hosts[host] = entryFromCredential(cred)

	if err := os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm); err != nil {
		return fmt.Errorf("creating credential directory: %w", err)
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("encoding credential file: %w", err)
	}

	if err := os.WriteFile(path, data, constants.ConfigFilePerm); err != nil {
		return fmt.Errorf("writing credential file: %w", err)
	}

	return nil
}

// entryFromCredential converts the engine credential union into its file
// record.
func entryFromCredential(cred dispatch.Credential) hostEntry {
	switch cred.Kind {
	case dispatch.CredentialBasic:
		return hostEntry{
			Type:     "basic",
			Username: cred.Username,
			Password: cred.Password,
		}
	case dispatch.CredentialOAuth:
		return hostEntry{
			Type:              "oauth",
			ConsumerKey:       cred.ConsumerKey,
			ConsumerSecret:    cred.ConsumerSecret,
			AccessToken:       cred.AccessToken,
			AccessTokenSecret: cred.AccessTokenSecret,
		}
	default:
		return hostEntry{Type: "none"}
	}
}
