package dispatch

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecorateRequest(t *testing.T) {
	boolPtr := func(v bool) *bool { return &v }

	tests := []struct {
		name       string
		cred       Credential
		override   *bool
		wantHeader bool
	}{
		{
			name:       "credential present attaches by default",
			cred:       BasicCredential("someone", "secret"),
			wantHeader: true,
		},
		{
			name:       "no credential attaches nothing",
			cred:       Credential{},
			wantHeader: false,
		},
		{
			name:       "forced off suppresses attachment",
			cred:       BasicCredential("someone", "secret"),
			override:   boolPtr(false),
			wantHeader: false,
		},
		{
			name:       "forced on with no credential stays silent",
			cred:       Credential{},
			override:   boolPtr(true),
			wantHeader: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &Request{
				Method:  "GET",
				BaseURL: "https://api.example.com",
				Path:    "/account/verify_credentials.json",
				Headers: make(http.Header),
			}

			err := decorateRequest(req, tt.cred, tt.override)
			require.NoError(t, err)

			if tt.wantHeader {
				assert.NotEmpty(t, req.Headers.Get("Authorization"))
			} else {
				assert.Empty(t, req.Headers.Get("Authorization"))
			}
		})
	}
}

func TestBasicAuth_Decorate(t *testing.T) {
	req := &Request{Method: "GET", Headers: make(http.Header)}

	err := basicAuth{}.Decorate(req, BasicCredential("someone", "secret"))
	require.NoError(t, err)

	// base64("someone:secret")
	assert.Equal(t, "Basic c29tZW9uZTpzZWNyZXQ=", req.Headers.Get("Authorization"))
}

func TestOAuthSigner_Decorate(t *testing.T) {
	signer := oauthSigner{
		nonce: func() (string, error) { return "fixednonce", nil },
		clock: func() time.Time { return time.Unix(1234567890, 0) },
	}

	cred := OAuthCredential("ckey", "csecret", "atoken", "asecret")

	t.Run("header carries all oauth parameters", func(t *testing.T) {
		req := &Request{
			Method:  "POST",
			BaseURL: "https://api.example.com/1.1",
			Path:    "/statuses/update.json",
			Form:    url.Values{"status": []string{"hello world"}},
			Headers: make(http.Header),
		}

		err := signer.Decorate(req, cred)
		require.NoError(t, err)

		header := req.Headers.Get("Authorization")
		assert.True(t, strings.HasPrefix(header, "OAuth "))
		assert.Contains(t, header, `oauth_consumer_key="ckey"`)
		assert.Contains(t, header, `oauth_token="atoken"`)
		assert.Contains(t, header, `oauth_nonce="fixednonce"`)
		assert.Contains(t, header, `oauth_timestamp="1234567890"`)
		assert.Contains(t, header, `oauth_signature_method="HMAC-SHA1"`)
		assert.Contains(t, header, `oauth_version="1.0"`)
		assert.Contains(t, header, "oauth_signature=")
	})

	t.Run("fixed inputs give a stable signature", func(t *testing.T) {
		build := func() *Request {
			return &Request{
				Method:  "GET",
				BaseURL: "https://api.example.com/1.1",
				Path:    "/statuses/home_timeline.json",
				Query:   url.Values{"count": []string{"10"}},
				Headers: make(http.Header),
			}
		}

		first := build()
		require.NoError(t, signer.Decorate(first, cred))

		second := build()
		require.NoError(t, signer.Decorate(second, cred))

		assert.Equal(t, first.Headers.Get("Authorization"), second.Headers.Get("Authorization"))
	})

	t.Run("signature covers the form body", func(t *testing.T) {
		withBody := &Request{
			Method:  "POST",
			BaseURL: "https://api.example.com/1.1",
			Path:    "/statuses/update.json",
			Form:    url.Values{"status": []string{"first"}},
			Headers: make(http.Header),
		}
		require.NoError(t, signer.Decorate(withBody, cred))

		otherBody := &Request{
			Method:  "POST",
			BaseURL: "https://api.example.com/1.1",
			Path:    "/statuses/update.json",
			Form:    url.Values{"status": []string{"second"}},
			Headers: make(http.Header),
		}
		require.NoError(t, signer.Decorate(otherBody, cred))

		assert.NotEqual(t, withBody.Headers.Get("Authorization"), otherBody.Headers.Get("Authorization"))
	})
}

func TestPercentEncode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"abcXYZ019", "abcXYZ019"},
		{"-._~", "-._~"},
		{"hello world", "hello%20world"},
		{"a+b", "a%2Bb"},
		{"100%", "100%25"},
		{"key=value&x", "key%3Dvalue%26x"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, percentEncode(tt.input))
		})
	}
}

func TestStrategyFor(t *testing.T) {
	assert.IsType(t, noAuth{}, strategyFor(Credential{}))
	assert.IsType(t, basicAuth{}, strategyFor(BasicCredential("u", "p")))
	assert.IsType(t, oauthSigner{}, strategyFor(OAuthCredential("a", "b", "c", "d")))
}
