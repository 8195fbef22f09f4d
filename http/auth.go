package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

const (
	// HeaderAPIKey is the header where clients can put their API key.
	HeaderAPIKey = "X-Api-Key"

	// QueryAPIKey is the query parameter where clients can put their API key
	// when they can't set headers, like browsers opening a websocket.
	QueryAPIKey = "api_key"

	ErrTypeUnauthorized = "unauthorized"
)

// APIKeys is a set of accepted API keys. An empty set accepts every request.
type APIKeys []string

// Verify returns an error when the request does not carry an accepted key.
func (k APIKeys) Verify(r *http.Request) error {
	if len(k) == 0 {
		return nil
	}

	key := apiKeyFromRequest(r)
	if key == "" {
		return errors.New("missing api key").WithType(ErrTypeUnauthorized)
	}

	for _, accepted := range k {
		if subtle.ConstantTimeCompare([]byte(key), []byte(accepted)) == 1 {
			return nil
		}
	}
	return errors.New("invalid api key").WithType(ErrTypeUnauthorized)
}

// VerifyAPIKey returns a websocket handshake that rejects connections without
// an accepted API key.
func VerifyAPIKey(keys APIKeys) func(*websocket.Config, *http.Request) error {
	return func(c *websocket.Config, r *http.Request) error {
		if err := keys.Verify(r); err != nil {
			logs.WithTag("remote_addr", r.RemoteAddr).Error(err)
			return err
		}

		return nil
	}
}

// VerifyAPIKeyHandler wraps the given handler and responds with a 401 status
// to requests without an accepted API key.
func VerifyAPIKeyHandler(keys APIKeys, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := keys.Verify(r); err != nil {
			logs.WithTag("remote_addr", r.RemoteAddr).Error(err)
			writeError(w, http.StatusUnauthorized, ErrTypeUnauthorized, err)
			return
		}

		next.ServeHTTP(w, r)
	}
}

func apiKeyFromRequest(r *http.Request) string {
	if key := r.Header.Get(HeaderAPIKey); key != "" {
		return key
	}

	if auth := r.Header.Get("Authorization"); auth != "" {
		if key, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(key)
		}
	}

	return r.URL.Query().Get(QueryAPIKey)
}
