package auth

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader is the HTTP header name for API key authentication.
const APIKeyHeader = "X-API-Key"

// APIKeyCookie carries the key for browser sessions, where custom headers
// cannot be attached to form posts or WebSocket upgrades.
const APIKeyCookie = "pantry_api_key"

// APIKeyAuthenticator authenticates requests using a shared household key.
type APIKeyAuthenticator struct {
	keys map[string]string // key value -> key name
}

// NewAPIKeyAuthenticator parses "key1:name1,key2:name2".
func NewAPIKeyAuthenticator(keysConfig string) (*APIKeyAuthenticator, error) {
	keys, err := parsePairs("apikey", keysConfig)
	if err != nil {
		return nil, err
	}
	return &APIKeyAuthenticator{keys: keys}, nil
}

// Authenticate reads the key from the X-API-Key header, falling back to the
// pantry_api_key cookie, and compares it in constant time.
func (a *APIKeyAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	apiKey := r.Header.Get(APIKeyHeader)
	if apiKey == "" {
		if cookie, err := r.Cookie(APIKeyCookie); err == nil {
			apiKey = cookie.Value
		}
	}
	if apiKey == "" {
		return nil, ErrUnauthenticated
	}

	for key, name := range a.keys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
			return &AuthInfo{
				Method:  AuthMethodAPIKey,
				Subject: name,
			}, nil
		}
	}

	return nil, ErrInvalidAPIKey
}

// Method returns the authentication method type.
func (a *APIKeyAuthenticator) Method() AuthMethod {
	return AuthMethodAPIKey
}
