// Package auth provides optional household authentication for the pantry
// page and API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AuthMethod represents the authentication method used.
type AuthMethod string

const (
	// AuthMethodNone indicates no authentication.
	AuthMethodNone AuthMethod = "none"
	// AuthMethodBasic indicates HTTP Basic authentication.
	AuthMethodBasic AuthMethod = "basic"
	// AuthMethodAPIKey indicates API key authentication.
	AuthMethodAPIKey AuthMethod = "apikey"
	// AuthMethodMulti indicates multi-method authentication.
	AuthMethodMulti AuthMethod = "multi"
)

// Realm is announced in Basic challenges so browsers prompt for the pantry.
const Realm = "pantry"

// AuthInfo holds authenticated identity information.
type AuthInfo struct {
	Method  AuthMethod
	Subject string
}

// Authenticator validates a request and returns auth info.
type Authenticator interface {
	Authenticate(r *http.Request) (*AuthInfo, error)
	Method() AuthMethod
}

// Sentinel errors for authentication failures.
var (
	ErrUnauthenticated    = errors.New("unauthenticated: no credentials provided")
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type contextKey string

const authInfoKey contextKey = "auth_info"

// FromContext retrieves AuthInfo from the context.
func FromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(authInfoKey).(*AuthInfo)
	return info, ok
}

// WithAuthInfo stores AuthInfo in the context.
func WithAuthInfo(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authInfoKey, info)
}

// New builds the authenticator for mode. It returns nil for "none" or an
// empty mode, meaning every request is allowed.
func New(mode, basicUsers, apiKeys string) (Authenticator, error) {
	switch AuthMethod(mode) {
	case AuthMethodNone, "":
		return nil, nil
	case AuthMethodBasic:
		ba, err := NewBasicAuthenticator(basicUsers)
		if err != nil {
			return nil, err
		}
		return ba, nil
	case AuthMethodAPIKey:
		ak, err := NewAPIKeyAuthenticator(apiKeys)
		if err != nil {
			return nil, err
		}
		return ak, nil
	case AuthMethodMulti:
		var authenticators []Authenticator
		if basicUsers != "" {
			ba, err := NewBasicAuthenticator(basicUsers)
			if err != nil {
				return nil, err
			}
			authenticators = append(authenticators, ba)
		}
		if apiKeys != "" {
			ak, err := NewAPIKeyAuthenticator(apiKeys)
			if err != nil {
				return nil, err
			}
			authenticators = append(authenticators, ak)
		}
		if len(authenticators) == 0 {
			return nil, fmt.Errorf("multi auth mode requires at least one authenticator")
		}
		return NewMultiAuthenticator(authenticators...), nil
	default:
		return nil, fmt.Errorf("unknown auth mode: %s", mode)
	}
}

// parsePairs splits a "left:right,left:right" credential list. The split
// happens at the first colon of each entry.
func parsePairs(kind, config string) (map[string]string, error) {
	trimmed := strings.TrimSpace(config)
	if trimmed == "" {
		return nil, fmt.Errorf("%s auth: config must not be empty", kind)
	}

	pairs := make(map[string]string)
	for _, entry := range strings.Split(trimmed, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		left, right, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("%s auth: invalid entry format, expected a colon-separated pair", kind)
		}

		left = strings.TrimSpace(left)
		right = strings.TrimSpace(right)
		if left == "" || right == "" {
			return nil, fmt.Errorf("%s auth: both sides of an entry must be set", kind)
		}

		pairs[left] = right
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("%s auth: no valid entries found", kind)
	}

	return pairs, nil
}
