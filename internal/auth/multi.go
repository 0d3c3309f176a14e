package auth

import (
	"errors"
	"net/http"
)

// MultiAuthenticator accepts whichever configured method the caller used.
// A method that finds no credentials defers to the next one; a method that
// finds bad credentials rejects the request.
type MultiAuthenticator struct {
	authenticators []Authenticator
}

// NewMultiAuthenticator tries authenticators in the given order.
func NewMultiAuthenticator(authenticators ...Authenticator) *MultiAuthenticator {
	return &MultiAuthenticator{authenticators: authenticators}
}

// Authenticate returns the first successful result.
func (a *MultiAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	for _, authenticator := range a.authenticators {
		info, err := authenticator.Authenticate(r)
		if err == nil {
			return info, nil
		}
		if !errors.Is(err, ErrUnauthenticated) {
			return nil, err
		}
	}

	return nil, ErrUnauthenticated
}

// Method returns the authentication method type.
func (a *MultiAuthenticator) Method() AuthMethod {
	return AuthMethodMulti
}
