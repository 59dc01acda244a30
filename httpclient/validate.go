package httpclient

import (
	"errors"
	"net/url"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var errMissingHost = errors.New("url has no scheme or host")

// ValidateURL parses raw into an absolute URL.
//
// Empty strings, strings that do not parse, and URLs without both a scheme
// and a host are rejected with a KindInvalidURL *Error. Every Client
// operation runs this before touching the transport.
func ValidateURL(raw string) (*url.URL, error) {
	return validateURL("", raw)
}

func validateURL(op, raw string) (*url.URL, error) {
	if err := validate.Var(raw, "required,url"); err != nil {
		return nil, newInvalidURLError(op, raw, err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, newInvalidURLError(op, raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, newInvalidURLError(op, raw, errMissingHost)
	}

	return u, nil
}
