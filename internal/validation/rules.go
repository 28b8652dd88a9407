// Package validation provides custom validation rules for configuration values.
package validation

import (
	"net/url"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/pfbackup/internal/errors"
)

// WrapValidationError wraps validation errors as ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NotBlank rejects strings that are empty after trimming whitespace.
var NotBlank = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_not_blank_type", "must be a string")
	}
	if strings.TrimSpace(s) == "" {
		return validation.NewError("validation_not_blank", "cannot be blank")
	}
	return nil
})

// HTTPURL validates an absolute http or https URL with a host.
var HTTPURL = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_http_url_type", "must be a string")
	}
	if s == "" {
		return nil // Let Required handle empty strings
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return validation.NewError("validation_http_url", "must be an http or https URL, e.g. https://192.168.1.1")
	}
	return nil
})

// BucketSchemes lists the storage URL schemes the application registers drivers for.
var BucketSchemes = []string{"file", "mem", "s3", "gs", "azblob"}

// BucketURL validates a gocloud.dev blob URL with a registered scheme.
var BucketURL = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_bucket_url_type", "must be a string")
	}
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return validation.NewError("validation_bucket_url", "must be a valid URL")
	}
	for _, scheme := range BucketSchemes {
		if u.Scheme == scheme {
			return nil
		}
	}
	return validation.NewError(
		"validation_bucket_url_scheme",
		"scheme must be one of "+strings.Join(BucketSchemes, ", "),
	)
})
