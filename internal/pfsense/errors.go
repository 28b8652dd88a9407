package pfsense

import (
	apperrors "github.com/allisson/pfbackup/internal/errors"
)

var (
	// ErrCSRFTokenNotFound indicates the page did not embed a __csrf_magic token.
	ErrCSRFTokenNotFound = apperrors.Wrap(apperrors.ErrInvalidInput, "csrf token not found in page")

	// ErrLoginFailed indicates the firewall rejected the credentials.
	ErrLoginFailed = apperrors.Wrap(apperrors.ErrUnauthorized, "pfsense login failed")

	// ErrTimeout indicates a request to the firewall timed out.
	ErrTimeout = apperrors.Wrap(apperrors.ErrUnavailable, "pfsense request timed out")

	// ErrNoAttachment indicates the backup response carried no configuration file.
	ErrNoAttachment = apperrors.Wrap(apperrors.ErrInvalidInput, "backup response has no attachment")

	// ErrRestoreFailed indicates the firewall did not accept the uploaded configuration.
	ErrRestoreFailed = apperrors.Wrap(apperrors.ErrUnavailable, "pfsense restore failed")

	// ErrUnexpectedStatus indicates a non-2xx response.
	ErrUnexpectedStatus = apperrors.Wrap(apperrors.ErrUnavailable, "unexpected pfsense response status")
)
