package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey blocks every remote call until a credential is configured.
	ErrMissingAPIKey = errors.New("api key is not configured")

	// ErrUnsupportedMedia rejects files whose type does not match the active mode.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	ErrMediaDecode = errors.New("media decode failed")
	ErrFrameEncode = errors.New("frame encode failed")

	// ErrImageProcessing wraps remote edit failures and empty edit results.
	ErrImageProcessing = errors.New("image processing failed")

	// ErrInvalidCredential marks credentials the remote service rejected.
	// Retrying the same call cannot succeed; a new credential is needed.
	ErrInvalidCredential = errors.New("invalid or revoked credential")

	// ErrMissingResult is a done generation job that carries no result reference.
	ErrMissingResult = errors.New("generation finished without a result")

	ErrPollTimeout = errors.New("generation polling exceeded the attempt limit")
)

// DownloadError reports a non-success response while fetching a generated
// result. Status and Body are kept for diagnostics only.
type DownloadError struct {
	Status int
	Body   string
}

func (e *DownloadError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("result download failed with status %d", e.Status)
	}
	return fmt.Sprintf("result download failed with status %d: %s", e.Status, e.Body)
}
