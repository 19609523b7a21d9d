package image

import (
	"context"
	"errors"
	"fmt"

	"clearmark/internal/domain"
)

// removeInstruction is the fixed edit intent sent with every request.
const removeInstruction = "Remove the watermark from this image. Keep everything else exactly the same and return only the edited image."

// Editor is the slice of the Gemini client the cleaner depends on.
type Editor interface {
	EditImage(ctx context.Context, image domain.EncodedImage, instruction string) ([]domain.EncodedImage, error)
}

// Cleaner removes watermarks from single images through a remote edit model.
type Cleaner struct {
	editor Editor
}

func NewCleaner(editor Editor) *Cleaner {
	return &Cleaner{editor: editor}
}

// RemoveWatermark sends the image for editing and returns the first image
// part of the response. A response without any image part yields (nil, nil):
// the service answered but produced nothing usable, which callers treat as a
// business failure rather than a crash. Missing credentials pass through
// untouched; every other failure wraps ErrImageProcessing with the cause kept
// for diagnostics.
func (c *Cleaner) RemoveWatermark(ctx context.Context, img domain.EncodedImage) (*domain.EncodedImage, error) {
	parts, err := c.editor.EditImage(ctx, img, removeInstruction)
	if err != nil {
		if isPassthrough(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrImageProcessing, err)
	}

	for _, part := range parts {
		if len(part.Data) > 0 {
			result := part
			if result.MIMEType == "" {
				result.MIMEType = img.MIMEType
			}
			return &result, nil
		}
	}
	return nil, nil
}

func isPassthrough(err error) bool {
	return errors.Is(err, domain.ErrMissingAPIKey) || errors.Is(err, domain.ErrInvalidCredential)
}
