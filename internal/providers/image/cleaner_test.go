package image

import (
	"context"
	"errors"
	"testing"

	"clearmark/internal/domain"
)

type stubEditor struct {
	parts       []domain.EncodedImage
	err         error
	instruction string
}

func (s *stubEditor) EditImage(ctx context.Context, image domain.EncodedImage, instruction string) ([]domain.EncodedImage, error) {
	s.instruction = instruction
	return s.parts, s.err
}

func TestRemoveWatermarkPicksFirstImagePart(t *testing.T) {
	editor := &stubEditor{parts: []domain.EncodedImage{
		{Data: nil, MIMEType: "image/png"},
		{Data: []byte("first"), MIMEType: "image/png"},
		{Data: []byte("second"), MIMEType: "image/png"},
	}}
	cleaner := NewCleaner(editor)

	got, err := cleaner.RemoveWatermark(context.Background(), domain.EncodedImage{Data: []byte("src"), MIMEType: "image/png"})
	if err != nil {
		t.Fatalf("RemoveWatermark: %v", err)
	}
	if got == nil || string(got.Data) != "first" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if editor.instruction == "" {
		t.Fatal("edit instruction was not sent")
	}
}

func TestRemoveWatermarkNoImagePartIsExplicitNil(t *testing.T) {
	cleaner := NewCleaner(&stubEditor{parts: nil})

	got, err := cleaner.RemoveWatermark(context.Background(), domain.EncodedImage{Data: []byte("src"), MIMEType: "image/png"})
	if err != nil {
		t.Fatalf("no-result must not be an error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil result, got %+v", got)
	}
}

func TestRemoveWatermarkWrapsTransportErrors(t *testing.T) {
	cause := errors.New("connection reset")
	cleaner := NewCleaner(&stubEditor{err: cause})

	_, err := cleaner.RemoveWatermark(context.Background(), domain.EncodedImage{})
	if !errors.Is(err, domain.ErrImageProcessing) {
		t.Fatalf("expected ErrImageProcessing, got %v", err)
	}
}

func TestRemoveWatermarkPassesThroughCredentialErrors(t *testing.T) {
	cleaner := NewCleaner(&stubEditor{err: domain.ErrMissingAPIKey})
	if _, err := cleaner.RemoveWatermark(context.Background(), domain.EncodedImage{}); !errors.Is(err, domain.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}

	cleaner = NewCleaner(&stubEditor{err: domain.ErrInvalidCredential})
	if _, err := cleaner.RemoveWatermark(context.Background(), domain.EncodedImage{}); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestRemoveWatermarkInheritsSourceMIMEType(t *testing.T) {
	cleaner := NewCleaner(&stubEditor{parts: []domain.EncodedImage{{Data: []byte("x")}}})

	got, err := cleaner.RemoveWatermark(context.Background(), domain.EncodedImage{Data: []byte("src"), MIMEType: "image/webp"})
	if err != nil {
		t.Fatalf("RemoveWatermark: %v", err)
	}
	if got.MIMEType != "image/webp" {
		t.Fatalf("mime type = %s, want image/webp", got.MIMEType)
	}
}
