package domain

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestNewMediaAssetAcceptsMatchingKind(t *testing.T) {
	path := writeTempFile(t, "photo.png")
	asset, err := NewMediaAsset(path, MediaKindImage)
	if err != nil {
		t.Fatalf("NewMediaAsset: %v", err)
	}
	defer asset.Release()

	if asset.MIMEType != "image/png" {
		t.Fatalf("unexpected mime type: %s", asset.MIMEType)
	}
	if asset.Name != "photo.png" {
		t.Fatalf("unexpected name: %s", asset.Name)
	}
	if _, err := os.Stat(asset.WorkDir()); err != nil {
		t.Fatalf("work dir not created: %v", err)
	}
}

func TestNewMediaAssetRejectsKindMismatch(t *testing.T) {
	path := writeTempFile(t, "clip.mp4")
	_, err := NewMediaAsset(path, MediaKindImage)
	if !errors.Is(err, ErrUnsupportedMedia) {
		t.Fatalf("expected ErrUnsupportedMedia, got %v", err)
	}
}

func TestMediaAssetReleaseIsIdempotent(t *testing.T) {
	path := writeTempFile(t, "clip.webm")
	asset, err := NewMediaAsset(path, MediaKindVideo)
	if err != nil {
		t.Fatalf("NewMediaAsset: %v", err)
	}

	workDir := asset.WorkDir()
	if err := asset.Release(); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Fatalf("work dir still present after release")
	}
	if err := asset.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
	if asset.WorkDir() != "" {
		t.Fatalf("work dir handle not cleared")
	}
}

func TestOutputNameTemplates(t *testing.T) {
	imagePath := writeTempFile(t, "original.png")
	image, err := NewMediaAsset(imagePath, MediaKindImage)
	if err != nil {
		t.Fatalf("NewMediaAsset image: %v", err)
	}
	defer image.Release()
	if got := image.OutputName(); got != "watermark-removed-original.png" {
		t.Fatalf("image output name: %s", got)
	}

	videoPath := writeTempFile(t, "holiday.mov")
	video, err := NewMediaAsset(videoPath, MediaKindVideo)
	if err != nil {
		t.Fatalf("NewMediaAsset video: %v", err)
	}
	defer video.Release()
	if got := video.OutputName(); got != "watermark-removed-holiday.mp4" {
		t.Fatalf("video output name: %s", got)
	}
}

func TestGenerationJobUsable(t *testing.T) {
	if (GenerationJob{Done: true}).Usable() {
		t.Fatal("done job without result or error reported usable")
	}
	if !(GenerationJob{Done: true, ResultURI: "files/abc"}).Usable() {
		t.Fatal("done job with result not usable")
	}
	if !(GenerationJob{Done: true, Error: "safety block"}).Usable() {
		t.Fatal("done job with error not usable")
	}
	if (GenerationJob{ResultURI: "files/abc"}).Usable() {
		t.Fatal("pending job reported usable")
	}
}
