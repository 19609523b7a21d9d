package domain

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MediaKind enumerates the two supported upload categories.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// EncodedImage is an immutable encoded image payload passed between stages.
type EncodedImage struct {
	Data     []byte
	MIMEType string
}

// FrameDimensions holds the native pixel size of a video, derived once per
// asset and constant thereafter.
type FrameDimensions struct {
	Width  int
	Height int
}

var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

var videoMIMETypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
}

// MediaAsset is a user-selected source file plus the ephemeral working
// directory used for intermediate artifacts. The working directory plays the
// role of a preview handle: it must be released when the asset is replaced or
// the session resets, or temp directories accumulate for the process lifetime.
type MediaAsset struct {
	Path     string
	Name     string
	Kind     MediaKind
	MIMEType string

	workDir string
}

// NewMediaAsset validates that path names a readable file of the requested
// kind and allocates its working directory. A kind mismatch leaves no state
// behind.
func NewMediaAsset(path string, kind MediaKind) (*MediaAsset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat source file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsupportedMedia, path)
	}

	mime, err := mimeForKind(path, kind)
	if err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp("", "clearmark-*")
	if err != nil {
		return nil, fmt.Errorf("allocate working directory: %w", err)
	}

	return &MediaAsset{
		Path:     path,
		Name:     filepath.Base(path),
		Kind:     kind,
		MIMEType: mime,
		workDir:  workDir,
	}, nil
}

// WorkDir returns the asset's scratch directory for intermediate files.
func (a *MediaAsset) WorkDir() string {
	if a == nil {
		return ""
	}
	return a.workDir
}

// Release removes the working directory and everything in it. Safe to call
// more than once.
func (a *MediaAsset) Release() error {
	if a == nil || a.workDir == "" {
		return nil
	}
	dir := a.workDir
	a.workDir = ""
	return os.RemoveAll(dir)
}

// OutputName derives the download filename for this asset's result:
// watermark-removed-<original-name>, with the container extension forced to
// .mp4 for video results.
func (a *MediaAsset) OutputName() string {
	name := a.Name
	if a.Kind == MediaKindVideo {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		name = stem + ".mp4"
	}
	return "watermark-removed-" + name
}

func mimeForKind(path string, kind MediaKind) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch kind {
	case MediaKindImage:
		if mime, ok := imageMIMETypes[ext]; ok {
			return mime, nil
		}
	case MediaKindVideo:
		if mime, ok := videoMIMETypes[ext]; ok {
			return mime, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not a supported %s file", ErrUnsupportedMedia, filepath.Base(path), kind)
}
