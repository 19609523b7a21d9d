package video

import (
	"context"
	"errors"
	"testing"
	"time"

	"clearmark/internal/domain"
)

type stubJobs struct {
	submitJob  domain.GenerationJob
	submitErr  error
	pollSeq    []domain.GenerationJob
	pollErr    error
	pollCalls  int
	downloaded string
	blob       []byte
	dlErr      error
}

func (s *stubJobs) SubmitVideo(ctx context.Context, seed domain.EncodedImage, prompt, aspectRatio, resolution string) (domain.GenerationJob, error) {
	return s.submitJob, s.submitErr
}

func (s *stubJobs) PollOperation(ctx context.Context, name string) (domain.GenerationJob, error) {
	if s.pollErr != nil {
		return domain.GenerationJob{}, s.pollErr
	}
	idx := s.pollCalls
	s.pollCalls++
	if idx >= len(s.pollSeq) {
		idx = len(s.pollSeq) - 1
	}
	return s.pollSeq[idx], nil
}

func (s *stubJobs) Download(ctx context.Context, uri string) ([]byte, error) {
	s.downloaded = uri
	return s.blob, s.dlErr
}

func fastOptions() Options {
	return Options{PollInterval: time.Millisecond, MaxPollAttempts: 10}
}

func TestAspectRatioFor(t *testing.T) {
	cases := []struct {
		width, height int
		want          string
	}{
		{1920, 1080, "16:9"},
		{1080, 1920, "9:16"},
		{1024, 1024, "9:16"},
	}
	for _, tc := range cases {
		got := AspectRatioFor(domain.FrameDimensions{Width: tc.width, Height: tc.height})
		if got != tc.want {
			t.Errorf("AspectRatioFor(%dx%d) = %s, want %s", tc.width, tc.height, got, tc.want)
		}
	}
}

func TestGeneratePollsUntilDoneAndDownloads(t *testing.T) {
	jobs := &stubJobs{
		submitJob: domain.GenerationJob{Name: "operations/abc"},
		pollSeq: []domain.GenerationJob{
			{Name: "operations/abc"},
			{Name: "operations/abc"},
			{Name: "operations/abc", Done: true, ResultURI: "files/v.mp4"},
		},
		blob: []byte("video"),
	}
	gen := NewGenerator(jobs, fastOptions())

	blob, err := gen.Generate(context.Background(), domain.EncodedImage{Data: []byte{1}, MIMEType: "image/jpeg"}, domain.FrameDimensions{Width: 1920, Height: 1080})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(blob) != "video" {
		t.Fatalf("unexpected bytes: %q", blob)
	}
	if jobs.pollCalls != 3 {
		t.Fatalf("poll calls = %d, want 3 (never query after done)", jobs.pollCalls)
	}
	if jobs.downloaded != "files/v.mp4" {
		t.Fatalf("downloaded uri = %s", jobs.downloaded)
	}
}

func TestGenerateDoneWithoutResultIsMissingResult(t *testing.T) {
	jobs := &stubJobs{
		submitJob: domain.GenerationJob{Name: "operations/abc"},
		pollSeq:   []domain.GenerationJob{{Name: "operations/abc", Done: true}},
	}
	gen := NewGenerator(jobs, fastOptions())

	_, err := gen.Generate(context.Background(), domain.EncodedImage{}, domain.FrameDimensions{Width: 1, Height: 1})
	if !errors.Is(err, domain.ErrMissingResult) {
		t.Fatalf("expected ErrMissingResult, got %v", err)
	}
}

func TestGenerateSurfacesEmbeddedFailure(t *testing.T) {
	jobs := &stubJobs{
		submitJob: domain.GenerationJob{Name: "operations/abc"},
		pollSeq:   []domain.GenerationJob{{Name: "operations/abc", Done: true, Error: "safety block"}},
	}
	gen := NewGenerator(jobs, fastOptions())

	_, err := gen.Generate(context.Background(), domain.EncodedImage{}, domain.FrameDimensions{Width: 1, Height: 1})
	if err == nil || errors.Is(err, domain.ErrMissingResult) {
		t.Fatalf("embedded failure misreported: %v", err)
	}
	if jobs.downloaded != "" {
		t.Fatal("download must not run for a failed job")
	}
}

func TestGenerateInvalidCredentialFromSubmitAndPoll(t *testing.T) {
	gen := NewGenerator(&stubJobs{submitErr: domain.ErrInvalidCredential}, fastOptions())
	if _, err := gen.Generate(context.Background(), domain.EncodedImage{}, domain.FrameDimensions{Width: 1, Height: 2}); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("submit credential error lost: %v", err)
	}

	gen = NewGenerator(&stubJobs{
		submitJob: domain.GenerationJob{Name: "operations/abc"},
		pollErr:   domain.ErrInvalidCredential,
	}, fastOptions())
	if _, err := gen.Generate(context.Background(), domain.EncodedImage{}, domain.FrameDimensions{Width: 1, Height: 2}); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("poll credential error lost: %v", err)
	}
}

func TestGeneratePollTimeout(t *testing.T) {
	jobs := &stubJobs{
		submitJob: domain.GenerationJob{Name: "operations/abc"},
		pollSeq:   []domain.GenerationJob{{Name: "operations/abc"}},
	}
	gen := NewGenerator(jobs, Options{PollInterval: time.Millisecond, MaxPollAttempts: 3})

	_, err := gen.Generate(context.Background(), domain.EncodedImage{}, domain.FrameDimensions{Width: 1, Height: 2})
	if !errors.Is(err, domain.ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
	if jobs.pollCalls != 3 {
		t.Fatalf("poll calls = %d, want 3", jobs.pollCalls)
	}
}

func TestGenerateContextCancelStopsPolling(t *testing.T) {
	jobs := &stubJobs{
		submitJob: domain.GenerationJob{Name: "operations/abc"},
		pollSeq:   []domain.GenerationJob{{Name: "operations/abc"}},
	}
	gen := NewGenerator(jobs, Options{PollInterval: 50 * time.Millisecond, MaxPollAttempts: 100})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gen.Generate(ctx, domain.EncodedImage{}, domain.FrameDimensions{Width: 1, Height: 2})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if jobs.pollCalls != 0 {
		t.Fatalf("poll calls after cancel = %d, want 0", jobs.pollCalls)
	}
}

func TestGenerateDownloadErrorPropagates(t *testing.T) {
	jobs := &stubJobs{
		submitJob: domain.GenerationJob{Name: "operations/abc"},
		pollSeq:   []domain.GenerationJob{{Name: "operations/abc", Done: true, ResultURI: "files/v.mp4"}},
		dlErr:     &domain.DownloadError{Status: 500, Body: "boom"},
	}
	gen := NewGenerator(jobs, fastOptions())

	_, err := gen.Generate(context.Background(), domain.EncodedImage{}, domain.FrameDimensions{Width: 2, Height: 1})
	var dlErr *domain.DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("expected DownloadError, got %v", err)
	}
}
