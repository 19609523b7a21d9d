package video

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"clearmark/internal/domain"
	"clearmark/internal/infra"
)

const (
	// continuationPrompt seeds the generation from the cleaned frame without
	// steering the content.
	continuationPrompt = "Continue this scene as a natural video. Keep the style, lighting and subject of the seed image."

	resolutionPreset = "720p"

	aspectLandscape = "16:9"
	aspectPortrait  = "9:16"
)

// Jobs is the slice of the Gemini client the generator depends on.
type Jobs interface {
	SubmitVideo(ctx context.Context, seed domain.EncodedImage, prompt, aspectRatio, resolution string) (domain.GenerationJob, error)
	PollOperation(ctx context.Context, name string) (domain.GenerationJob, error)
	Download(ctx context.Context, uri string) ([]byte, error)
}

// Options tunes the polling loop. Zero values take the production defaults.
type Options struct {
	// PollInterval is the fixed suspension between status queries.
	PollInterval time.Duration
	// MaxPollAttempts bounds the loop; exceeding it is ErrPollTimeout.
	MaxPollAttempts int
	Logger          *infra.Logger
}

// Generator submits a seed image to the asynchronous video generation job,
// polls it to completion and downloads the resulting binary video.
type Generator struct {
	jobs         Jobs
	pollInterval time.Duration
	maxAttempts  int
	logger       *infra.Logger
}

func NewGenerator(jobs Jobs, opts Options) *Generator {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	attempts := opts.MaxPollAttempts
	if attempts <= 0 {
		attempts = 90
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Generator{
		jobs:         jobs,
		pollInterval: interval,
		maxAttempts:  attempts,
		logger:       logger,
	}
}

// AspectRatioFor classifies frame dimensions into one of the two presets the
// remote service accepts. Wider than tall is landscape; everything else,
// square included, is portrait. Exact custom ratios are not supported.
func AspectRatioFor(dims domain.FrameDimensions) string {
	if dims.Height > 0 && dims.Width > dims.Height {
		return aspectLandscape
	}
	return aspectPortrait
}

// Generate runs the full submit/poll/download sequence. It returns the raw
// video bytes, or nil with an error describing which step failed.
func (g *Generator) Generate(ctx context.Context, seed domain.EncodedImage, dims domain.FrameDimensions) ([]byte, error) {
	aspect := AspectRatioFor(dims)

	job, err := g.jobs.SubmitVideo(ctx, seed, continuationPrompt, aspect, resolutionPreset)
	if err != nil {
		return nil, fmt.Errorf("submit generation: %w", err)
	}

	g.logger.Info().
		Str("operation", job.Name).
		Str("aspect_ratio", aspect).
		Msg("video generation submitted")

	job, err = g.waitForCompletion(ctx, job)
	if err != nil {
		return nil, err
	}

	if job.Error != "" {
		return nil, fmt.Errorf("generation failed: %s", job.Error)
	}
	if job.ResultURI == "" {
		return nil, domain.ErrMissingResult
	}

	blob, err := g.jobs.Download(ctx, job.ResultURI)
	if err != nil {
		return nil, err
	}

	g.logger.Info().
		Str("operation", job.Name).
		Int("bytes", len(blob)).
		Msg("video generation downloaded")

	return blob, nil
}

// waitForCompletion polls the operation at a fixed interval until it reports
// done. The loop never queries again after a done answer and gives up with
// ErrPollTimeout once the attempt limit is spent.
func (g *Generator) waitForCompletion(ctx context.Context, job domain.GenerationJob) (domain.GenerationJob, error) {
	for attempt := 0; !job.Done; attempt++ {
		if attempt >= g.maxAttempts {
			return domain.GenerationJob{}, fmt.Errorf("%w after %d attempts", domain.ErrPollTimeout, attempt)
		}

		select {
		case <-ctx.Done():
			return domain.GenerationJob{}, ctx.Err()
		case <-time.After(g.pollInterval):
		}

		polled, err := g.jobs.PollOperation(ctx, job.Name)
		if err != nil {
			return domain.GenerationJob{}, fmt.Errorf("poll generation: %w", err)
		}
		if polled.Name == "" {
			polled.Name = job.Name
		}
		job = polled

		g.logger.Debug().
			Str("operation", job.Name).
			Bool("done", job.Done).
			Int("attempt", attempt+1).
			Msg("video generation polled")
	}
	return job, nil
}
