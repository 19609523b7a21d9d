package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clearmark/internal/domain"
	"clearmark/internal/i18n"
	"clearmark/internal/infra"
)

// Phase is the coarse position of a workflow run.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// Stage identifiers for the running phase.
const (
	StageExtracting   = "extracting-frame"
	StageRemovingMark = "removing-watermark"
	StageGenerating   = "generating-video"
)

// Result is the final output of a successful run.
type Result struct {
	Data       []byte
	MIMEType   string
	OutputName string
}

// State is the single value describing a workflow run. Transitions within one
// run are monotonic: idle → running(stage...) → succeeded|failed. Only an
// explicit Reset returns to idle.
type State struct {
	Phase  Phase
	Stage  string
	Output *Result
	Err    error
	// Message is the localized user-facing text for the current state.
	Message string
}

// FrameExtractor produces one still frame from a video asset.
type FrameExtractor interface {
	FirstFrame(ctx context.Context, asset *domain.MediaAsset) (domain.EncodedImage, domain.FrameDimensions, error)
}

// WatermarkRemover cleans a single image; nil result means the service
// returned nothing usable.
type WatermarkRemover interface {
	RemoveWatermark(ctx context.Context, img domain.EncodedImage) (*domain.EncodedImage, error)
}

// VideoGenerator turns a cleaned seed frame into binary video.
type VideoGenerator interface {
	Generate(ctx context.Context, seed domain.EncodedImage, dims domain.FrameDimensions) ([]byte, error)
}

// CredentialGate guards remote calls and tracks whether a usable credential
// has been selected.
type CredentialGate interface {
	GeminiAPIKey() (string, error)
	Selected() bool
	Invalidate()
}

// Options wires the orchestrator's collaborators.
type Options struct {
	Extractor   FrameExtractor
	Remover     WatermarkRemover
	Generator   VideoGenerator
	Credentials CredentialGate
	Logger      *infra.Logger
	Locale      string
	// OnState observes every committed state transition.
	OnState func(State)
}

// Orchestrator sequences the workflow stages and owns the WorkflowState and
// the asset's ephemeral resources.
type Orchestrator struct {
	extractor FrameExtractor
	remover   WatermarkRemover
	generator VideoGenerator
	creds     CredentialGate
	logger    *infra.Logger
	locale    string
	onState   func(State)

	mu    sync.Mutex
	state State
	asset *domain.MediaAsset
	runID string
}

func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	locale := i18n.ResolveLocale(opts.Locale)
	return &Orchestrator{
		extractor: opts.Extractor,
		remover:   opts.Remover,
		generator: opts.Generator,
		creds:     opts.Credentials,
		logger:    logger,
		locale:    locale,
		onState:   opts.OnState,
		state:     State{Phase: PhaseIdle},
	}
}

// State returns the current workflow state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Select validates and adopts a source file for the given mode, releasing any
// previously selected asset. A validation failure leaves the current
// selection untouched.
func (o *Orchestrator) Select(path string, kind domain.MediaKind) error {
	asset, err := domain.NewMediaAsset(path, kind)
	if err != nil {
		return err
	}

	o.mu.Lock()
	previous := o.asset
	o.asset = asset
	o.mu.Unlock()

	if previous != nil {
		if relErr := previous.Release(); relErr != nil {
			o.logger.Warn().Err(relErr).Msg("workflow: release replaced asset")
		}
	}
	return nil
}

// Run executes the workflow for the selected asset and returns the terminal
// state. Stages run strictly in sequence; the first failure aborts the rest.
// No remote call is issued until a credential is selected.
func (o *Orchestrator) Run(ctx context.Context) State {
	o.mu.Lock()
	if o.state.Phase == PhaseRunning {
		state := o.state
		o.mu.Unlock()
		return state
	}
	asset := o.asset
	runID := uuid.NewString()
	o.runID = runID
	o.mu.Unlock()

	if asset == nil {
		return o.fail(runID, fmt.Errorf("%w: no file selected", domain.ErrUnsupportedMedia))
	}

	key, err := o.creds.GeminiAPIKey()
	if err == nil && key == "" {
		err = domain.ErrMissingAPIKey
	}
	if err != nil || !o.creds.Selected() {
		if err == nil {
			err = domain.ErrMissingAPIKey
		}
		return o.fail(runID, err)
	}

	switch asset.Kind {
	case domain.MediaKindVideo:
		return o.runVideo(ctx, runID, asset)
	default:
		return o.runImage(ctx, runID, asset)
	}
}

func (o *Orchestrator) runImage(ctx context.Context, runID string, asset *domain.MediaAsset) State {
	o.transition(runID, StageRemovingMark, i18n.MsgStageRemovingMark)

	source, err := os.ReadFile(asset.Path)
	if err != nil {
		return o.fail(runID, fmt.Errorf("%w: %v", domain.ErrMediaDecode, err))
	}

	cleaned, err := o.remover.RemoveWatermark(ctx, domain.EncodedImage{Data: source, MIMEType: asset.MIMEType})
	if err != nil {
		return o.fail(runID, err)
	}
	if cleaned == nil {
		return o.fail(runID, fmt.Errorf("%w: service returned no image", domain.ErrImageProcessing))
	}

	return o.succeed(runID, &Result{
		Data:       cleaned.Data,
		MIMEType:   cleaned.MIMEType,
		OutputName: asset.OutputName(),
	})
}

func (o *Orchestrator) runVideo(ctx context.Context, runID string, asset *domain.MediaAsset) State {
	o.transition(runID, StageExtracting, i18n.MsgStageExtracting)

	frame, dims, err := o.extractor.FirstFrame(ctx, asset)
	if err != nil {
		return o.fail(runID, err)
	}

	o.transition(runID, StageRemovingMark, i18n.MsgStageRemovingMark)

	cleaned, err := o.remover.RemoveWatermark(ctx, frame)
	if err != nil {
		return o.fail(runID, err)
	}
	if cleaned == nil {
		return o.fail(runID, fmt.Errorf("%w: service returned no image", domain.ErrImageProcessing))
	}

	o.transition(runID, StageGenerating, i18n.MsgStageGenerating)

	blob, err := o.generator.Generate(ctx, *cleaned, dims)
	if err != nil {
		return o.fail(runID, err)
	}

	return o.succeed(runID, &Result{
		Data:       blob,
		MIMEType:   "video/mp4",
		OutputName: asset.OutputName(),
	})
}

// Reset unconditionally returns to idle, invalidating the active run so any
// in-flight remote result is discarded rather than committed, and releasing
// the asset's resources. Safe to call repeatedly.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.runID = ""
	asset := o.asset
	o.asset = nil
	o.state = State{Phase: PhaseIdle}
	onState := o.onState
	state := o.state
	o.mu.Unlock()

	if asset != nil {
		if err := asset.Release(); err != nil {
			o.logger.Warn().Err(err).Msg("workflow: release asset on reset")
		}
	}
	if onState != nil {
		onState(state)
	}
}

// transition commits a running(stage) state unless the run has been abandoned.
func (o *Orchestrator) transition(runID, stage, msgID string) {
	o.commit(runID, State{
		Phase:   PhaseRunning,
		Stage:   stage,
		Message: i18n.T(o.locale, msgID),
	})
}

func (o *Orchestrator) succeed(runID string, result *Result) State {
	o.logger.Info().Str("output", result.OutputName).Msg("workflow: succeeded")
	return o.commit(runID, State{
		Phase:   PhaseSucceeded,
		Output:  result,
		Message: i18n.T(o.locale, i18n.MsgSucceeded),
	})
}

func (o *Orchestrator) fail(runID string, err error) State {
	if errors.Is(err, domain.ErrInvalidCredential) {
		o.creds.Invalidate()
	}
	o.logger.Error().Err(err).Msg("workflow: failed")
	return o.commit(runID, State{
		Phase:   PhaseFailed,
		Err:     err,
		Message: i18n.T(o.locale, messageFor(err)),
	})
}

// commit applies a state transition only while runID is still the active run.
// A reset in between means the result arrived late and must be discarded.
func (o *Orchestrator) commit(runID string, state State) State {
	o.mu.Lock()
	if o.runID != runID {
		stale := o.state
		o.mu.Unlock()
		return stale
	}
	o.state = state
	onState := o.onState
	o.mu.Unlock()

	if onState != nil {
		onState(state)
	}
	return state
}

// messageFor maps the error taxonomy onto localized message identifiers.
func messageFor(err error) string {
	var dlErr *domain.DownloadError
	switch {
	case errors.Is(err, domain.ErrMissingAPIKey):
		return i18n.MsgErrMissingAPIKey
	case errors.Is(err, domain.ErrInvalidCredential):
		return i18n.MsgErrInvalidCredential
	case errors.Is(err, domain.ErrUnsupportedMedia):
		return i18n.MsgErrUnsupportedMedia
	case errors.Is(err, domain.ErrMediaDecode), errors.Is(err, domain.ErrFrameEncode):
		return i18n.MsgErrMediaDecode
	case errors.Is(err, domain.ErrImageProcessing):
		return i18n.MsgErrImageProcessing
	case errors.Is(err, domain.ErrMissingResult):
		return i18n.MsgErrMissingResult
	case errors.Is(err, domain.ErrPollTimeout):
		return i18n.MsgErrPollTimeout
	case errors.As(err, &dlErr):
		return i18n.MsgErrDownload
	default:
		return i18n.MsgErrGeneric
	}
}
