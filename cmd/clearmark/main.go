package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"clearmark/internal/domain"
	"clearmark/internal/i18n"
	"clearmark/internal/infra"
	"clearmark/internal/infra/credentials"
	"clearmark/internal/media"
	"clearmark/internal/providers/genai"
	"clearmark/internal/providers/image"
	"clearmark/internal/providers/video"
	"clearmark/internal/storage"
	"clearmark/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	outDir := flag.String("out", "", "directory for result files (default: OUTPUT_DIR or current directory)")
	locale := flag.String("locale", "", "message locale (default: LOCALE, then the process environment)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		usage()
		os.Exit(2)
	}

	mode, path := flag.Arg(0), flag.Arg(1)
	var kind domain.MediaKind
	switch mode {
	case "image":
		kind = domain.MediaKindImage
	case "video":
		kind = domain.MediaKindVideo
	default:
		usage()
		os.Exit(2)
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if *outDir == "" {
		*outDir = cfg.OutputDir
	}
	if *locale == "" {
		*locale = cfg.Locale
	}
	resolvedLocale := i18n.ResolveLocale(*locale)

	creds := credentials.NewStore(credentials.Options{FilePath: cfg.CredentialFile})
	apiKey, err := creds.GeminiAPIKey()
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve credential")
	}

	client, err := genai.NewClient(genai.Options{
		APIKey:     apiKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiModel,
		VideoModel: cfg.GeminiVideoModel,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("configure gemini client")
	}

	var extractor workflow.FrameExtractor
	if kind == domain.MediaKindVideo {
		ext, err := media.NewExtractor(&logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("configure frame extraction")
		}
		extractor = ext
	}

	orch := workflow.New(workflow.Options{
		Extractor: extractor,
		Remover:   image.NewCleaner(client),
		Generator: video.NewGenerator(client, video.Options{
			PollInterval:    cfg.PollInterval,
			MaxPollAttempts: cfg.MaxPollAttempts,
			Logger:          &logger,
		}),
		Credentials: creds,
		Logger:      &logger,
		Locale:      resolvedLocale,
		OnState: func(s workflow.State) {
			if s.Phase == workflow.PhaseRunning {
				fmt.Fprintln(os.Stderr, s.Message)
			}
		},
	})

	if err := orch.Select(path, kind); err != nil {
		fmt.Fprintln(os.Stderr, i18n.T(resolvedLocale, i18n.MsgErrUnsupportedMedia))
		logger.Error().Err(err).Msg("select source file")
		os.Exit(1)
	}
	defer orch.Reset()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state := orch.Run(ctx)
	if state.Phase != workflow.PhaseSucceeded {
		fmt.Fprintln(os.Stderr, state.Message)
		logger.Error().Err(state.Err).Msg("workflow failed")
		os.Exit(1)
	}

	store, err := storage.NewFileStore(*outDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure output directory")
	}
	written, err := store.Write(ctx, state.Output.OutputName, state.Output.Data)
	if err != nil {
		logger.Fatal().Err(err).Msg("write result")
	}

	fmt.Fprintln(os.Stderr, state.Message)
	fmt.Println(written)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: clearmark [flags] <mode> <file>

Modes:
  image   remove the watermark from an image file (png, jpeg, webp)
  video   extract the first frame, clean it, and generate a new video (mp4, mov, webm)

Flags:
`)
	flag.PrintDefaults()
}
