package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"tikdex/answer"
	"tikdex/api"
	"tikdex/config"
	"tikdex/embedding"
	"tikdex/export"
	"tikdex/feed"
	"tikdex/media"
	"tikdex/pipeline"
	"tikdex/record"
	"tikdex/transcribe"
	"tikdex/vecindex"
)

const usage = `usage: tikdex <command> [flags]

commands:
  crawl    capture a creator's feed, embed data, and audio
  build    build the unified dataset and transcribe audio
  index    build the vector index from the unified dataset
  export   write the retrieval-ready rag/ tree
  serve    run the answer HTTP API
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cmd, args := os.Args[1], os.Args[2:]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to config file")
	profileFlag := fs.String("profile", "", "profile override (@handle, URL, or username)")
	verboseFlag := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *profileFlag != "" {
		cfg.Profile = *profileFlag
	}
	if *verboseFlag {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "crawl":
		err = runCrawl(ctx, cfg, logger)
	case "build":
		err = runBuild(ctx, cfg, logger)
	case "index":
		err = runIndex(ctx, cfg, logger)
	case "export":
		err = runExport(cfg, logger)
	case "serve":
		err = runServe(cfg, logger)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal("command failed", zap.String("command", cmd), zap.Error(err))
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zc.Build()
}

func storeFor(cfg *config.Config) *record.Store {
	prof := feed.NormalizeProfile(cfg.Profile)
	return record.NewStore(cfg.DataRoot, prof.Username)
}

func runCrawl(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	audio := media.NewAudioExtractor(logger)
	if !audio.Available() {
		return fmt.Errorf("ffmpeg not found on PATH")
	}

	crawler := pipeline.NewCrawler(
		feed.NewClient(logger),
		media.NewEmbedClient(logger),
		audio,
		cfg.DataRoot,
		feed.WalkerConfig{
			MaxPages:      cfg.Crawl.Walker.MaxPages,
			StallLimit:    cfg.Crawl.Walker.StallLimit,
			BackoffWindow: cfg.Crawl.Walker.BackoffWindowMs,
			FloorCursor:   cfg.Crawl.Walker.FloorCursorMs,
		},
		logger,
	)

	res, err := crawler.Run(ctx, cfg.Profile, pipeline.CrawlOptions{
		MaxVideos:     cfg.Crawl.MaxVideos,
		SkipExisting:  cfg.Crawl.SkipExisting,
		WriteCaptions: cfg.Crawl.WriteCaptions,
		Sleep:         cfg.CrawlSleep(),
		Resume:        cfg.Crawl.Resume,
	})
	if res != nil {
		logger.Info("crawl finished",
			zap.String("run_id", res.RunID),
			zap.Int("fetched", res.Fetched),
			zap.Int("total", res.Total))
	}
	return err
}

func runBuild(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	var transcriber transcribe.Transcriber
	if !cfg.Transcription.Disabled {
		keys, err := config.LoadKeys()
		if err != nil {
			return err
		}
		transcriber = transcribe.NewOpenAI(keys.OpenAI, cfg.Transcription.Model)
	}

	builder := pipeline.NewDatasetBuilder(transcriber, logger)
	res, err := builder.Run(ctx, storeFor(cfg), pipeline.DatasetOptions{
		NoTranscribe:      cfg.Transcription.Disabled,
		SkipExisting:      cfg.Transcription.SkipExisting,
		MaxTranscriptions: cfg.Transcription.Max,
		Sleep:             cfg.TranscriptionSleep(),
	})
	if err != nil {
		return err
	}
	logger.Info("dataset built",
		zap.Int("records", res.Records),
		zap.Int("transcribed", res.Transcribed),
		zap.Int("with_transcripts", res.Counts.Transcripts))
	return nil
}

func runIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	keys, err := config.LoadKeys()
	if err != nil {
		return err
	}

	embedder, err := embedding.NewOpenAI(keys.OpenAI, cfg.Embedding.Model)
	if err != nil {
		return err
	}
	builder := vecindex.NewBuilder(embedder, embedder.Model(), logger).
		WithBatchSize(cfg.Embedding.BatchSize)

	res, err := pipeline.BuildIndex(ctx, storeFor(cfg), builder, logger)
	if err != nil {
		return err
	}
	logger.Info("index written",
		zap.Int("documents", res.Documents),
		zap.Int("dim", res.Dim),
		zap.String("dir", res.Dir))
	return nil
}

func runExport(cfg *config.Config, logger *zap.Logger) error {
	return export.NewExporter(storeFor(cfg), logger).Export()
}

func runServe(cfg *config.Config, logger *zap.Logger) error {
	keys, err := config.LoadKeys()
	if err != nil {
		return err
	}

	embedder, err := embedding.NewOpenAI(keys.OpenAI, cfg.Embedding.Model)
	if err != nil {
		return err
	}
	svc := answer.NewService(
		storeFor(cfg),
		embedder,
		answer.NewRouter(keys.OpenAI, keys.Anthropic),
		logger,
	).WithDefaults(cfg.Answer.Model, cfg.Answer.TopK)
	return api.NewServer(svc, cfg.Server.Port, logger).Start()
}
