package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/config"

	awconfig "github.com/awaazlabs/awaaz/config"
	"github.com/awaazlabs/awaaz/internal/httputil"
	"github.com/awaazlabs/awaaz/internal/llm"
	"github.com/awaazlabs/awaaz/internal/server"
	"github.com/awaazlabs/awaaz/internal/speech/engine"
	"github.com/awaazlabs/awaaz/internal/speech/registry"
	"github.com/awaazlabs/awaaz/internal/store"
	"github.com/awaazlabs/awaaz/internal/transcode"
	"github.com/awaazlabs/awaaz/pkg/dialog"
	"github.com/awaazlabs/awaaz/pkg/events"
	"github.com/awaazlabs/awaaz/pkg/notify"
	notifyapi "github.com/awaazlabs/awaaz/pkg/notify/api"
	"github.com/awaazlabs/awaaz/pkg/prompt"
	"github.com/awaazlabs/awaaz/pkg/slots"

	// Speech backends register themselves by name.
	_ "github.com/awaazlabs/awaaz/internal/speech/backends/elevenlabs"
	_ "github.com/awaazlabs/awaaz/internal/speech/backends/openai"
	_ "github.com/awaazlabs/awaaz/internal/speech/backends/piper"
	_ "github.com/awaazlabs/awaaz/internal/speech/backends/whispercpp"
)

// storeRecorder narrows the medicine store to the id-returning append the
// dialogue controller wants.
type storeRecorder struct {
	store store.Store
}

func (r storeRecorder) Append(ctx context.Context, rec slots.Record) (string, error) {
	entry, err := r.store.Append(ctx, rec)
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

func main() {
	ctx := context.Background()

	cfg, err := config.LoadWithOIDC[awconfig.AwaazConfig](ctx)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	eventRef := cfg.GetEventsQueueName()
	eventURL := cfg.GetEventsQueueURL()

	needsDB := cfg.StoreBackend == "database" || cfg.WebhooksEnabled

	opts := []frame.Option{
		frame.WithConfig(&cfg),
		frame.WithName("awaaz"),
		frame.WithRegisterPublisher(eventRef, eventURL),
	}
	if needsDB {
		opts = append(opts, frame.WithDatastore())
	}

	ctx, srv := frame.NewService(opts...)
	defer srv.Stop(ctx)

	pool, err := srv.WorkManager().GetPool()
	if err != nil {
		log.Fatalf("getting worker pool: %v", err)
	}

	pub := events.NewPublisher(srv.QueueManager(), "awaaz", eventRef)

	// Prompt templates, with optional on-disk overrides.
	prompts := prompt.NewLibrary()
	if cfg.PromptDir != "" {
		if err := prompts.LoadDir(cfg.PromptDir); err != nil {
			log.Fatalf("loading prompt overrides: %v", err)
		}
		go func() {
			if err := prompts.WatchAndReload(cfg.PromptDir, ctx.Done()); err != nil {
				slog.WarnContext(ctx, "prompt watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	// Speech pipeline.
	transcoder := transcode.New(transcode.Config{
		Binary:  cfg.FFmpegBinary,
		TempDir: cfg.AudioTempDir,
	})

	backendCfg := cfg.SpeechBackendConfig()
	asrEngine, err := registry.ASR.Create(cfg.ASRBackend, backendCfg)
	if err != nil {
		log.Fatalf("creating ASR backend %q: %v", cfg.ASRBackend, err)
	}
	defer asrEngine.Close()

	ttsEngine, err := registry.TTS.Create(cfg.TTSBackend, backendCfg)
	if err != nil {
		log.Fatalf("creating TTS backend %q: %v", cfg.TTSBackend, err)
	}
	defer ttsEngine.Close()

	// Completion service.
	completer := llm.New(llm.Config{
		BaseURL: cfg.OllamaURL,
		Model:   cfg.OllamaModel,
		Timeout: time.Duration(cfg.OllamaTimeoutSec) * time.Second,
	})

	// Medicine log.
	var medicines store.Store
	if cfg.StoreBackend == "database" {
		medicines = store.NewDBStore(srv.DatastoreManager().GetPool(ctx, "__default__pool_name__"))
	} else {
		medicines = store.NewMemoryStore()
	}

	// Dialogue engine.
	sessions := dialog.NewSessionStore(time.Duration(cfg.SessionTTLMin) * time.Minute)
	sessions.StartReaper(ctx, time.Minute)

	controller := dialog.NewController(
		transcoder,
		engine.BatchTranscriber{Engine: asrEngine},
		completer,
		storeRecorder{store: medicines},
		prompts,
		sessions,
		pub,
	)

	mux := http.NewServeMux()
	server.NewHandler(controller, ttsEngine, medicines, completer, pub).RegisterRoutes(mux)

	initOpts := []frame.Option{
		frame.WithHTTPHandler(httputil.H2CHandler(mux)),
	}

	if cfg.WebhooksEnabled {
		whRepo := notify.NewRepository(srv.DatastoreManager().GetPool(ctx, "__default__pool_name__"))
		whDeliverer := notify.NewDeliverer(whRepo, notify.DelivererConfig{
			MaxRetries:        cfg.WebhookMaxRetries,
			TimeoutSec:        cfg.WebhookTimeoutSec,
			BackoffInitialSec: cfg.WebhookBackoffSec,
			BackoffMaxSec:     cfg.WebhookBackoffMax,
			CBFailThreshold:   cfg.CBFailThreshold,
			CBResetTimeoutSec: cfg.CBResetTimeoutSec,
		}, pool)
		whSubscriber := &notify.Subscriber{
			Repo:      whRepo,
			Deliverer: whDeliverer,
			Pool:      pool,
		}
		notifyapi.NewHandler(whRepo, pub).RegisterRoutes(mux)
		initOpts = append(initOpts,
			frame.WithRegisterSubscriber(eventRef+".webhooks", eventURL, whSubscriber))
	}

	srv.Init(ctx, initOpts...)

	if !completer.Healthy(ctx) {
		slog.WarnContext(ctx, "completion service unreachable at startup",
			slog.String("url", cfg.OllamaURL))
	}

	if err := srv.Run(ctx, ""); err != nil {
		log.Fatalf("service exited: %v", err)
	}
}
