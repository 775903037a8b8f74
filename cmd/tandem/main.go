package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	tandem "github.com/tandem-ai/tandem"
	"github.com/tandem-ai/tandem/index"
	"github.com/tandem-ai/tandem/ingest"
	"github.com/tandem-ai/tandem/internal/config"
	"github.com/tandem-ai/tandem/internal/httpapi"
	"github.com/tandem-ai/tandem/observer"
	"github.com/tandem-ai/tandem/provider/azure"
	"github.com/tandem-ai/tandem/provider/ollama"
	"github.com/tandem-ai/tandem/provider/openaiembed"
	"github.com/tandem-ai/tandem/registry"
)

func main() {
	// 1. Load config. A .env file is optional; real env vars win.
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("TANDEM_CONFIG"))

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// 2. Observer (optional)
	var inst *observer.Instruments
	if cfg.Observer.Enabled {
		pricing := make(map[string]observer.ModelPricing, len(cfg.Observer.Pricing))
		for model, p := range cfg.Observer.Pricing {
			pricing[model] = observer.ModelPricing{InputPerMillion: p.Input, OutputPerMillion: p.Output}
		}
		var shutdown func(context.Context) error
		var err error
		inst, shutdown, err = observer.Init(context.Background(), pricing)
		if err != nil {
			log.Fatalf("observer init: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	// 3. Providers
	local, err := ollama.New(cfg.Local.Model,
		ollama.WithBaseURL(cfg.Local.BaseURL),
		ollama.WithMaxTokens(cfg.Local.MaxTokens),
		ollama.WithTemperature(cfg.Local.Temperature),
		ollama.WithLogger(logger),
	)
	if err != nil {
		log.Fatalf("local provider: %v", err)
	}

	var remote tandem.Provider
	if cfg.Azure.APIKey != "" {
		azureOpts := []azure.Option{
			azure.WithMaxTokens(cfg.Azure.MaxTokens),
			azure.WithTemperature(cfg.Azure.Temperature),
			azure.WithLogger(logger),
		}
		if cfg.Azure.APIVersion != "" {
			azureOpts = append(azureOpts, azure.WithAPIVersion(cfg.Azure.APIVersion))
		}
		remote, err = azure.New(cfg.Azure.APIKey, cfg.Azure.Endpoint, cfg.Azure.Deployment, azureOpts...)
		if err != nil {
			log.Fatalf("remote provider: %v", err)
		}
	} else {
		logger.Warn("no azure credentials; remote queries will fail over to an error result")
	}

	embOpts := []openaiembed.Option{openaiembed.WithLogger(logger)}
	if cfg.Embedding.BaseURL != "" {
		embOpts = append(embOpts, openaiembed.WithBaseURL(cfg.Embedding.BaseURL))
	}
	if cfg.Embedding.Dimensions > 0 {
		embOpts = append(embOpts, openaiembed.WithDimensions(cfg.Embedding.Dimensions))
	}
	var emb tandem.EmbeddingProvider
	emb, err = openaiembed.New(cfg.Embedding.APIKey, cfg.Embedding.Model, embOpts...)
	if err != nil {
		log.Fatalf("embedding provider: %v", err)
	}

	var localProv tandem.Provider = local
	if inst != nil {
		emb = observer.WrapEmbedding(emb, cfg.Embedding.Model, inst)
		localProv = observer.WrapProvider(local, cfg.Local.Model, inst)
		if remote != nil {
			remote = observer.WrapProvider(remote, cfg.Azure.Deployment, inst)
		}
	}

	// 4. Index + registry
	idx, err := index.Open(cfg.Index.Dir, emb, index.WithLogger(logger))
	if err != nil {
		log.Fatalf("open index: %v", err)
	}

	reg := registry.New(cfg.Registry.Path, registry.WithLogger(logger))
	if err := reg.Init(context.Background()); err != nil {
		log.Fatalf("init registry: %v", err)
	}
	defer reg.Close()

	// 5. Assistant
	assistant := tandem.NewAssistant(
		tandem.WithIndex(idx),
		tandem.WithRouter(tandem.NewRouter(tandem.WithWordLimit(cfg.Router.WordLimit))),
		tandem.WithDispatcher(tandem.NewDispatcher(localProv, remote, tandem.WithDispatchLogger(logger))),
		tandem.WithChunker(ingest.NewProcessor(
			ingest.WithChunkSize(cfg.Chunking.ChunkSize),
			ingest.WithOverlap(cfg.Chunking.Overlap),
		)),
		tandem.WithDocumentStore(reg),
		tandem.WithTopK(cfg.Index.TopK),
		tandem.WithLogger(logger),
	)

	// 6. HTTP server
	apiOpts := []httpapi.Option{httpapi.WithLogger(logger)}
	if inst != nil {
		apiOpts = append(apiOpts, httpapi.WithInstruments(inst))
	}
	api := httpapi.New(assistant, reg, apiOpts...)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "vectors", idx.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
