package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	dispatchx "github.com/nguyentrungtung/sitebuilder-agent/agent/dispatch"
	llmx "github.com/nguyentrungtung/sitebuilder-agent/agent/llm"
	memoryx "github.com/nguyentrungtung/sitebuilder-agent/agent/memory"
	promptx "github.com/nguyentrungtung/sitebuilder-agent/agent/prompt"
	routerx "github.com/nguyentrungtung/sitebuilder-agent/agent/router"
	toolx "github.com/nguyentrungtung/sitebuilder-agent/agent/tool"
	workflowx "github.com/nguyentrungtung/sitebuilder-agent/agent/workflow"
	configx "github.com/nguyentrungtung/sitebuilder-agent/pkg/config"
	logx "github.com/nguyentrungtung/sitebuilder-agent/pkg/logger"
	openrouterx "github.com/nguyentrungtung/sitebuilder-agent/pkg/openrouter"
	sitebuilderx "github.com/nguyentrungtung/sitebuilder-agent/pkg/sitebuilder"
	"github.com/nguyentrungtung/sitebuilder-agent/server"
)

type AppConfig struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" split_words:"true" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

func main() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))

	appCfg := configx.MustNew[AppConfig]("")

	platform := sitebuilderx.MustNew(*configx.MustNew[sitebuilderx.Config]("SITEBUILDER"))

	registry, err := toolx.NewRegistry(
		toolx.NewTemplatesTool(platform, log.Logger),
		toolx.NewPricingTool(platform, log.Logger),
		toolx.NewWebsiteCreationTool(platform, log.Logger),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build tool registry")
	}

	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	openRouterClient := openrouterx.NewClient(*openRouterCfg)
	if openRouterClient == nil {
		log.Fatal().Msg("failed to initialize openrouter client")
	}

	completer, err := llmx.New(openRouterClient, registry, llmx.Config{
		Model:               openRouterCfg.Model,
		Temperature:         openRouterCfg.Temperature,
		MaxCompletionTokens: openRouterCfg.MaxCompletionToken,
	}, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build llm client")
	}

	gateway := memoryx.NewGateway(buildHistoryStore(), buildSemanticStore(), log.Logger)

	prompts := promptx.NewBuilder()

	agentRouter, err := routerx.New(completer, prompts, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	consulting, err := workflowx.NewConsulting(registry, completer, prompts, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build consulting workflow")
	}

	orchestration, err := workflowx.NewOrchestration(completer, gateway, prompts, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build orchestration workflow")
	}

	dispatcher, err := dispatchx.New(agentRouter, consulting, orchestration, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build dispatcher")
	}

	srv := &http.Server{
		Addr:    appCfg.HTTPAddr,
		Handler: server.NewHandler(dispatcher, gateway, log.Logger),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	log.Info().Str("addr", appCfg.HTTPAddr).Msg("starting sitebuilder agent")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server stopped")
}

// buildHistoryStore wires the Postgres history store when a DSN is configured.
// Without one the gateway runs with history disabled.
func buildHistoryStore() memoryx.HistoryStore {
	cfg := configx.MustNew[memoryx.PostgresConfig]("POSTGRES")
	if strings.TrimSpace(cfg.DSN) == "" {
		log.Warn().Msg("postgres dsn not configured, conversation history disabled")
		return nil
	}

	db, err := memoryx.OpenPostgres(*cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open postgres")
	}

	store := memoryx.NewBunHistoryStore(db)
	if err := store.EnsureSchema(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure conversation history schema")
	}
	return store
}

// buildSemanticStore wires the Upstash vector store when configured. Without
// one the gateway falls back to relational history for context.
func buildSemanticStore() memoryx.SemanticStore {
	cfg := configx.MustNew[memoryx.UpstashVectorConfig]("UPSTASH_VECTOR")
	if strings.TrimSpace(cfg.URL) == "" {
		log.Warn().Msg("upstash vector url not configured, semantic retrieval disabled")
		return nil
	}

	store, err := memoryx.NewUpstashVectorStore(*cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build upstash vector store")
	}
	return store
}
