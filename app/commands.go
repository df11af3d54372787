package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"todo-ai/app/config"
	"todo-ai/app/controllers"
	"todo-ai/app/extraction"
	"todo-ai/app/metrics"
	"todo-ai/app/routes"
	"todo-ai/app/services"
)

const shutdownTimeout = 10 * time.Second

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API.

Examples:
  # Run with defaults and environment overrides
  TODO_LLM_API_KEY=sk-... todo-ai serve

  # Run with a config file
  todo-ai serve --config config.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// extractCmd prints the tasks found in text without storing them
var extractCmd = &cobra.Command{
	Use:   "extract [text...]",
	Short: "Extract tasks from text and print them as JSON",
	Long: `Extract tasks from text and print them as JSON. Nothing is stored.

Examples:
  todo-ai extract "buy milk, then call mom"
  echo "buy milk" | todo-ai extract`,
	RunE: runExtract,
}

// runServe handles the serve command
func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize Neo4j connection
	driver, err := config.InitNeo4j(cfg.Neo4j)
	if err != nil {
		return fmt.Errorf("failed to initialize Neo4j connection: %w", err)
	}
	defer driver.Close(context.Background())

	if err := driver.VerifyConnectivity(ctx); err != nil {
		logger.Warn("neo4j not reachable at startup", zap.String("uri", cfg.Neo4j.URI), zap.Error(err))
	}

	taskService := services.NewTaskService(driver, cfg.Neo4j.Database)
	if err := taskService.EnsureSchema(ctx); err != nil {
		logger.Warn("failed to ensure schema", zap.Error(err))
	}

	engine, err := newEngine(cfg, logger, m)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Storage.AttachmentsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create attachments dir: %w", err)
	}
	attachments := services.NewAttachmentService(
		afero.NewBasePathFs(afero.NewOsFs(), cfg.Storage.AttachmentsDir),
		cfg.Server.PublicURL,
		cfg.Storage.MaxUploadBytes,
	)

	ingestService := services.NewIngestService(engine, taskService, logger, m)

	router := mux.NewRouter()
	routes.RegisterRoutes(router, routes.Handlers{
		Tasks:       controllers.NewTaskController(taskService, attachments, m, logger),
		Ingest:      controllers.NewIngestController(ingestService),
		Attachments: attachments.Handler(),
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server is running", zap.String("addr", cfg.Server.Addr), zap.String("model", cfg.LLM.Model))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// runExtract handles the extract command
func runExtract(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
		text = string(content)
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("no text to extract from")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	engine, err := newEngine(cfg, logger, nil)
	if err != nil {
		return err
	}
	items, err := engine.Extract(cmd.Context(), text)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string][]string{"items": items})
}

func newEngine(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*extraction.Engine, error) {
	model, err := config.InitModel(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize language model: %w", err)
	}
	return extraction.NewEngine(model, cfg.LLM.ExtractionOptions(), logger, m)
}
