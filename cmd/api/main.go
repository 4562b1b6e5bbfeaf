package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/onkernel/docclassify/cmd/api/config"
	mw "github.com/onkernel/docclassify/lib/middleware"
	"github.com/riandyrn/otelchi"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application terminated", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration, flags take precedence over the environment
	cfg := config.Load()
	flags := pflag.NewFlagSet("docclassify", pflag.ContinueOnError)
	flags.StringVar(&cfg.Host, "host", cfg.Host, "address to listen on")
	flags.StringVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	app, cleanup, err := initializeApp(cfg)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer cleanup()

	logger := app.Logger
	checkOCRBinaries(app)

	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := mw.NoopHTTPMetrics()
	if app.Meter != nil {
		m, err := mw.NewHTTPMetrics(app.Meter)
		if err != nil {
			return fmt.Errorf("create http metrics: %w", err)
		}
		httpMetrics = m.Middleware
	}
	accessLogger := mw.NewAccessLogger(app.Otel.LogHandler)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(otelchi.Middleware(cfg.OtelServiceName, otelchi.WithChiRoutes(r)))
	r.Use(mw.InjectLogger(logger))
	r.Use(mw.AccessLogger(accessLogger))
	r.Use(httpMetrics)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	app.ApiService.Routes(r)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Error group for coordinated shutdown
	grp, gctx := errgroup.WithContext(ctx)

	// Run the server
	grp.Go(func() error {
		logger.Info("starting document classifier API", "addr", cfg.Addr(), "storage", cfg.StorageBackend, "ocr_engine", app.OCREngine.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			return err
		}
		return nil
	})

	// Shutdown handler
	grp.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown http server", "error", err)
			return err
		}

		logger.Info("http server shutdown complete")
		return nil
	})

	return grp.Wait()
}

// checkOCRBinaries warns about OCR tools that cannot run. The server still
// starts so /health stays reachable.
func checkOCRBinaries(app *application) {
	type availability interface {
		Available(ctx context.Context) bool
	}
	deps := map[string]any{
		"ocr_engine":     app.OCREngine,
		"pdf_rasterizer": app.Rasterizer,
	}
	for name, dep := range deps {
		if a, ok := dep.(availability); ok && !a.Available(app.Ctx) {
			app.Logger.Warn("OCR dependency not found", "dependency", name)
		}
	}
}
