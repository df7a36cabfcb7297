package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"placement/internal/database"
	"placement/internal/handler"
	"placement/internal/service"
)

const shutdownTimeout = 10 * time.Second

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import CSV or XLSX marks sheets into the database",
	Long: `Import reads every file in turn. Each sheet needs a header row followed by
name, roll_no, start, mid, end, technical and hr columns. A roll number that is
already stored is replaced.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runImport(cmd *cobra.Command, args []string) error {
	db, err := database.Open(cfg.DB, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	imports := service.NewImportService(db, logger)
	out := cmd.OutOrStdout()
	var failed int
	for _, path := range args {
		if err := imports.ProcessFile(ctx, path); err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			failed++
		}
	}

	for _, path := range args {
		p := imports.GetFileProgress(filepath.Base(path))
		if p == nil {
			continue
		}
		fmt.Fprintf(out, "%s: %s, %d of %d records imported, %d skipped\n",
			p.FileName, p.Status, p.Processed, p.TotalRecords, p.Skipped)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to import", failed, len(args))
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	db, err := database.Open(cfg.DB, logger)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.UploadDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create uploads directory: %w", err)
	}

	imports := service.NewImportService(db, logger)
	uploads := handler.NewUploadHandler(imports, cfg.UploadDir, logger)
	router := handler.NewRouter(handler.Routes{
		Evaluations: handler.NewEvaluationHandler(service.NewEvaluationService(db, logger), logger),
		Uploads:     uploads,
		Progress:    handler.NewProgressHandler(imports, logger),
		Frequencies: handler.NewFrequencyHandler(logger),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.WithMiddleware(router, cfg.AllowedOrigins, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server running", zap.String("addr", cfg.HTTPAddr), zap.String("db_driver", cfg.DB.Driver))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	// Uploaded files keep importing after their request returned.
	uploads.Wait()
	return nil
}
