package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mednotes/internal/assistant"
	"mednotes/internal/auth"
	"mednotes/internal/config"
	httpx "mednotes/internal/http"
	"mednotes/internal/jobs"
	"mednotes/internal/session"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the view worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *cfg)
		},
	}
}

func newResponder(cfg config.Config) assistant.Responder {
	canned := assistant.NewCannedResponder(cfg.SimulatedLatency)
	if cfg.OpenAIKey == "" {
		return canned
	}
	zap.L().Info("assistant backed by openai", zap.String("model", cfg.OpenAIModel))
	return assistant.Fallback{
		Primary:   assistant.NewOpenAIResponder(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.OpenAIRetries),
		Secondary: canned,
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	sessions := session.NewManager(st.users, st.slot)
	r := httpx.NewRouter(cfg, httpx.Deps{
		Catalog:   st.catalog,
		Bookmarks: st.bookmarks,
		Progress:  st.progress,
		Sessions:  sessions,
		JWT:       auth.NewJWT(cfg.JWTSecret),
		Views:     jobs.NewRecorder(st.queue),
		Assistant: newResponder(cfg),
		Analytics: st.analytics,
	})

	// worker
	hostname, _ := os.Hostname()
	worker := jobs.NewWorker("worker-"+hostname, st.queue, st.catalog)
	workerCtx, cancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(workerCtx)
	}()
	go sessions.Run(workerCtx, time.Minute)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.StoreDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	zap.L().Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil && err == nil {
		err = serr
	}

	cancel()
	<-workerDone
	return err
}
