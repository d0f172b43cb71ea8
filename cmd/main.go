package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MimeLyc/chameleon-localizer/internal/config"
	"github.com/MimeLyc/chameleon-localizer/internal/httpapi"
	"github.com/MimeLyc/chameleon-localizer/internal/jobs"
	"github.com/MimeLyc/chameleon-localizer/internal/merge"
	"github.com/MimeLyc/chameleon-localizer/internal/submit"
	"github.com/MimeLyc/chameleon-localizer/pkg/log"
	"github.com/robfig/cron/v3"
)

type jobController interface {
	Snapshot() jobs.Snapshot
	Cancel()
}

type cronRunner interface {
	AddFunc(spec string, cmd func()) (cron.EntryID, error)
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func main() {
	// Initialize configuration
	cfg, err := config.New()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	log.InitLogger(log.ParseLevel(cfg.System.LogLevel))

	controller, err := newController(cfg)
	if err != nil {
		log.Fatal("Failed to create job controller: %v", err)
	}

	settings, err := config.NewRuntimeSettingsStore(cfg.RuntimeSettings())
	if err != nil {
		log.Fatal("Invalid runtime settings: %v", err)
	}
	timeout := time.Duration(cfg.Backend.Timeout) * time.Second
	httpSrv := httpapi.NewServer(controller,
		httpapi.WithUI(cfg.HTTP.UIStaticDir, cfg.HTTP.UIEnabled),
		httpapi.WithUploads(cfg.HTTP.UploadDir, cfg.HTTP.MaxUploadMB*1024*1024),
		httpapi.WithHeartbeat(cfg.System.HeartbeatCron),
		httpapi.WithRuntimeSettingsStore(settings),
		httpapi.WithRuntimeSettingsApplier(func(next config.RuntimeSettings) error {
			return controller.Configure(jobs.WithRuntimeSettings(next, timeout))
		}),
	)

	if n, err := httpSrv.PruneUploads(time.Now()); err != nil {
		log.Warn("Failed to prune old uploads: %v", err)
	} else if n > 0 {
		log.Info("Removed %d uploads left by a previous run", n)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runWithComponents(ctx, cfg, controller, cron.New(), httpSrv); err != nil {
		log.Fatal("Server stopped: %v", err)
	}
}

func newController(cfg *config.Config) (*jobs.Controller, error) {
	opts := []jobs.Option{
		jobs.OnComplete(func(a merge.Artifact) {
			log.Info("Localized video ready: %s", a.URI)
		}),
	}
	if cfg.Backend.Enabled() {
		timeout := time.Duration(cfg.Backend.Timeout) * time.Second
		opts = append(opts, jobs.WithSubmitter(submit.NewClient(cfg.Backend.BaseURL, timeout)))
		log.Info("Submitting jobs to %s", cfg.Backend.BaseURL)
	} else {
		log.Info("No API_BASE_URL set, running local simulation only")
	}
	return jobs.NewController(cfg.Pipeline, opts...)
}

// runWithComponents serves HTTP and runs the heartbeat until ctx is done or
// the server fails. The running job is cancelled on the way out.
func runWithComponents(ctx context.Context, cfg *config.Config, controller jobController, cronEngine cronRunner, httpSrv httpServer) error {
	if _, err := cronEngine.AddFunc(cfg.System.HeartbeatCron, heartbeat(controller)); err != nil {
		return fmt.Errorf("failed to schedule heartbeat: %w", err)
	}
	cronEngine.Start()
	defer func() {
		<-cronEngine.Stop().Done()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe(cfg.HTTP.Addr)
	}()

	select {
	case err := <-errCh:
		controller.Cancel()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	controller.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func heartbeat(controller jobController) func() {
	return func() {
		snap := controller.Snapshot()
		if snap.JobID == "" {
			log.Debug("Heartbeat: idle, %s", snap.Status)
			return
		}
		log.Info("Heartbeat: job %s running=%v status=%q", snap.JobID, snap.Running, snap.Status)
	}
}
