package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-wraith/internal/config"
	"github.com/teslashibe/go-wraith/internal/log"
	"github.com/teslashibe/go-wraith/pkg/classify"
	"github.com/teslashibe/go-wraith/pkg/hub"
	"github.com/teslashibe/go-wraith/pkg/ingest"
	"github.com/teslashibe/go-wraith/pkg/notify"
	"github.com/teslashibe/go-wraith/pkg/pipeline"
	"github.com/teslashibe/go-wraith/pkg/sleep"
	"github.com/teslashibe/go-wraith/pkg/store"
	"github.com/teslashibe/go-wraith/pkg/web"
)

// tickInterval drives the microgame deadline between frames.
const tickInterval = 100 * time.Millisecond

type serveFlags struct {
	config    string
	port      string
	static    string
	db        string
	ice       []string
	noClassif bool
}

func newServeCmd() *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVarP(&f.config, "config", "c", config.Get("WRAITH_CONFIG", "wraith.yaml"), "Pipeline tuning file (reloaded on change)")
	cmd.Flags().StringVarP(&f.port, "port", "p", "", "HTTP port (overrides PORT)")
	cmd.Flags().StringVar(&f.static, "static", "", "Serve a dashboard from this directory")
	cmd.Flags().StringVar(&f.db, "db", "", "SQLite database path (overrides WRAITH_DB)")
	cmd.Flags().StringSliceVar(&f.ice, "ice", nil, "STUN/TURN URLs for WebRTC ingest")
	cmd.Flags().BoolVar(&f.noClassif, "no-classifiers", false, "Skip loading ONNX models")
	return cmd
}

func loadPipelineConfig(path string) pipeline.Config {
	cfg, err := pipeline.LoadConfig(path)
	switch {
	case err == nil:
		log.Info("pipeline config loaded", "file", path)
	case errors.Is(err, os.ErrNotExist):
		log.Info("no pipeline config, using defaults", "file", path)
	default:
		log.Warn("pipeline config rejected, using defaults", "file", path, "error", err)
	}
	return cfg
}

func serve(ctx context.Context, f *serveFlags) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	port := f.port
	if port == "" {
		port = config.Port()
	}
	dbPath := f.db
	if dbPath == "" {
		dbPath = config.DatabasePath()
	}

	cfg := loadPipelineConfig(f.config)
	cfg.Escalation.Identity = config.Identity()

	st, err := store.OpenSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	log.Info("store opened", "path", dbPath)

	var notifier notify.Notifier = notify.Log{}
	var webhook *notify.Webhook
	if url := config.WebhookURL(); url != "" {
		webhook = notify.NewWebhook(url)
		notifier = notify.Multi{notify.Log{}, webhook}
		log.Info("operator webhook enabled", "url", url)
	}

	statusHub := hub.New("status")
	opts := []pipeline.Option{
		pipeline.WithStore(st),
		pipeline.WithNotifier(notifier),
		pipeline.WithPlayer(web.HubPlayer{Hub: statusHub}),
		pipeline.WithObserver(web.PublishSnapshot(statusHub)),
	}
	if !f.noClassif {
		models := classify.Load(cfg.Classify)
		defer models.Close()
		opts = append(opts, pipeline.WithClassifiers(models.Eye, models.Mouth))
	}
	pipe := pipeline.New(cfg, opts...)

	frames := ingest.NewServer(ctx, pipe)
	rtc := ingest.NewWebRTCReceiver(frames, f.ice...)
	defer rtc.Close()

	srvOpts := web.Options{
		Port:      port,
		StaticDir: f.static,
		Pipeline:  pipe,
		Status:    statusHub,
		Ingest:    frames,
		WebRTC:    rtc,
		Store:     st,
	}
	if fit := newFitClient(); fit != nil {
		srvOpts.Sleep = fit
	}
	srv := web.NewServer(srvOpts)

	if err := config.Watch(ctx, f.config, func() {
		next, err := pipeline.LoadConfig(f.config)
		if err != nil {
			log.Warn("config reload rejected", "error", err)
			return
		}
		next.Escalation.Identity = cfg.Escalation.Identity
		pipe.SetConfig(next)
		log.Info("pipeline config reloaded")
	}); err != nil {
		log.Warn("config hot reload disabled", "error", err)
	}

	go tick(ctx, pipe)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	log.Info("wraith running", "port", port, "version", version)

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("web server: %w", err)
		}
	}

	if err := srv.Shutdown(); err != nil {
		log.Warn("web shutdown", "error", err)
	}
	pipe.Stop()
	if webhook != nil {
		webhook.Wait()
	}
	return nil
}

// tick advances time-based state while no frames arrive.
func tick(ctx context.Context, pipe *pipeline.Pipeline) {
	t := time.NewTicker(tickInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pipe.Advance()
		}
	}
}

func newFitClient() *sleep.FitClient {
	id, secret := config.GoogleClient()
	if id == "" {
		return nil
	}
	fit, err := sleep.NewFitClient(sleep.FitConfig{
		ClientID:     id,
		ClientSecret: secret,
		RedirectURL:  config.GoogleRedirectURL(),
		TokenPath:    filepath.Join(config.DataDir(), "fit_token.json"),
	})
	if err != nil {
		log.Warn("Google Fit sync disabled", "error", err)
		return nil
	}
	log.Info("Google Fit sync available", "authenticated", fit.IsAuthenticated())
	return fit
}
