// Package web serves the drowsiness pipeline's HTTP API and the live
// status websocket.
package web

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-wraith/internal/log"
	"github.com/teslashibe/go-wraith/pkg/hub"
	"github.com/teslashibe/go-wraith/pkg/ingest"
	"github.com/teslashibe/go-wraith/pkg/pipeline"
	"github.com/teslashibe/go-wraith/pkg/store"
)

// SleepSource is an external sleep tracker reached through OAuth.
// *sleep.FitClient is a SleepSource.
type SleepSource interface {
	AuthURL(state string) string
	HandleCallback(ctx context.Context, code string) error
	LastSleepHours(ctx context.Context, now time.Time) (float64, error)
}

// Options configures a Server. Pipeline and Status are required.
type Options struct {
	Port      string
	StaticDir string // Served at / when set

	Pipeline *pipeline.Pipeline
	Status   *hub.Hub
	Ingest   *ingest.Server
	WebRTC   *ingest.WebRTCReceiver
	Sleep    SleepSource
	Store    store.Store
}

// Server is the HTTP API server.
type Server struct {
	app  *fiber.App
	opts Options
	pipe *pipeline.Pipeline

	mu         sync.Mutex
	oauthState string
}

// NewServer creates the server and registers every route.
func NewServer(opts Options) *Server {
	if opts.Port == "" {
		opts.Port = "8080"
	}
	s := &Server{opts: opts, pipe: opts.Pipeline}

	app := fiber.New(fiber.Config{
		AppName:               "wraith",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())
	if opts.StaticDir != "" {
		app.Static("/", opts.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/config", s.handleGetConfig)
	api.Patch("/config", s.handlePatchConfig)
	api.Post("/motion", s.handleMotion)
	api.Post("/motion/override", s.handleOverride)
	api.Post("/gaze/calibrate", s.handleCalibrate)
	api.Post("/microgame/hit", s.handleHit)
	api.Post("/sleep/import", s.handleSleepImport)
	api.Post("/stop", s.handleStop)
	api.Post("/start", s.handleStart)
	api.Get("/counter", s.handleCounter)
	api.Delete("/counter", s.handleResetCounter)
	api.Post("/target", s.handleTarget)
	api.Get("/records", s.handleRecords)
	api.Get("/fit/auth", s.handleFitAuth)
	api.Get("/fit/callback", s.handleFitCallback)
	api.Get("/ingest", s.handleIngestStats)
	if opts.WebRTC != nil {
		opts.WebRTC.RegisterRoutes(api)
	}

	if opts.Ingest != nil {
		opts.Ingest.RegisterRoutes(app)
	}
	app.Use("/ws/status", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the status hub and serves until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	go s.opts.Status.Run(ctx)
	log.Info("web server listening", "addr", "http://localhost:"+s.opts.Port)
	return s.app.Listen(":" + s.opts.Port)
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.opts.Status, c)
	if msg, err := hub.EncodeEvent(EventSnapshot, s.pipe.Snapshot()); err == nil {
		client.Send(msg)
	}
	client.Run()
}
