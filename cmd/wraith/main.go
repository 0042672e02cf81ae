// Wraith - driver drowsiness detection service
// Receives face landmark frames, runs the drowsiness pipeline and serves the
// status dashboard API.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-wraith/internal/config"
	"github.com/teslashibe/go-wraith/internal/log"
)

var version = "dev"

type rootFlags struct {
	logLevel string
	logFile  string
	envFiles []string
}

func main() {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "wraith",
		Short: "Driver drowsiness detection service",
		Long: `wraith scores driver drowsiness from streamed face landmarks.

"serve" runs the pipeline behind the HTTP API, the frame ingest websocket
and the WebRTC data channel. "replay" streams a synthetic drive to a
running server for testing.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadDotEnv(flags.envFiles...)
			log.InitWithOptions(flags.logLevel, log.Options{File: flags.logFile})
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.logLevel, "log-level", config.Get("WRAITH_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	pf.StringVar(&flags.logFile, "log-file", os.Getenv("WRAITH_LOG_FILE"), "Also write logs to this rotated file")
	pf.StringSliceVar(&flags.envFiles, "env", []string{".env"}, "Dotenv files to load")

	root.AddCommand(newServeCmd(), newReplayCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
