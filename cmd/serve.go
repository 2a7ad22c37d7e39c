package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/yogaportal/attendance-kiosk/internal/config"
	"github.com/yogaportal/attendance-kiosk/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the kiosk HTTP server",
	Long: `Starts a local HTTP server exposing the kiosk session under /api/v1/kiosk,
for a browser kiosk screen to drive. Models and roster are loaded in the
background; recognition requests return 503 until loading completes.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default from KIOSK_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from KIOSK_HOST)")
	serveCmd.Flags().Float64("threshold", 0, "Override the match threshold (default from MATCH_THRESHOLD)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Server.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Server.Host = host
	}
	opts, err := matcherOptions(cfg, mustGetFloat64(cmd, "threshold"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(runContext(cmd))
	defer cancel()

	session, closeSession, err := newSession(ctx, cfg, opts, func(step string) {
		log.Printf("load: %s", step)
	})
	if err != nil {
		return err
	}
	defer closeSession()

	go func() {
		if err := session.Load(ctx); err != nil {
			log.Printf("initial load failed, POST /api/v1/kiosk/reload to retry: %v", err)
			return
		}
		st := session.Status()
		log.Printf("kiosk ready: %d students, %d face samples", st.Students, st.Descriptors)
	}()

	server := web.NewServer(cfg, session)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting attendance kiosk on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
