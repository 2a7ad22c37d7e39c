package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yogaportal/attendance-kiosk/internal/config"
)

var runCmd = &cobra.Command{
	Use:     "run",
	Aliases: []string{"kiosk"},
	Short:   "Start the interactive terminal kiosk",
	Long: `Starts the terminal kiosk: loads the face models and the student roster,
then accepts commands to enroll students, recognize faces and mark attendance,
or review a day's records.

Leaving a mode (back) stops the camera and discards the results of anything
still running in that mode.`,
	RunE: runKiosk,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Float64("threshold", 0, "Override the match threshold (default from MATCH_THRESHOLD)")
}

func runKiosk(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	opts, err := matcherOptions(cfg, mustGetFloat64(cmd, "threshold"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(runContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, closeSession, err := newSession(ctx, cfg, opts, loadProgress())
	if err != nil {
		return err
	}
	defer closeSession()

	fmt.Printf("Loading face models from %s and the student roster...\n", cfg.Models.Dir)
	if err := session.Load(ctx); err != nil {
		fmt.Printf("Warning: %v\n", err)
		fmt.Println("Recognition is unavailable until 'reload' succeeds")
	} else {
		st := session.Status()
		fmt.Printf("Ready: %d students, %d face samples\n", st.Students, st.Descriptors)
	}

	return newRepl(session, os.Stdin, os.Stdout).run(ctx)
}

// runContext is the parent context for commands started without one.
func runContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
