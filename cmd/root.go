package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var captureDir string

var rootCmd = &cobra.Command{
	Use:   "kiosk",
	Short: "Face recognition attendance kiosk for the yoga portal",
	Long: `Kiosk captures faces from a local camera, matches them against the
students enrolled in the yoga portal and marks their attendance.

It runs either as an interactive terminal kiosk (kiosk run) or as a local
HTTP service a browser kiosk screen can drive (kiosk serve).`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&captureDir, "capture", "", "Directory to save API responses for testing")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
