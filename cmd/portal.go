package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/yogaportal/attendance-kiosk/internal/attendance"
	"github.com/yogaportal/attendance-kiosk/internal/camera/webcam"
	"github.com/yogaportal/attendance-kiosk/internal/config"
	"github.com/yogaportal/attendance-kiosk/internal/portal"
	"github.com/yogaportal/attendance-kiosk/internal/vision/dlib"
)

// newPortalClient creates a portal client that reads its token from the configured file.
func newPortalClient(cfg *config.Config) (*portal.Client, error) {
	client, err := portal.NewClient(cfg.API.BaseURL(), portal.NewFileTokenStore(cfg.API.TokenFile),
		portal.WithTimeout(cfg.API.Timeout()))
	if err != nil {
		return nil, fmt.Errorf("failed to create portal client: %w", err)
	}

	dir := captureDir
	if dir == "" {
		dir = cfg.API.CaptureDir
	}
	if dir != "" {
		if err := client.SetCaptureDir(dir); err != nil {
			return nil, err
		}
	}
	return client, nil
}

// warnIfExpired prints a warning when the stored token is missing or expired.
func warnIfExpired(client *portal.Client) {
	token, err := client.Tokens().Token()
	if err != nil || token == "" {
		fmt.Println("Warning: not logged in, run 'kiosk login' first")
		return
	}
	if exp, ok := portal.TokenExpiry(token); ok && time.Now().After(exp) {
		fmt.Printf("Warning: session expired at %s, run 'kiosk login' again\n", exp.Format(time.RFC3339))
	}
}

// matcherOptions converts the matcher config section, applying a threshold override when positive.
func matcherOptions(cfg *config.Config, threshold float64) (attendance.MatcherOptions, error) {
	opts := attendance.MatcherOptions{
		Threshold: cfg.Matcher.Threshold,
		TieBreak:  attendance.TieBreak(cfg.Matcher.TieBreak),
		Aggregate: attendance.Aggregate(cfg.Matcher.Aggregate),
		Index:     attendance.IndexKind(cfg.Matcher.Index),
	}
	if threshold > 0 {
		opts.Threshold = threshold
	}
	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("invalid matcher configuration: %w", err)
	}
	return opts, nil
}

// loadProgress returns a progress callback rendering loader steps as a bar.
func loadProgress() func(step string) {
	bar := progressbar.NewOptions(attendance.LoadSteps,
		progressbar.OptionSetDescription("Loading"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionFullWidth(),
	)
	return func(step string) {
		bar.Describe(step)
		bar.Add(1)
		if bar.IsFinished() {
			bar.Reset()
		}
	}
}

// newSession wires the portal, the webcam and the dlib extractor into a session.
// The returned close function releases the camera and the models.
func newSession(ctx context.Context, cfg *config.Config, opts attendance.MatcherOptions, progress func(string)) (*attendance.Session, func(), error) {
	client, err := newPortalClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	warnIfExpired(client)

	extractor := dlib.New(dlib.WithMaxFrameSize(cfg.Camera.FrameMaxSize))
	session, err := attendance.NewSession(ctx, attendance.SessionConfig{
		API:       client,
		Camera:    webcam.New(cfg.Camera.Device),
		Extractor: extractor,
		ModelsDir: cfg.Models.Dir,
		Matcher:   opts,
		Progress:  progress,
	})
	if err != nil {
		extractor.Close()
		return nil, nil, err
	}

	closeFn := func() {
		if err := session.Close(); err != nil {
			fmt.Printf("Warning: failed to release camera: %v\n", err)
		}
		extractor.Close()
	}
	return session, closeFn, nil
}
