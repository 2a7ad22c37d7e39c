package cmd

import (
	"testing"

	"github.com/yogaportal/attendance-kiosk/internal/attendance"
	"github.com/yogaportal/attendance-kiosk/internal/config"
)

func TestMatcherOptions(t *testing.T) {
	cfg := &config.Config{Matcher: config.MatcherConfig{
		Threshold: 0.5,
		TieBreak:  "lowest-id",
		Aggregate: "mean",
		Index:     "linear",
	}}

	opts, err := matcherOptions(cfg, 0)
	if err != nil {
		t.Fatalf("matcherOptions failed: %v", err)
	}
	if opts.Threshold != 0.5 || opts.TieBreak != attendance.TieLowestID || opts.Aggregate != attendance.AggregateMean {
		t.Errorf("unexpected options: %+v", opts)
	}

	opts, err = matcherOptions(cfg, 0.4)
	if err != nil || opts.Threshold != 0.4 {
		t.Errorf("expected threshold override 0.4, got %+v (%v)", opts, err)
	}

	cfg.Matcher.Index = "hnsw"
	if _, err := matcherOptions(cfg, 0); err == nil {
		t.Error("expected hnsw with mean aggregate to be rejected")
	}
}

func TestNewPortalClient_UsesCaptureDir(t *testing.T) {
	cfg := &config.Config{API: config.APIConfig{
		URL:            "http://localhost:5000",
		TimeoutSeconds: 5,
		TokenFile:      t.TempDir() + "/token",
		CaptureDir:     t.TempDir(),
	}}

	client, err := newPortalClient(cfg)
	if err != nil {
		t.Fatalf("newPortalClient failed: %v", err)
	}
	if client.URL != "http://localhost:5000/api" {
		t.Errorf("expected API root, got %s", client.URL)
	}

	cfg.API.URL = "ftp://portal"
	if _, err := newPortalClient(cfg); err == nil {
		t.Error("expected error for non-http URL")
	}
}
