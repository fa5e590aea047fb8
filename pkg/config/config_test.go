package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"

	"indexer-runtime/internal/testutil"
)

func TestLoadDefault(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir("../.."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.ApiVersion != "1.1.0" {
		t.Fatalf("unexpected api_version: %s", cfg.Engine.ApiVersion)
	}
	if cfg.Metrics.Namespace != "indexer_runtime" {
		t.Fatalf("unexpected metrics namespace: %s", cfg.Metrics.Namespace)
	}
}

func TestLoadSandboxOverride(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}
	defer sb.Cleanup()

	if err := os.Mkdir(sb.Path("config"), 0700); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	data := []byte("engine:\n  handler_timeout_ms: 1000\n  api_version: \"1.0.0\"\n")
	if err := sb.WriteFile("config/default.yaml", data, 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(sb.Root); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.HandlerTimeoutMS != 1000 {
		t.Fatalf("expected handler_timeout_ms 1000, got %d", cfg.Engine.HandlerTimeoutMS)
	}
	if cfg.Engine.ApiVersion != "1.0.0" {
		t.Fatalf("expected api_version 1.0.0, got %s", cfg.Engine.ApiVersion)
	}
}
