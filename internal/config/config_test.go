package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  environment: test
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Engine.TickInterval != time.Second {
		t.Errorf("tick_interval = %s, want default 1s", cfg.Engine.TickInterval)
	}
	if cfg.Engine.MaxWorkers != 8 {
		t.Errorf("max_workers = %d, want default 8", cfg.Engine.MaxWorkers)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("retry.max_attempts = %d, want default 3", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.MinDelay != 5*time.Second || cfg.Retry.MaxDelay != 40*time.Second {
		t.Errorf("retry delays = %s/%s, want 5s/40s", cfg.Retry.MinDelay, cfg.Retry.MaxDelay)
	}
	if cfg.Market.Source != "sim" {
		t.Errorf("market.source = %q, want sim", cfg.Market.Source)
	}
	if len(cfg.Venues) != 1 || cfg.Venues[0].Name != "PRIMARY" || !cfg.Venues[0].Default {
		t.Errorf("venues = %+v, want single default PRIMARY", cfg.Venues)
	}
}

func TestLoad_OverridesAndDurationDecode(t *testing.T) {
	path := writeConfig(t, `
app:
  environment: production
engine:
  tick_interval: 250ms
  max_workers: 2
  step_timeout: 2s
retry:
  max_attempts: 5
  min_delay: 1s
  max_delay: 8s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Engine.TickInterval != 250*time.Millisecond {
		t.Errorf("tick_interval = %s, want 250ms", cfg.Engine.TickInterval)
	}
	if cfg.Engine.StepTimeout != 2*time.Second {
		t.Errorf("step_timeout = %s, want 2s", cfg.Engine.StepTimeout)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("retry.max_attempts = %d, want 5", cfg.Retry.MaxAttempts)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidate_AccumulatesProblems(t *testing.T) {
	cfg := &Config{} // 全部字段为零值

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation failure for zero config")
	}

	// multierr 聚合: 一次调用报告多个问题
	message := err.Error()
	for _, want := range []string{
		"app.environment",
		"engine.tick_interval",
		"retry.max_attempts",
		"market.source",
		"venues",
		"logging.level",
	} {
		if !strings.Contains(message, want) {
			t.Errorf("validation message missing %q: %s", want, message)
		}
	}
}

func TestValidate_VenueDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  environment: test
venues:
  - name: PRIMARY
    default: true
  - name: DARKPOOL
    default: true
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for two default venues")
	}
}
