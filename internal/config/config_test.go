package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"subdetx/internal/config"
	"subdetx/internal/detx"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("PORT", "")
	t.Setenv("SUBDETX_API_TOKEN", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "subdetx", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.HistoryPath() != filepath.Join(tempHome, ".local", "share", "subdetx", "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
	if cfg.Server.Bind != "127.0.0.1:3000" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.Server.APIToken != "" {
		t.Fatalf("expected empty api token, got %q", cfg.Server.APIToken)
	}
	if cfg.MaxUploadBytes() != 16<<20 {
		t.Fatalf("unexpected upload limit: %d", cfg.MaxUploadBytes())
	}
	if cfg.RequestTimeout() != time.Minute {
		t.Fatalf("unexpected request timeout: %s", cfg.RequestTimeout())
	}
	if cfg.DETX.TimecodePolicy != "pass_through" {
		t.Fatalf("unexpected timecode policy: %q", cfg.DETX.TimecodePolicy)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestDefaultDETXOptionsMatchBuilderDefaults(t *testing.T) {
	cfg := config.Default()
	if got, want := cfg.DETXOptions(), detx.DefaultOptions(); got != want {
		t.Fatalf("DETXOptions mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "subdetx.toml")
	t.Setenv("PORT", "")

	type payload struct {
		Paths struct {
			StagingDir string `toml:"staging_dir"`
			DataDir    string `toml:"data_dir"`
		} `toml:"paths"`
		Server struct {
			Bind     string `toml:"bind"`
			APIToken string `toml:"api_token"`
		} `toml:"server"`
		DETX struct {
			FPS            int    `toml:"fps"`
			Title          string `toml:"title"`
			OpenMarker     string `toml:"open_marker"`
			TimecodePolicy string `toml:"timecode_policy"`
		} `toml:"detx"`
	}
	custom := payload{}
	custom.Paths.StagingDir = filepath.Join(tempDir, "staging")
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Server.Bind = "0.0.0.0:8080"
	custom.Server.APIToken = "secret"
	custom.DETX.FPS = 30
	custom.DETX.Title = "Episode 12"
	custom.DETX.OpenMarker = "out_open"
	custom.DETX.TimecodePolicy = "Reject"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected existing config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Server.Bind != "0.0.0.0:8080" || cfg.Server.APIToken != "secret" {
		t.Fatalf("unexpected server section: %+v", cfg.Server)
	}
	if cfg.DETX.TimecodePolicy != "reject" {
		t.Fatalf("expected normalized policy, got %q", cfg.DETX.TimecodePolicy)
	}
	opts := cfg.DETXOptions()
	if opts.FPS != 30 || opts.Title != "Episode 12" || opts.OpenMarker != "out_open" {
		t.Fatalf("unexpected detx options: %+v", opts)
	}
	if opts.CloseMarker != detx.DefaultCloseMarker {
		t.Fatalf("expected untouched keys to keep defaults, got %q", opts.CloseMarker)
	}
}

func TestEnvironmentFallbacks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("SUBDETX_API_TOKEN", " from-env ")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Bind != "127.0.0.1:9090" {
		t.Fatalf("expected PORT override, got %q", cfg.Server.Bind)
	}
	if cfg.Server.APIToken != "from-env" {
		t.Fatalf("expected token from env, got %q", cfg.Server.APIToken)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{name: "fps", mutate: func(c *config.Config) { c.DETX.FPS = 0 }, want: "detx.fps"},
		{name: "policy", mutate: func(c *config.Config) { c.DETX.TimecodePolicy = "guess" }, want: "detx.timecode_policy"},
		{name: "marker", mutate: func(c *config.Config) { c.DETX.CloseMarker = "" }, want: "detx.open_marker"},
		{name: "video timestamp", mutate: func(c *config.Config) { c.DETX.VideoTimestamp = "01:00:00,000" }, want: "detx.video_timestamp"},
		{name: "bind", mutate: func(c *config.Config) { c.Server.Bind = "localhost" }, want: "server.bind"},
		{name: "log format", mutate: func(c *config.Config) { c.Logging.Format = "xml" }, want: "logging.format"},
		{name: "log level", mutate: func(c *config.Config) { c.Logging.Level = "loud" }, want: "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[detx]\nfsp = 30\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil || !strings.Contains(err.Error(), "fsp") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PORT", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if got, want := cfg.DETXOptions(), detx.DefaultOptions(); got != want {
		t.Fatalf("sample config drifted from defaults:\n got %+v\nwant %+v", got, want)
	}
}
