package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"subdetx/internal/detx"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
}

// Server contains configuration for the HTTP upload service.
type Server struct {
	Bind               string `toml:"bind"`
	APIToken           string `toml:"api_token"`
	MaxUploadMB        int    `toml:"max_upload_mb"`
	RequestTimeout     int    `toml:"request_timeout"`
	StagingMaxAgeHours int    `toml:"staging_max_age_hours"`
}

// DETX contains the metadata stamped into every generated document.
type DETX struct {
	FPS             int    `toml:"fps"`
	Copyright       string `toml:"copyright"`
	CappellaVersion string `toml:"cappella_version"`
	Title           string `toml:"title"`
	Title2          string `toml:"title2"`
	Episode         string `toml:"episode"`
	VideoTimestamp  string `toml:"video_timestamp"`
	RoleID          string `toml:"role_id"`
	RoleName        string `toml:"role_name"`
	RoleColor       string `toml:"role_color"`
	RoleGender      string `toml:"role_gender"`
	RoleDescription string `toml:"role_description"`
	Track           string `toml:"track"`
	OpenMarker      string `toml:"open_marker"`
	CloseMarker     string `toml:"close_marker"`
	// TimecodePolicy is "pass_through" or "reject".
	TimecodePolicy string `toml:"timecode_policy"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for subdetx.
//
// Configuration sections by subsystem:
//   - Paths: staging, data (history database, lock file) and log directories
//   - Server: HTTP bind address, token, and upload limits
//   - DETX: document metadata and timecode handling
//   - Logging: log format, level, and retention
type Config struct {
	Paths   Paths   `toml:"paths"`
	Server  Server  `toml:"server"`
	DETX    DETX    `toml:"detx"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A missing file is not an error: defaults apply.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the server and CLI write into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the location of the conversion history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.DataDir, historyFileName)
}

// LockPath returns the location of the single-instance lock for the server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, lockFileName)
}

// MaxUploadBytes converts the configured upload limit to bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// RequestTimeout returns the per-request processing deadline.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeout) * time.Second
}

// StagingMaxAge returns how long an abandoned upload directory survives.
func (c *Config) StagingMaxAge() time.Duration {
	return time.Duration(c.Server.StagingMaxAgeHours) * time.Hour
}

// DETXOptions maps the [detx] section onto document builder options.
func (c *Config) DETXOptions() detx.Options {
	return detx.Options{
		FPS:             c.DETX.FPS,
		Copyright:       c.DETX.Copyright,
		CappellaVersion: c.DETX.CappellaVersion,
		Title:           c.DETX.Title,
		Title2:          c.DETX.Title2,
		Episode:         c.DETX.Episode,
		VideoTimestamp:  c.DETX.VideoTimestamp,
		Role: detx.RoleOptions{
			ID:          c.DETX.RoleID,
			Name:        c.DETX.RoleName,
			Color:       c.DETX.RoleColor,
			Gender:      c.DETX.RoleGender,
			Description: c.DETX.RoleDescription,
		},
		Track:       c.DETX.Track,
		OpenMarker:  c.DETX.OpenMarker,
		CloseMarker: c.DETX.CloseMarker,
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
