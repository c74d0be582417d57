package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"subdetx/internal/timecode"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDETX(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind %q must be host:port: %w", c.Server.Bind, err)
	}
	if c.Server.MaxUploadMB < 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	if c.Server.RequestTimeout < 0 {
		return errors.New("server.request_timeout must be positive")
	}
	if c.Server.StagingMaxAgeHours < 0 {
		return errors.New("server.staging_max_age_hours must be zero or positive")
	}
	return nil
}

func (c *Config) validateDETX() error {
	if c.DETX.FPS <= 0 || c.DETX.FPS > 120 {
		return fmt.Errorf("detx.fps must be between 1 and 120, got %d", c.DETX.FPS)
	}
	switch c.DETX.TimecodePolicy {
	case "pass_through", "reject":
	default:
		return fmt.Errorf("detx.timecode_policy: unsupported value %q (want pass_through or reject)", c.DETX.TimecodePolicy)
	}
	if c.DETX.OpenMarker == "" || c.DETX.CloseMarker == "" {
		return errors.New("detx.open_marker and detx.close_marker must be set")
	}
	if c.DETX.RoleID == "" {
		return errors.New("detx.role_id must be set")
	}
	if ts := strings.TrimSpace(c.DETX.VideoTimestamp); ts != "" {
		if _, err := timecode.ParseTimecode(ts); err != nil {
			return fmt.Errorf("detx.video_timestamp: %w", err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
