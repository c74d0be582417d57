package config

import (
	"subdetx/internal/detx"
	"subdetx/internal/timecode"
)

const (
	defaultConfigPath         = "~/.config/subdetx/config.toml"
	projectConfigName         = "subdetx.toml"
	defaultStagingDir         = "~/.local/share/subdetx/staging"
	defaultDataDir            = "~/.local/share/subdetx"
	defaultLogDir             = "~/.local/share/subdetx/logs"
	defaultLogRetentionDays   = 30
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultBind               = "127.0.0.1:3000"
	defaultMaxUploadMB        = 16
	defaultRequestTimeout     = 60
	defaultStagingMaxAgeHours = 24
	defaultTimecodePolicy     = "pass_through"

	historyFileName = "history.db"
	lockFileName    = "subdetx.lock"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	opts := detx.DefaultOptions()
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
		},
		Server: Server{
			Bind:               defaultBind,
			MaxUploadMB:        defaultMaxUploadMB,
			RequestTimeout:     defaultRequestTimeout,
			StagingMaxAgeHours: defaultStagingMaxAgeHours,
		},
		DETX: DETX{
			FPS:             timecode.DefaultFPS,
			Copyright:       opts.Copyright,
			CappellaVersion: opts.CappellaVersion,
			Title:           opts.Title,
			Title2:          opts.Title2,
			Episode:         opts.Episode,
			VideoTimestamp:  opts.VideoTimestamp,
			RoleID:          opts.Role.ID,
			RoleName:        opts.Role.Name,
			RoleColor:       opts.Role.Color,
			RoleGender:      opts.Role.Gender,
			RoleDescription: opts.Role.Description,
			Track:           opts.Track,
			OpenMarker:      opts.OpenMarker,
			CloseMarker:     opts.CloseMarker,
			TimecodePolicy:  defaultTimecodePolicy,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
