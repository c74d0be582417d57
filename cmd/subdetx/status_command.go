package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"subdetx/internal/config"
	"subdetx/internal/preflight"
	"subdetx/internal/staging"
)

type statusOutput struct {
	ConfigPath string             `json:"config_path"`
	Bind       string             `json:"bind"`
	FPS        int                `json:"fps"`
	Policy     string             `json:"timecode_policy"`
	Auth       bool               `json:"auth"`
	Checks     []preflight.Result `json:"checks"`
	Server     preflight.Result   `json:"server"`
	Staged     int                `json:"staged_uploads"`
	StagedSize int64              `json:"staged_bytes"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration, directory checks, and server reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			status := statusOutput{
				ConfigPath: ctx.configPath,
				Bind:       cfg.Server.Bind,
				FPS:        cfg.DETX.FPS,
				Policy:     cfg.DETX.TimecodePolicy,
				Auth:       cfg.Server.APIToken != "",
				Checks:     preflight.RunAll(cmd.Context(), cfg),
				Server:     preflight.CheckServer(cmd.Context(), serverURL(cfg)),
			}
			staged, err := staging.ListDirectories(cfg.Paths.StagingDir)
			if err != nil {
				return fmt.Errorf("list staging directory: %w", err)
			}
			status.Staged = len(staged)
			for _, dir := range staged {
				status.StagedSize += dir.Size
			}
			if jsonOutput {
				return writeJSON(cmd, status)
			}

			w := cmd.OutOrStdout()
			colorize := shouldColorize(w)
			lines := renderSectionHeader("Configuration", colorize)
			lines = append(lines,
				renderStatusLine("Config file", statusInfo, displayPath(status.ConfigPath, ctx.configExists), colorize),
				renderStatusLine("Bind", statusInfo, status.Bind, colorize),
				renderStatusLine("Frame rate", statusInfo, strconv.Itoa(status.FPS)+" fps", colorize),
				renderStatusLine("Timecode policy", statusInfo, status.Policy, colorize),
				renderStatusLine("API token", statusInfo, yesNo(status.Auth), colorize),
				renderStatusLine("Staged uploads", statusInfo,
					fmt.Sprintf("%d (%s)", status.Staged, humanize.Bytes(uint64(status.StagedSize))), colorize),
				"",
			)
			lines = append(lines, renderSectionHeader("Checks", colorize)...)
			for _, check := range status.Checks {
				lines = append(lines, renderCheck(check, false, colorize))
			}
			lines = append(lines, renderCheck(status.Server, true, colorize))
			fmt.Fprintln(w, strings.Join(lines, "\n"))

			if failed := preflight.Failed(status.Checks); len(failed) > 0 {
				return fmt.Errorf("%d readiness check(s) failed", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of text")
	return cmd
}

// serverURL turns the bind address into a URL reachable from this host.
func serverURL(cfg *config.Config) string {
	host, port, err := net.SplitHostPort(cfg.Server.Bind)
	if err != nil {
		return ""
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func displayPath(path string, exists bool) string {
	if strings.TrimSpace(path) == "" {
		return "(defaults)"
	}
	if !exists {
		return path + " (not found; using defaults)"
	}
	return path
}
