package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"subdetx/internal/convert"
	"subdetx/internal/history"
	"subdetx/internal/logging"
)

const (
	toolConvert = "convert_subtitles"
	toolList    = "list_conversions"

	defaultListLimit = 20
	maxListLimit     = 500
)

// HistoryStore is the subset of history.Store the tools use.
type HistoryStore interface {
	Record(ctx context.Context, c *history.Conversion) error
	List(ctx context.Context, limit int) ([]history.Conversion, error)
}

// Server wires the tools into an MCP server.
type Server struct {
	converter *convert.Converter
	history   HistoryStore
	logger    *slog.Logger
	mcp       *server.MCPServer
}

// New registers the subdetx tools. store may be nil, in which case nothing is
// recorded and list_conversions returns an empty list.
func New(converter *convert.Converter, store HistoryStore, logger *slog.Logger, version string) *Server {
	if strings.TrimSpace(version) == "" {
		version = "dev"
	}
	s := &Server{
		converter: converter,
		history:   store,
		logger:    logging.NewComponentLogger(logger, "mcp"),
		mcp:       server.NewMCPServer("subdetx", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool(toolConvert,
		mcp.WithDescription("Convert a pipe-delimited subtitle transcript (TimerStart|TimerEnd|Text, first line is a header) into a DETX lip-sync document."),
		mcp.WithString("subtitles", mcp.Required(), mcp.Description("Full transcript text, header line included")),
		mcp.WithString("video_path", mcp.Required(), mcp.Description("Video reference written into the document")),
		mcp.WithString("audio_path", mcp.Description("Optional audio reference")),
		mcp.WithString("name", mcp.Description("Label for logs and history, usually the source file name")),
	), s.handleConvert)

	s.mcp.AddTool(mcp.NewTool(toolList,
		mcp.WithDescription("List recent subtitle conversions, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum rows to return (default 20, max 500)")),
	), s.handleList)

	return s
}

// ServeStdio runs the server on in/out until ctx is canceled or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	s.logger.Info("mcp server listening on stdio", logging.String(logging.FieldEventType, "mcp_started"))
	return stdio.Listen(ctx, in, out)
}

func (s *Server) handleConvert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subtitles, err := req.RequireString("subtitles")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	videoPath, err := req.RequireString("video_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	audioPath := req.GetString("audio_path", "")
	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" {
		name = "mcp"
	}

	started := time.Now()
	result, convErr := s.converter.Convert(ctx, convert.Request{
		Subtitles: strings.NewReader(subtitles),
		VideoPath: videoPath,
		AudioPath: audioPath,
		Name:      name,
	})
	s.record(ctx, history.Input{
		Source:       history.SourceMCP,
		SubtitleName: name,
		VideoPath:    videoPath,
		AudioPath:    audioPath,
	}, result, time.Since(started), convErr)

	if convErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s error: %v", convert.KindOf(convErr), convErr)), nil
	}
	return mcp.NewToolResultText(string(result.Document)), nil
}

func (s *Server) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", defaultListLimit)
	if limit <= 0 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}
	limit = min(limit, maxListLimit)

	rows := []history.Conversion{}
	if s.history != nil {
		listed, err := s.history.List(ctx, limit)
		if err != nil {
			s.logger.Error("history list failed", logging.Error(err))
			return mcp.NewToolResultError("history unavailable"), nil
		}
		if listed != nil {
			rows = listed
		}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encode conversions: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) record(ctx context.Context, in history.Input, result *convert.Result, elapsed time.Duration, convErr error) {
	if s.history == nil {
		return
	}
	row := history.FromOutcome(in, result, elapsed, convErr)
	if err := s.history.Record(context.WithoutCancel(ctx), row); err != nil {
		logging.WarnWithContext(s.logger, "failed to record conversion", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.data_dir and the history database"),
			logging.String(logging.FieldImpact, "conversion missing from history"),
		)
	}
}
