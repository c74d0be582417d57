package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"subdetx/internal/convert"
	"subdetx/internal/detx"
	"subdetx/internal/history"
	"subdetx/internal/logging"
	"subdetx/internal/testsupport"
)

func newTestServer(t *testing.T) (*Server, *history.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	converter := convert.New(detx.DefaultOptions(), convert.PolicyPassThrough, logging.NewNop())
	return New(converter, store, logging.NewNop(), "test"), store
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("expected tool content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestConvertToolReturnsDocument(t *testing.T) {
	srv, store := newTestServer(t)

	result, err := srv.handleConvert(context.Background(), callRequest(toolConvert, map[string]any{
		"subtitles":  testsupport.Transcript(2),
		"video_path": "v.mp4",
		"name":       "episode.txt",
	}))
	if err != nil {
		t.Fatalf("handleConvert: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	doc := resultText(t, result)
	if !strings.Contains(doc, `<videofile timestamp="01:00:00:00">v.mp4</videofile>`) || !strings.Contains(doc, "<text>Line 2</text>") {
		t.Fatalf("unexpected document:\n%s", doc)
	}

	rows, err := store.List(context.Background(), 5)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].Source != history.SourceMCP || rows[0].SubtitleName != "episode.txt" || rows[0].Cues != 2 {
		t.Fatalf("unexpected history rows: %#v", rows)
	}
}

func TestConvertToolReportsMissingArguments(t *testing.T) {
	srv, store := newTestServer(t)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "no subtitles", args: map[string]any{"video_path": "v.mp4"}, want: "subtitles"},
		{name: "no video", args: map[string]any{"subtitles": testsupport.Transcript(1)}, want: "video_path"},
		{name: "blank video", args: map[string]any{"subtitles": testsupport.Transcript(1), "video_path": " "}, want: "video path is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := srv.handleConvert(context.Background(), callRequest(toolConvert, tt.args))
			if err != nil {
				t.Fatalf("handleConvert: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected tool error")
			}
			if msg := resultText(t, result); !strings.Contains(msg, tt.want) {
				t.Fatalf("expected %q in %q", tt.want, msg)
			}
		})
	}

	summary, err := store.Summarize(context.Background())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Total != 1 || summary.Failed != 1 {
		t.Fatalf("expected only the blank-video conversion recorded as failed, got %+v", summary)
	}
}

func TestListTool(t *testing.T) {
	srv, _ := newTestServer(t)
	for range 3 {
		if _, err := srv.handleConvert(context.Background(), callRequest(toolConvert, map[string]any{
			"subtitles":  testsupport.Transcript(1),
			"video_path": "v.mp4",
		})); err != nil {
			t.Fatalf("handleConvert: %v", err)
		}
	}

	result, err := srv.handleList(context.Background(), callRequest(toolList, map[string]any{"limit": float64(2)}))
	if err != nil {
		t.Fatalf("handleList: %v", err)
	}
	var rows []history.Conversion
	if err := json.Unmarshal([]byte(resultText(t, result)), &rows); err != nil {
		t.Fatalf("decode rows: %v", err)
	}
	if len(rows) != 2 || rows[0].SubtitleName != "mcp" {
		t.Fatalf("unexpected rows: %#v", rows)
	}

	result, err = srv.handleList(context.Background(), callRequest(toolList, map[string]any{"limit": float64(-1)}))
	if err != nil {
		t.Fatalf("handleList: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error for negative limit")
	}
}

func TestListToolWithoutHistory(t *testing.T) {
	converter := convert.New(detx.DefaultOptions(), "", logging.NewNop())
	srv := New(converter, nil, logging.NewNop(), "")

	result, err := srv.handleList(context.Background(), callRequest(toolList, nil))
	if err != nil {
		t.Fatalf("handleList: %v", err)
	}
	if got := resultText(t, result); got != "[]" {
		t.Fatalf("expected empty list, got %q", got)
	}
}
