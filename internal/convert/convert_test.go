package convert_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"subdetx/internal/convert"
	"subdetx/internal/detx"
	"subdetx/internal/logging"
)

const transcript = `TimerStart|TimerEnd|Text|Speaker
00:00:01,000|00:00:04,000|Test subtitle|A
00:00:05,000|00:00:06,000|{\i1}Special & characters < > "quote"{\i0}|B
not-a-time|00:00:08,000|Odd timing|C
00:00:09,000|00:00:10,000|"broken quote|D
`

func newConverter(t *testing.T, policy convert.Policy) (*convert.Converter, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", Output: &logs})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	return convert.New(detx.DefaultOptions(), policy, logger), &logs
}

func TestConvertPassThrough(t *testing.T) {
	conv, logs := newConverter(t, convert.PolicyPassThrough)
	result, err := conv.Convert(context.Background(), convert.Request{
		Subtitles: strings.NewReader(transcript),
		VideoPath: "v.mp4",
		Name:      "episode.txt",
	})
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	out := string(result.Document)
	for _, want := range []string{
		`<videofile timestamp="01:00:00:00">v.mp4</videofile>`,
		`<audiofile></audiofile>`,
		`<lipsync timecode="01:00:01:00" type="in_open"/>`,
		`<text>Test subtitle</text>`,
		`<text>Special &amp; characters &lt; &gt; &quot;quote&quot;</text>`,
		`<lipsync timecode="not-a-time" type="in_open"/>`,
		`<text>&quot;broken quote</text>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in document\n%s", want, out)
		}
	}
	if result.Lines != 4 {
		t.Fatalf("expected 4 lines, got %d", result.Lines)
	}
	if result.Stats.Malformed != 1 || result.Stats.Rejected != 0 || result.Stats.RowErrors != 1 {
		t.Fatalf("unexpected stats: %+v", result.Stats)
	}
	for _, event := range []string{"timestamp_passthrough", "row_parse_failed", "conversion_complete", "episode.txt"} {
		if !strings.Contains(logs.String(), event) {
			t.Errorf("expected %q in logs:\n%s", event, logs.String())
		}
	}
}

func TestConvertRejectPolicyDropsMalformedCues(t *testing.T) {
	conv, logs := newConverter(t, convert.PolicyReject)
	result, err := conv.Convert(context.Background(), convert.Request{
		Subtitles: strings.NewReader(transcript),
		VideoPath: "v.mp4",
		AudioPath: "a.wav",
	})
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if result.Lines != 3 || result.Stats.Rejected != 1 {
		t.Fatalf("expected one rejected cue, got lines=%d stats=%+v", result.Lines, result.Stats)
	}
	if strings.Contains(string(result.Document), "not-a-time") {
		t.Fatal("rejected cue leaked into document")
	}
	if !strings.Contains(string(result.Document), "<audiofile>a.wav</audiofile>") {
		t.Fatal("expected audio reference in document")
	}
	if !strings.Contains(logs.String(), "timestamp_rejected") {
		t.Fatalf("expected rejection warning, got:\n%s", logs.String())
	}
}

func TestConvertPreconditions(t *testing.T) {
	conv, _ := newConverter(t, "")
	if conv.Policy() != convert.PolicyPassThrough {
		t.Fatalf("expected default policy, got %q", conv.Policy())
	}

	_, err := conv.Convert(context.Background(), convert.Request{VideoPath: "v.mp4"})
	if !errors.Is(err, convert.ErrMissingSubtitles) || convert.KindOf(err) != convert.KindPrecondition {
		t.Fatalf("expected missing subtitles precondition, got %v", err)
	}

	_, err = conv.Convert(context.Background(), convert.Request{Subtitles: strings.NewReader(transcript), VideoPath: "  "})
	if !errors.Is(err, convert.ErrMissingVideo) || convert.KindOf(err) != convert.KindPrecondition {
		t.Fatalf("expected missing video precondition, got %v", err)
	}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestConvertStreamFailureIsParseError(t *testing.T) {
	conv, _ := newConverter(t, "")
	result, err := conv.Convert(context.Background(), convert.Request{Subtitles: brokenReader{}, VideoPath: "v.mp4"})
	if result != nil {
		t.Fatal("expected no partial result")
	}
	if !errors.Is(err, convert.ErrParse) || convert.KindOf(err) != convert.KindParse {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestConvertHonorsCancellation(t *testing.T) {
	conv, _ := newConverter(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := conv.Convert(ctx, convert.Request{Subtitles: strings.NewReader(transcript), VideoPath: "v.mp4"})
	if !errors.Is(err, context.Canceled) || convert.KindOf(err) != convert.KindCanceled {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestConvertEmptyTranscript(t *testing.T) {
	conv, _ := newConverter(t, "")
	result, err := conv.Convert(context.Background(), convert.Request{Subtitles: strings.NewReader(""), VideoPath: "v.mp4"})
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if result.Lines != 0 || !strings.Contains(string(result.Document), "<body/>") {
		t.Fatalf("expected empty body, got:\n%s", result.Document)
	}
}

func TestConvertLargeTranscriptStaysOrdered(t *testing.T) {
	var b strings.Builder
	b.WriteString("header\n")
	for i := range 500 {
		fmt.Fprintf(&b, "00:%02d:%02d,000|00:%02d:%02d,500|cue %d\n", i/60, i%60, i/60, i%60, i)
	}
	conv, _ := newConverter(t, "")
	result, err := conv.Convert(context.Background(), convert.Request{Subtitles: strings.NewReader(b.String()), VideoPath: "v.mp4"})
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	doc, err := detx.Decode(bytes.NewReader(result.Document))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Lines) != 500 {
		t.Fatalf("expected 500 lines, got %d", len(doc.Lines))
	}
	for i, line := range doc.Lines {
		if line.Text != fmt.Sprintf("cue %d", i) {
			t.Fatalf("line %d out of order: %q", i, line.Text)
		}
	}
}

func TestConvertSkipsOverlongRow(t *testing.T) {
	input := "header\n00:00:01,000|00:00:02,000|" + strings.Repeat("x", 2<<20) +
		"\n00:00:03,000|00:00:04,000|{\\an8}\n00:00:05,000|00:00:06,000|kept\n"
	conv, logs := newConverter(t, "")
	result, err := conv.Convert(context.Background(), convert.Request{Subtitles: strings.NewReader(input), VideoPath: "v.mp4"})
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if result.Lines != 2 || result.Stats.RowErrors != 1 {
		t.Fatalf("expected 2 lines and one row error, got lines=%d stats=%+v", result.Lines, result.Stats)
	}
	doc, err := detx.Decode(bytes.NewReader(result.Document))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Lines[0].Text != "" || doc.Lines[1].Text != "kept" {
		t.Fatalf("unexpected line texts: %q, %q", doc.Lines[0].Text, doc.Lines[1].Text)
	}
	if !strings.Contains(logs.String(), "row_too_long") {
		t.Fatalf("expected overlong row warning, got:\n%s", logs.String())
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    convert.Policy
		wantErr bool
	}{
		{in: "", want: convert.PolicyPassThrough},
		{in: "pass-through", want: convert.PolicyPassThrough},
		{in: " REJECT ", want: convert.PolicyReject},
		{in: "guess", wantErr: true},
	}
	for _, tt := range tests {
		got, err := convert.ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePolicy(%q) = (%q, %v)", tt.in, got, err)
		}
	}
}

func TestKindString(t *testing.T) {
	if convert.KindOf(errors.New("boom")) != convert.KindInternal {
		t.Fatal("unknown errors must be internal")
	}
	if convert.KindPrecondition.String() != "precondition" || convert.KindInternal.String() != "internal" {
		t.Fatal("unexpected kind names")
	}
}
