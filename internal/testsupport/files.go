package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TranscriptHeader is the column header used by generated transcripts.
const TranscriptHeader = "TimerStart|TimerEnd|Text|Speaker"

// Transcript renders count cues, one second apart, as a pipe-delimited
// transcript with a header line.
func Transcript(count int) string {
	var b strings.Builder
	b.WriteString(TranscriptHeader)
	b.WriteByte('\n')
	for i := range count {
		fmt.Fprintf(&b, "00:%02d:%02d,000|00:%02d:%02d,500|Line %d|S%d\n",
			i/60, i%60, i/60, i%60, i+1, i%3)
	}
	return b.String()
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
