package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "  plain.txt ", want: "plain.txt"},
		{in: `a/b\c:d*e`, want: "a-b-c-d-e"},
		{in: `what?"<>|`, want: "what"},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDETXName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "episode.txt", want: "episode.detx"},
		{in: "/tmp/uploads/show.s01e02.csv", want: "show.s01e02.detx"},
		{in: `C:\Users\me\movie.txt`, want: "movie.detx"},
		{in: "noext", want: "noext.detx"},
		{in: "", want: "subtitles.detx"},
		{in: "-", want: "subtitles.detx"},
		{in: "a|b.txt", want: "ab.detx"},
	}
	for _, tt := range tests {
		if got := DETXName(tt.in); got != tt.want {
			t.Errorf("DETXName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
