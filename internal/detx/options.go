package detx

import "subdetx/internal/timecode"

const (
	DefaultCopyright       = "Chinkel S.A., 2007-2024"
	DefaultCappellaVersion = "3.7.0"
	DefaultTitle           = "Converted Subtitles"
	DefaultEpisode         = "1"
	DefaultVideoTimestamp  = "01:00:00:00"
	DefaultTrack           = "1"
	DefaultOpenMarker      = "in_open"
	DefaultCloseMarker     = "out_close"
)

// RoleOptions identifies the speaker every line is attributed to.
type RoleOptions struct {
	ID          string
	Name        string
	Color       string
	Gender      string
	Description string
}

// Options holds the fixed metadata stamped into every document.
type Options struct {
	FPS             int
	Copyright       string
	CappellaVersion string
	Title           string
	Title2          string
	Episode         string
	VideoTimestamp  string
	Role            RoleOptions
	Track           string
	OpenMarker      string
	CloseMarker     string
}

// DefaultOptions returns the metadata the consuming tool ships with.
func DefaultOptions() Options {
	return Options{
		FPS:             timecode.DefaultFPS,
		Copyright:       DefaultCopyright,
		CappellaVersion: DefaultCappellaVersion,
		Title:           DefaultTitle,
		Episode:         DefaultEpisode,
		VideoTimestamp:  DefaultVideoTimestamp,
		Role: RoleOptions{
			ID:     "placeholder",
			Name:   "Placeholder",
			Color:  "#000000",
			Gender: "unknown",
		},
		Track:       DefaultTrack,
		OpenMarker:  DefaultOpenMarker,
		CloseMarker: DefaultCloseMarker,
	}
}

// withDefaults fills zero-valued fields that would otherwise produce an
// unusable document.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.FPS <= 0 {
		o.FPS = def.FPS
	}
	if o.Episode == "" {
		o.Episode = def.Episode
	}
	if o.VideoTimestamp == "" {
		o.VideoTimestamp = def.VideoTimestamp
	}
	if o.Role.ID == "" {
		o.Role = def.Role
	}
	if o.Track == "" {
		o.Track = def.Track
	}
	if o.OpenMarker == "" {
		o.OpenMarker = def.OpenMarker
	}
	if o.CloseMarker == "" {
		o.CloseMarker = def.CloseMarker
	}
	return o
}
