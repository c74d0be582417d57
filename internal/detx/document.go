package detx

import (
	"encoding/xml"
	"errors"
	"strings"

	"subdetx/internal/cues"
	"subdetx/internal/timecode"
)

// ErrMissingVideo is returned by Build when no video reference is supplied.
var ErrMissingVideo = errors.New("video path is required")

// Document is a complete DETX tree. The xml tags describe the on-disk shape
// for Decode; WriteTo serializes the same shape.
type Document struct {
	XMLName   xml.Name `xml:"detx" json:"-"`
	Copyright string   `xml:"copyright,attr" json:"copyright"`
	Header    Header   `xml:"header" json:"header"`
	Roles     []Role   `xml:"roles>role" json:"roles"`
	Lines     []Line   `xml:"body>line" json:"lines"`
}

// Header carries tool, title, and media metadata.
type Header struct {
	Cappella  Cappella  `xml:"cappella" json:"cappella"`
	Title     string    `xml:"title" json:"title"`
	Title2    string    `xml:"title2" json:"title2"`
	Episode   Episode   `xml:"episode" json:"episode"`
	VideoFile MediaFile `xml:"videofile" json:"videofile"`
	AudioFile MediaFile `xml:"audiofile" json:"audiofile"`
}

type Cappella struct {
	Version string `xml:"version,attr" json:"version"`
}

type Episode struct {
	Number string `xml:"number,attr" json:"number"`
}

// MediaFile references a media path; Timestamp is only set on the video.
type MediaFile struct {
	Timestamp string `xml:"timestamp,attr,omitempty" json:"timestamp,omitempty"`
	Path      string `xml:",chardata" json:"path"`
}

// Role is a speaker identity lines can be attributed to.
type Role struct {
	Color       string `xml:"color,attr" json:"color"`
	Description string `xml:"description,attr" json:"description"`
	Gender      string `xml:"gender,attr" json:"gender"`
	ID          string `xml:"id,attr" json:"id"`
	Name        string `xml:"name,attr" json:"name"`
}

// Line is one cue in the body: the opening marker, the text, and the closing
// marker, in that order.
type Line struct {
	Role    string    `xml:"role,attr" json:"role"`
	Track   string    `xml:"track,attr" json:"track"`
	LipSync []LipSync `xml:"lipsync" json:"lipsync"`
	Text    string    `xml:"text" json:"text"`
}

// LipSync marks one boundary of a line's visible interval.
type LipSync struct {
	Timecode string `xml:"timecode,attr" json:"timecode"`
	Type     string `xml:"type,attr" json:"type"`
}

// Open returns the first marker of the line.
func (l Line) Open() LipSync {
	if len(l.LipSync) == 0 {
		return LipSync{}
	}
	return l.LipSync[0]
}

// Close returns the last marker of the line.
func (l Line) Close() LipSync {
	if len(l.LipSync) < 2 {
		return LipSync{}
	}
	return l.LipSync[len(l.LipSync)-1]
}

// Build assembles a document from cues in order. The video reference is
// required; an empty audio reference yields an empty audiofile element.
func Build(items []cues.Cue, video, audio string, opts Options) (*Document, error) {
	video = strings.TrimSpace(video)
	if video == "" {
		return nil, ErrMissingVideo
	}
	opts = opts.withDefaults()

	doc := &Document{
		Copyright: opts.Copyright,
		Header: Header{
			Cappella:  Cappella{Version: opts.CappellaVersion},
			Title:     opts.Title,
			Title2:    opts.Title2,
			Episode:   Episode{Number: opts.Episode},
			VideoFile: MediaFile{Timestamp: opts.VideoTimestamp, Path: video},
			AudioFile: MediaFile{Path: strings.TrimSpace(audio)},
		},
		Roles: []Role{{
			Color:       opts.Role.Color,
			Description: opts.Role.Description,
			Gender:      opts.Role.Gender,
			ID:          opts.Role.ID,
			Name:        opts.Role.Name,
		}},
		Lines: make([]Line, 0, len(items)),
	}

	for _, cue := range items {
		start, _ := timecode.Convert(cue.Start, opts.FPS)
		end, _ := timecode.Convert(cue.End, opts.FPS)
		doc.Lines = append(doc.Lines, Line{
			Role:  opts.Role.ID,
			Track: opts.Track,
			LipSync: []LipSync{
				{Timecode: start, Type: opts.OpenMarker},
				{Timecode: end, Type: opts.CloseMarker},
			},
			Text: cue.Text,
		})
	}
	return doc, nil
}
