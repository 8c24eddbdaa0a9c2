package library

import (
	"maps"
	"slices"
	"strings"
)

var audioMimeTypes = map[string]string{
	"MP3":  "audio/mpeg",
	"M4B":  "audio/mp4",
	"M4A":  "audio/mp4",
	"MP4":  "audio/mp4",
	"AAC":  "audio/aac",
	"OPUS": "audio/ogg",
	"OGG":  "audio/ogg",
	"OGA":  "audio/ogg",
	"FLAC": "audio/flac",
	"WMA":  "audio/x-ms-wma",
	"AIFF": "audio/x-aiff",
	"WEBM": "audio/webm",
	"MKA":  "audio/x-matroska",
	"AWB":  "audio/amr-wb",
	"CAF":  "audio/x-caf",
}

// FileMetadata describes the file on disk backing an audio track.
type FileMetadata struct {
	Filename    string `json:"filename"`
	Ext         string `json:"ext"`
	Path        string `json:"path"`
	RelPath     string `json:"relPath"`
	Size        int64  `json:"size"`
	MtimeMs     int64  `json:"mtimeMs"`
	CtimeMs     int64  `json:"ctimeMs"`
	BirthtimeMs int64  `json:"birthtimeMs"`
}

// Format is the upper-cased extension without the dot.
func (m FileMetadata) Format() string {
	return strings.ToUpper(strings.TrimPrefix(m.Ext, "."))
}

// Chapter is a chapter marker within an audio file, in seconds.
type Chapter struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Title string  `json:"title"`
}

// AudioFile is one track of a book with the probe results from the scanner.
type AudioFile struct {
	Index                int               `json:"index"`
	Ino                  string            `json:"ino"`
	Metadata             FileMetadata      `json:"metadata"`
	AddedAt              int64             `json:"addedAt"`
	UpdatedAt            int64             `json:"updatedAt"`
	TrackNumFromMeta     *int              `json:"trackNumFromMeta"`
	DiscNumFromMeta      *string           `json:"discNumFromMeta"`
	TrackNumFromFilename *int              `json:"trackNumFromFilename"`
	DiscNumFromFilename  *string           `json:"discNumFromFilename"`
	ManuallyVerified     bool              `json:"manuallyVerified"`
	Invalid              bool              `json:"invalid"`
	Exclude              bool              `json:"exclude"`
	Error                *string           `json:"error"`
	Format               string            `json:"format"`
	Duration             float64           `json:"duration"`
	BitRate              int               `json:"bitRate"`
	Language             *string           `json:"language"`
	Codec                *string           `json:"codec"`
	TimeBase             string            `json:"timeBase"`
	Channels             int               `json:"channels"`
	ChannelLayout        string            `json:"channelLayout"`
	Chapters             []Chapter         `json:"chapters"`
	EmbeddedCoverArt     *string           `json:"embeddedCoverArt"`
	MetaTags             map[string]string `json:"metaTags"`
}

// MimeType derives the content type from the file extension, falling back
// to MP3.
func (f *AudioFile) MimeType() string {
	if mime, ok := audioMimeTypes[f.Metadata.Format()]; ok {
		return mime
	}
	return audioMimeTypes["MP3"]
}

// IsValidTrack reports whether the file takes part in playback.
func (f *AudioFile) IsValidTrack() bool {
	return !f.Invalid && !f.Exclude
}

// SyncChapters replaces the chapter list when it differs from updated.
func (f *AudioFile) SyncChapters(updated []Chapter) bool {
	if slices.Equal(f.Chapters, updated) {
		return false
	}
	f.Chapters = slices.Clone(updated)
	if f.Chapters == nil {
		f.Chapters = []Chapter{}
	}
	return true
}

func (f *AudioFile) Clone() *AudioFile {
	out := *f
	out.TrackNumFromMeta = clonePtr(f.TrackNumFromMeta)
	out.DiscNumFromMeta = clonePtr(f.DiscNumFromMeta)
	out.TrackNumFromFilename = clonePtr(f.TrackNumFromFilename)
	out.DiscNumFromFilename = clonePtr(f.DiscNumFromFilename)
	out.Error = clonePtr(f.Error)
	out.Language = clonePtr(f.Language)
	out.Codec = clonePtr(f.Codec)
	out.EmbeddedCoverArt = clonePtr(f.EmbeddedCoverArt)
	out.Chapters = slices.Clone(f.Chapters)
	out.MetaTags = maps.Clone(f.MetaTags)
	return &out
}

// UpdateFromScan copies the values of a freshly scanned file onto f and
// reports whether anything changed. The manually verified flag and the
// add/update timestamps belong to the stored record and are never copied.
func (f *AudioFile) UpdateFromScan(scanned *AudioFile) bool {
	if scanned == nil {
		return false
	}
	changed := false
	if f.Metadata != scanned.Metadata {
		f.Metadata = scanned.Metadata
		changed = true
	}
	if !maps.Equal(f.MetaTags, scanned.MetaTags) {
		f.MetaTags = maps.Clone(scanned.MetaTags)
		changed = true
	}
	if f.SyncChapters(scanned.Chapters) {
		changed = true
	}
	changed = assign(&f.Index, scanned.Index) || changed
	changed = assign(&f.Ino, scanned.Ino) || changed
	changed = assign(&f.Invalid, scanned.Invalid) || changed
	changed = assign(&f.Exclude, scanned.Exclude) || changed
	changed = assign(&f.Format, scanned.Format) || changed
	changed = assign(&f.Duration, scanned.Duration) || changed
	changed = assign(&f.BitRate, scanned.BitRate) || changed
	changed = assign(&f.TimeBase, scanned.TimeBase) || changed
	changed = assign(&f.Channels, scanned.Channels) || changed
	changed = assign(&f.ChannelLayout, scanned.ChannelLayout) || changed
	changed = assignPtr(&f.TrackNumFromMeta, scanned.TrackNumFromMeta) || changed
	changed = assignPtr(&f.DiscNumFromMeta, scanned.DiscNumFromMeta) || changed
	changed = assignPtr(&f.TrackNumFromFilename, scanned.TrackNumFromFilename) || changed
	changed = assignPtr(&f.DiscNumFromFilename, scanned.DiscNumFromFilename) || changed
	changed = assignPtr(&f.Error, scanned.Error) || changed
	changed = assignPtr(&f.Language, scanned.Language) || changed
	changed = assignPtr(&f.Codec, scanned.Codec) || changed
	changed = assignPtr(&f.EmbeddedCoverArt, scanned.EmbeddedCoverArt) || changed
	return changed
}

func assign[T comparable](dst *T, v T) bool {
	if *dst == v {
		return false
	}
	*dst = v
	return true
}

func assignPtr[T comparable](dst **T, v *T) bool {
	if !differs(Optional[T]{Set: true, Value: v}, *dst) {
		return false
	}
	*dst = clonePtr(v)
	return true
}
