package rtc

import (
	"fmt"

	"github.com/BioHazard786/warpmesh/internal/config"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

// LocalStream is the set of local tracks attached to every connection. The
// caller owns it and writes samples; connections only read from it.
type LocalStream struct {
	id     string
	tracks map[string]*webrtc.TrackLocalStaticSample
	kinds  []string
}

// NewLocalStream creates one track per kind: opus for audio, VP8 for video.
func NewLocalStream(kinds []string) (*LocalStream, error) {
	s := &LocalStream{
		id:     "warpmesh-" + uuid.NewString(),
		tracks: make(map[string]*webrtc.TrackLocalStaticSample),
	}
	for _, kind := range kinds {
		if _, ok := s.tracks[kind]; ok {
			continue
		}
		var codec webrtc.RTPCodecCapability
		switch kind {
		case config.MediaAudio:
			codec = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
		case config.MediaVideo:
			codec = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
		default:
			return nil, fmt.Errorf("%w: %q", config.ErrInvalidMedia, kind)
		}
		track, err := webrtc.NewTrackLocalStaticSample(codec, kind, s.id)
		if err != nil {
			return nil, fmt.Errorf("create %s track: %w", kind, err)
		}
		s.tracks[kind] = track
		s.kinds = append(s.kinds, kind)
	}
	return s, nil
}

func (s *LocalStream) ID() string {
	return s.id
}

// Kinds returns the track kinds in creation order.
func (s *LocalStream) Kinds() []string {
	return append([]string(nil), s.kinds...)
}

// Track returns the track for kind, or nil.
func (s *LocalStream) Track(kind string) *webrtc.TrackLocalStaticSample {
	return s.tracks[kind]
}

func (s *LocalStream) Tracks() []webrtc.TrackLocal {
	tracks := make([]webrtc.TrackLocal, 0, len(s.kinds))
	for _, kind := range s.kinds {
		tracks = append(tracks, s.tracks[kind])
	}
	return tracks
}
