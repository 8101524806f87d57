package rtc

import (
	"fmt"

	"github.com/BioHazard786/warpmesh/internal/signaling"
	"github.com/pion/sdp/v3"
)

// MediaSection is one m= line of a session description.
type MediaSection struct {
	Kind      string
	Direction string
}

// parseDescription validates the SDP body of desc.
func parseDescription(desc signaling.SessionDescription) (*sdp.SessionDescription, error) {
	if desc.SDP == "" {
		return nil, fmt.Errorf("%w: empty %s", ErrInvalidDescription, desc.Type)
	}
	parsed := &sdp.SessionDescription{}
	if err := parsed.Unmarshal([]byte(desc.SDP)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescription, err)
	}
	if len(parsed.MediaDescriptions) == 0 {
		return nil, fmt.Errorf("%w: no media sections", ErrInvalidDescription)
	}
	return parsed, nil
}

// summarize lists the media sections of a parsed description.
func summarize(parsed *sdp.SessionDescription) []MediaSection {
	sections := make([]MediaSection, 0, len(parsed.MediaDescriptions))
	for _, md := range parsed.MediaDescriptions {
		direction := ""
		for _, d := range []string{"sendrecv", "sendonly", "recvonly", "inactive"} {
			if _, ok := md.Attribute(d); ok {
				direction = d
				break
			}
		}
		sections = append(sections, MediaSection{Kind: md.MediaName.Media, Direction: direction})
	}
	return sections
}

// Summarize parses desc and lists its media sections.
func Summarize(desc signaling.SessionDescription) ([]MediaSection, error) {
	parsed, err := parseDescription(desc)
	if err != nil {
		return nil, err
	}
	return summarize(parsed), nil
}
