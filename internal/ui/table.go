package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/BioHazard786/warpmesh/internal/negotiation"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// PeerRow is one line of the live peer table.
type PeerRow struct {
	ID      string
	Name    string
	Phase   negotiation.Phase
	Streams []negotiation.Track
	Since   time.Time
}

// PeerTableView renders rows with lipgloss/table.
func PeerTableView(rows []PeerRow, now time.Time) string {
	if len(rows) == 0 {
		return MutedStyle.Render("No peers yet")
	}

	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		name := r.Name
		if name == "" {
			name = "-"
		}
		cells = append(cells, []string{
			truncate(r.ID, 12),
			truncate(name, 20),
			PhaseStyle(r.Phase).Render(r.Phase.String()),
			streamSummary(r.Streams),
			formatDuration(now.Sub(r.Since)),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Peer", "Name", "Phase", "Streams", "Up").
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		}).
		Render()
}

// streamSummary counts tracks by kind, e.g. "1 audio, 1 video".
func streamSummary(tracks []negotiation.Track) string {
	if len(tracks) == 0 {
		return "-"
	}
	counts := map[string]int{}
	var kinds []string
	for _, t := range tracks {
		if counts[t.Kind] == 0 {
			kinds = append(kinds, t.Kind)
		}
		counts[t.Kind]++
	}
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%d %s", counts[k], k))
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// RoomInfoView is the box shown after a room is created or joined.
func RoomInfoView(title, roomID, roomLink string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Success).
		Padding(1, 2)

	content := fmt.Sprintf("%s %s\n\n%s Room ID:    %s\n%s Room Link:  %s",
		IconSuccess, title,
		IconCopy, BoldStyle.Foreground(Primary).Render(roomID),
		IconWeb, MutedStyle.Render(roomLink),
	)
	return boxStyle.Render(content)
}

func RenderRoomInfo(title, roomID, roomLink string) {
	fmt.Println(RoomInfoView(title, roomID, roomLink))
}
