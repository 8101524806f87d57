package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BioHazard786/warpmesh/internal/negotiation"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

const eventLogLines = 8

// RoomSource is the part of the coordinator the live view reads.
type RoomSource interface {
	Events() <-chan negotiation.Event
	Peers() []negotiation.PeerInfo
}

// TickMsg refreshes the uptime column.
type TickMsg time.Time

// HelloMsg reports a peer's display name.
type HelloMsg struct {
	PeerID string
	Name   string
}

type eventMsg struct {
	event negotiation.Event
	at    time.Time
}

// RoomView is the interactive room screen.
type RoomView struct {
	program *tea.Program
	model   *roomModel
	wg      sync.WaitGroup
	err     error
	once    sync.Once
}

type roomModel struct {
	src      RoomSource
	log      *SessionLog
	roomID   string
	link     string
	lines    []string
	spinner  spinner.Model
	now      time.Time
	quitting bool

	// done stops the pending event read once the view is stopped, so later
	// events stay on the channel for the caller.
	done chan struct{}
}

// NewRoomView creates a view over src. Every event it reads is also recorded in log.
func NewRoomView(src RoomSource, log *SessionLog, roomID, link string) *RoomView {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	model := &roomModel{
		src:     src,
		log:     log,
		roomID:  roomID,
		link:    link,
		spinner: s,
		now:     time.Now(),
		done:    make(chan struct{}),
	}
	return &RoomView{model: model, program: tea.NewProgram(model)}
}

// Start runs the program in the background. Done is closed when the user quits
// or Stop is called.
func (v *RoomView) Start() (done <-chan struct{}) {
	ch := make(chan struct{})
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		defer close(ch)
		// Inline mode keeps the room banner above the view.
		if _, err := v.program.Run(); err != nil {
			v.err = err
		}
	}()
	return ch
}

// Hello records a peer name. Safe from any goroutine.
func (v *RoomView) Hello(peerID, name string) {
	go v.program.Send(HelloMsg{PeerID: peerID, Name: name})
}

// Stop quits the program and waits for it to restore the terminal. Events
// published afterwards are left on the source channel.
func (v *RoomView) Stop() error {
	v.stopListening()
	v.program.Quit()
	v.wg.Wait()
	return v.err
}

func (v *RoomView) stopListening() {
	v.once.Do(func() { close(v.model.done) })
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m *roomModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvents(), tick())
}

// listenForEvents records the next event as soon as it is read, so it reaches
// the session log even if the program quits before handling the message.
func (m *roomModel) listenForEvents() tea.Cmd {
	events, done, log := m.src.Events(), m.done, m.log
	return func() tea.Msg {
		select {
		case ev := <-events:
			at := time.Now()
			log.Record(ev, at)
			return eventMsg{event: ev, at: at}
		case <-done:
			return nil
		}
	}
}

func (m *roomModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		m.now = time.Time(msg)
		if !m.quitting {
			return m, tick()
		}

	case HelloMsg:
		m.log.SetName(msg.PeerID, msg.Name)
		m.appendLine(fmt.Sprintf("%s %s says hello", IconPeer, msg.Name))

	case eventMsg:
		m.appendLine(FormatEvent(msg.event, m.log.Name))
		return m, m.listenForEvents()
	}
	return m, nil
}

func (m *roomModel) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > eventLogLines {
		m.lines = m.lines[len(m.lines)-eventLogLines:]
	}
}

func (m *roomModel) rows() []PeerRow {
	peers := m.src.Peers()
	rows := make([]PeerRow, 0, len(peers))
	for _, p := range peers {
		rows = append(rows, PeerRow{
			ID:      p.ID,
			Name:    m.log.Name(p.ID),
			Phase:   p.Phase,
			Streams: p.Streams,
			Since:   p.Since,
		})
	}
	return rows
}

func (m *roomModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s Room %s", IconRoom, m.roomID)))
	b.WriteString("\n")
	if m.link != "" {
		b.WriteString(MutedStyle.Render(m.link) + "\n\n")
	}

	rows := m.rows()
	if len(rows) == 0 {
		b.WriteString(fmt.Sprintf("%s Waiting for peers...\n", m.spinner.View()))
	} else {
		b.WriteString(PeerTableView(rows, m.now))
		b.WriteString("\n")
	}

	if len(m.lines) > 0 {
		b.WriteString("\n")
		for _, line := range m.lines {
			b.WriteString(line + "\n")
		}
	}

	b.WriteString(FooterStyle.Render("Press q to leave the room"))
	return b.String()
}
