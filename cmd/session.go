package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BioHazard786/warpmesh/internal/config"
	"github.com/BioHazard786/warpmesh/internal/negotiation"
	"github.com/BioHazard786/warpmesh/internal/rtc"
	"github.com/BioHazard786/warpmesh/internal/signaling"
	"github.com/BioHazard786/warpmesh/internal/ui"
	"github.com/BioHazard786/warpmesh/internal/version"
	"github.com/spf13/cobra"
)

const leaveTimeout = 2 * time.Second

// roomFlags are shared by create and join.
type roomFlags struct {
	server   string
	domain   string
	stun     string
	turn     string
	turnUser string
	turnPass string
	relay    bool
	name     string
	media    string
	timeout  time.Duration
	plain    bool
}

func (f *roomFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.server, "server", "", "Signaling relay URL (ws:// or wss://)")
	cmd.Flags().StringVarP(&f.domain, "domain", "d", "", "Custom domain")
	cmd.Flags().StringVarP(&f.stun, "stun", "s", "", "Custom STUN server")
	cmd.Flags().StringVarP(&f.turn, "turn", "t", "", "Custom TURN server")
	cmd.Flags().StringVarP(&f.turnUser, "turn-user", "u", "", "TURN username")
	cmd.Flags().StringVarP(&f.turnPass, "turn-pass", "p", "", "TURN password")
	cmd.Flags().BoolVarP(&f.relay, "relay", "r", false, "Force relay mode")
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Display name shown to other peers")
	cmd.Flags().StringVarP(&f.media, "media", "m", "", `Local tracks to publish: "audio", "video", "audio,video" or "none"`)
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Negotiation timeout per peer (negative disables)")
	cmd.Flags().BoolVar(&f.plain, "plain", false, "Print events line by line instead of the live view")
}

func (f *roomFlags) options() config.Options {
	return config.Options{
		Server:             f.server,
		Domain:             f.domain,
		STUNServer:         f.stun,
		TURNServer:         f.turn,
		TURNUser:           f.turnUser,
		TURNPass:           f.turnPass,
		ForceRelay:         f.relay,
		NegotiationTimeout: f.timeout,
		DisplayName:        f.name,
		Media:              f.media,
	}
}

func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}

	return cfg, nil
}

// RoomSession wires the relay connection, the pion factory and the
// negotiation coordinator for one room.
type RoomSession struct {
	Config      *config.Config
	Client      *signaling.Client
	Factory     *rtc.Factory
	Coordinator *negotiation.Coordinator
	Log         *ui.SessionLog
}

func NewRoomSession(ctx context.Context, cfg *config.Config) (*RoomSession, error) {
	stopSpinner := ui.RunConnectionSpinner("Connecting to relay...")
	client, err := signaling.Dial(ctx, cfg.WebSocketURL)
	stopSpinner()
	if err != nil {
		return nil, fmt.Errorf("connect to relay: %w", err)
	}

	api, err := rtc.NewAPI(slog.Default())
	if err != nil {
		client.Close()
		return nil, err
	}
	factory := rtc.NewFactory(api, cfg, rtc.Hello{Name: cfg.DisplayName, Version: version.Version}, slog.Default())

	var stream negotiation.LocalStream
	if len(cfg.Media) > 0 {
		s, err := rtc.NewLocalStream(cfg.Media)
		if err != nil {
			client.Close()
			return nil, err
		}
		stream = s
	}

	opts := negotiation.DefaultOptions()
	opts.NegotiationTimeout = cfg.NegotiationTimeout
	opts.Logger = slog.Default()

	return &RoomSession{
		Config:      cfg,
		Client:      client,
		Factory:     factory,
		Coordinator: negotiation.NewCoordinator(client, factory, stream, opts),
		Log:         ui.NewSessionLog(time.Now()),
	}, nil
}

// Close leaves the room, if any, and drops the relay connection.
func (s *RoomSession) Close() {
	s.Coordinator.Close()
	s.Client.Close()
}

// Run shows the room until the user quits, ctx is cancelled or the relay
// connection is lost, then prints the session summary.
func (s *RoomSession) Run(ctx context.Context, title, roomID string, plain bool) error {
	fmt.Println()
	ui.RenderRoomInfo(title, roomID, s.Config.GetRoomLink(roomID))
	fmt.Println()

	lost := s.watchRelay()

	var err error
	if plain {
		err = s.runPlain(ctx, lost)
	} else {
		err = s.runLive(ctx, roomID, lost)
	}

	leaveCtx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	if leaveErr := s.Coordinator.Leave(leaveCtx); leaveErr != nil && !errors.Is(leaveErr, negotiation.ErrNotBound) {
		slog.Debug("leave room", "err", leaveErr)
	} else if leaveErr == nil {
		ui.PrintSuccess(fmt.Sprintf("Left room %s", roomID))
	}
	s.drain()

	ui.RenderSummary(s.Log, time.Now())
	return err
}

// watchRelay reports the error that ended the relay connection.
func (s *RoomSession) watchRelay() <-chan error {
	lost := make(chan error, 1)
	sub := s.Client.Subscribe()
	go func() {
		defer sub.Close()
		for ev := range sub.Events() {
			if d, ok := ev.(signaling.Disconnected); ok {
				err := d.Err
				if err == nil {
					err = signaling.ErrClosed
				}
				lost <- fmt.Errorf("relay connection lost: %w", err)
				return
			}
		}
	}()
	return lost
}

func (s *RoomSession) runPlain(ctx context.Context, lost <-chan error) error {
	s.Factory.OnHello(func(peerID string, h rtc.Hello) {
		s.Log.SetName(peerID, h.Name)
		ui.PrintInfof("%s says hello (warpmesh %s)", h.Name, h.Version)
	})

	events := s.Coordinator.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-lost:
			return err
		case ev := <-events:
			s.Log.Record(ev, time.Now())
			fmt.Println(ui.FormatEvent(ev, s.Log.Name))
		}
	}
}

func (s *RoomSession) runLive(ctx context.Context, roomID string, lost <-chan error) error {
	view := ui.NewRoomView(s.Coordinator, s.Log, roomID, s.Config.GetRoomLink(roomID))
	s.Factory.OnHello(func(peerID string, h rtc.Hello) {
		view.Hello(peerID, h.Name)
	})
	done := view.Start()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
	case err = <-lost:
	}
	if stopErr := view.Stop(); stopErr != nil && err == nil {
		err = fmt.Errorf("room view: %w", stopErr)
	}
	return err
}

// drain records events that are already queued so the summary sees the teardown.
func (s *RoomSession) drain() {
	events := s.Coordinator.Events()
	for {
		select {
		case ev := <-events:
			s.Log.Record(ev, time.Now())
		default:
			return
		}
	}
}
