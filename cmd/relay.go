package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/BioHazard786/warpmesh/internal/config"
	"github.com/BioHazard786/warpmesh/internal/logging"
	"github.com/BioHazard786/warpmesh/internal/relay"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var relayFlags config.RelayOptions

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the signaling relay",
	Long: `Run a signaling relay. Clients connect to /ws; /health and /rooms are
served for monitoring.

Examples:
  warpmesh relay
  warpmesh relay --addr :9000 --max-room-size 4
  PORT=9000 LOG_LEVEL=debug warpmesh relay`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadRelay(relayFlags)
		if err != nil {
			return err
		}
		return runRelay(cmd.Context(), cfg)
	},
}

func runRelay(ctx context.Context, cfg *config.RelayConfig) error {
	log := logging.Relay(os.Stderr, cfg.LogLevel)

	opts := relay.DefaultOptions()
	opts.MaxRoomSize = cfg.MaxRoomSize
	hub := relay.NewHub(opts, log)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           relay.NewRouter(hub, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := hub.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Int("max_room_size", cfg.MaxRoomSize).Msg("Starting signaling relay")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("Shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func init() {
	rootCmd.AddCommand(relayCmd)

	relayCmd.Flags().StringVarP(&relayFlags.Addr, "addr", "a", "", "Listen address (default :8080, or :$PORT)")
	relayCmd.Flags().IntVar(&relayFlags.MaxRoomSize, "max-room-size", 0, "Maximum participants per room")
}
