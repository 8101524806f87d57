package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/BioHazard786/warpmesh/internal/ui"
	"github.com/BioHazard786/warpmesh/internal/version"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "warpmesh",
	Short: "Peer-to-peer WebRTC rooms over a lightweight signaling relay",
	Long: `WarpMesh connects every participant of a room directly to every other one
using WebRTC. A small relay carries only the signaling: room membership,
session descriptions and ICE candidates. Media never touches it.

Run "warpmesh relay" to host your own relay.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}
