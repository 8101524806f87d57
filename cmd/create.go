package cmd

import (
	"github.com/BioHazard786/warpmesh/internal/ui"
	"github.com/spf13/cobra"
)

var createFlags roomFlags

var createCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"c"},
	Short:   "Create a room and wait for peers",
	Long: `Create a new room on the relay and join it. Share the printed link or
room ID; everyone who joins is connected to everyone else.

Examples:
  warpmesh create
  warpmesh create --media audio --name alice
  warpmesh create --server ws://localhost:8080/ws --plain`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := LoadConfig(createFlags.options())
		if err != nil {
			return err
		}

		session, err := NewRoomSession(ctx, cfg)
		if err != nil {
			return err
		}
		defer session.Close()

		stopSpinner := ui.RunWaitingSpinner("Creating room...")
		roomID, err := session.Coordinator.CreateRoom(ctx)
		stopSpinner()
		if err != nil {
			return err
		}

		return session.Run(ctx, "Room created", roomID, createFlags.plain)
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
	createFlags.register(createCmd)
}
