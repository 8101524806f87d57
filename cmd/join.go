package cmd

import (
	"github.com/BioHazard786/warpmesh/internal/config"
	"github.com/spf13/cobra"
)

var joinFlags roomFlags

var joinCmd = &cobra.Command{
	Use:     "join <room-id|url>",
	Aliases: []string{"j"},
	Short:   "Join an existing room",
	Long: `Join a room and connect to every participant already in it.

Examples:
  warpmesh join brave-otter-ramen-42
  warpmesh join https://warpmesh.qzz.io/r/brave-otter-ramen-42
  warpmesh join brave-otter-ramen-42 --relay --media none`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		roomID, err := config.RoomIDFromArg(args[0])
		if err != nil {
			return err
		}

		cfg, err := LoadConfig(joinFlags.options())
		if err != nil {
			return err
		}

		session, err := NewRoomSession(ctx, cfg)
		if err != nil {
			return err
		}
		defer session.Close()

		if err := session.Coordinator.Join(ctx, roomID); err != nil {
			return err
		}

		return session.Run(ctx, "Joined room", roomID, joinFlags.plain)
	},
}

func init() {
	rootCmd.AddCommand(joinCmd)
	joinFlags.register(joinCmd)
}
