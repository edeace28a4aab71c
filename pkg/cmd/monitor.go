package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tvloop/tvloop/pkg/configs"
	"github.com/tvloop/tvloop/pkg/internal/client"
	"github.com/tvloop/tvloop/pkg/internal/player"
	"github.com/tvloop/tvloop/pkg/log"
)

var (
	monitorStore string

	monitorCmd = &cobra.Command{
		Use:   "monitor",
		Short: "kiosk player: loop a store's videos on this screen",
		RunE: func(cmd *cobra.Command, args []string) error {
			if monitorStore == "" {
				return errors.New("--store is required")
			}

			cfg := configs.GetConfig()

			cl := client.New(monitorStore, &cfg.Poller)
			seq := player.NewSequencer(
				player.NewExecPlayback(&cfg.Player),
				player.NewStoreSource(cl),
				&cfg.Player,
				nil,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Logger().Info().Str("store", monitorStore).Msg("Monitor started")

			if err := seq.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			return nil
		},
	}
)

func registerMonitorCommands() {
	monitorCmd.Flags().StringVar(&monitorStore, "store", "", "store base URL to play from")
	rootCmd.AddCommand(monitorCmd)
}
