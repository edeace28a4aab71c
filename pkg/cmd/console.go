package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tvloop/tvloop/pkg/configs"
	"github.com/tvloop/tvloop/pkg/internal/poller"
	"github.com/tvloop/tvloop/pkg/internal/registry"
	"github.com/tvloop/tvloop/pkg/log"
	"github.com/tvloop/tvloop/pkg/scheduler"
)

var (
	consoleCmd = &cobra.Command{
		Use:   "console",
		Short: "fleet console: manage display endpoints and poll their stores",
	}

	consoleRunCmd = &cobra.Command{
		Use:   "run",
		Short: "poll every registered endpoint until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry()
			if err != nil {
				return err
			}

			sched, err := scheduler.NewScheduler()
			if err != nil {
				return err
			}

			cfg := configs.GetConfig()
			p := poller.New(reg, sched, &cfg.Poller, nil, nil)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := p.Start(ctx); err != nil {
				return err
			}

			// Pick up add/remove executed in another process while we run.
			if watcher, err := fsnotify.NewWatcher(); err != nil {
				log.Logger().Warn().Err(err).Msg("Registry watch unavailable")
			} else {
				defer watcher.Close()

				if err := watcher.Add(filepath.Dir(cfg.Poller.RegistryFile)); err != nil {
					log.Logger().Warn().Err(err).Msg("Registry watch unavailable")
				} else {
					go watchRegistry(ctx, watcher, cfg.Poller.RegistryFile, p)
				}
			}

			sched.Start()
			log.Logger().Info().Int("endpoints", reg.Len()).Msg("Console polling started")

			<-ctx.Done()

			if err := sched.Stop(); err != nil {
				log.Logger().Warn().Err(err).Msg("Scheduler shutdown failed")
			}

			return reg.Save()
		},
	}

	addStoreAddress string
	addCaption      string
	addCity         string
	addRegion       string
	addLat          float64
	addLng          float64
	addNumber       int

	consoleAddCmd = &cobra.Command{
		Use:   "add",
		Short: "register a display endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry()
			if err != nil {
				return err
			}

			ep, err := reg.Add(registry.Endpoint{
				DisplayNumber: addNumber,
				StoreAddress:  addStoreAddress,
				Caption:       addCaption,
				City:          addCity,
				Region:        addRegion,
				Coordinates:   registry.Coordinates{Lat: addLat, Lng: addLng},
			})
			if err != nil {
				return err
			}

			if err := reg.Save(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s)\n", ep.Caption, ep.ID)

			return nil
		},
	}

	consoleListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list registered endpoints",
		Aliases: []string{"ls", "l"},
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry()
			if err != nil {
				return err
			}

			for _, ep := range reg.List() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-36s  #%-3d  %-8s  %-24s  %s\n",
					ep.ID, ep.DisplayNumber, ep.Status, ep.Caption, ep.StoreAddress)
			}

			return nil
		},
	}

	consoleRemoveCmd = &cobra.Command{
		Use:     "remove <endpoint-id>",
		Short:   "remove a display endpoint",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry()
			if err != nil {
				return err
			}

			if err := reg.Remove(args[0]); err != nil {
				return err
			}

			return reg.Save()
		},
	}
)

// watchRegistry reconciles the poller whenever the registry file changes on
// disk.
func watchRegistry(ctx context.Context, watcher *fsnotify.Watcher, file string, p *poller.Poller) {
	target := filepath.Clean(file)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != target || !event.Op.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}

			if err := p.Reconcile(ctx); err != nil {
				log.Logger().Warn().Err(err).Msg("Registry reconcile failed")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}

			log.Logger().Warn().Err(err).Msg("Registry watch error")
		}
	}
}

func loadRegistry() (*registry.Registry, error) {
	cfg := configs.GetConfig()
	reg := registry.New(afero.NewOsFs(), cfg.Poller.RegistryFile)

	if err := reg.Load(); err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	return reg, nil
}

func registerConsoleCommands() {
	consoleAddCmd.Flags().StringVar(&addStoreAddress, "store", "", "store base URL (required)")
	consoleAddCmd.Flags().StringVar(&addCaption, "caption", "", "display caption (required)")
	consoleAddCmd.Flags().StringVar(&addCity, "city", "", "city")
	consoleAddCmd.Flags().StringVar(&addRegion, "region", "", "region")
	consoleAddCmd.Flags().Float64Var(&addLat, "lat", 0, "latitude")
	consoleAddCmd.Flags().Float64Var(&addLng, "lng", 0, "longitude")
	consoleAddCmd.Flags().IntVar(&addNumber, "number", 0, "display number (0 auto-assigns)")

	consoleCmd.AddCommand(consoleRunCmd, consoleAddCmd, consoleListCmd, consoleRemoveCmd)
	rootCmd.AddCommand(consoleCmd)
}
