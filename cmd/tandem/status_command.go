package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tandem/internal/config"
	"tandem/internal/deps"
	"tandem/internal/queue"
	"tandem/internal/services/audiobookshelf"
	"tandem/internal/services/kosync"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var skipProviders bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue totals and provider connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}

				rows := [][]string{
					{"Queue database", store.Path()},
					{"Mappings", strconv.Itoa(health.Total)},
					{"Pending", strconv.Itoa(health.Pending)},
					{"Active", strconv.Itoa(health.Active)},
					{"Failed", strconv.Itoa(health.Failed)},
				}

				for _, tool := range deps.Check(deps.Tooling(cfg)) {
					value := "available"
					if !tool.Available {
						value = tool.Detail
					}
					rows = append(rows, []string{"Tool: " + tool.Name, value})
				}

				if !skipProviders {
					rows = append(rows, providerRows(cmd, cfg)...)
				}

				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Item", "Value"}, rows))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&skipProviders, "offline", false, "Skip provider connectivity checks")
	return cmd
}

func providerRows(cmd *cobra.Command, cfg *config.Config) [][]string {
	var rows [][]string

	username, err := audiobookshelf.New(cfg).CheckConnection(cmd.Context())
	if err != nil {
		rows = append(rows, []string{"Audiobookshelf", "unreachable: " + truncate(err.Error(), 60)})
	} else {
		rows = append(rows, []string{"Audiobookshelf", "connected as " + username})
	}

	koErr := kosync.New(cfg).CheckConnection(cmd.Context())
	rows = append(rows, []string{"KoSync reachable", yesNo(koErr == nil)})
	return rows
}
