package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Martian-dev/crm-sync-infra/internal/hubspot"
	natsjs "github.com/Martian-dev/crm-sync-infra/internal/nats"
	"github.com/Martian-dev/crm-sync-infra/internal/store"
	"github.com/Martian-dev/crm-sync-infra/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		accounts, err := store.Open(viper.GetString("db.path"))
		if err != nil {
			return fmt.Errorf("open account store: %w", err)
		}
		defer accounts.Close()

		publisher, err := natsjs.NewPublisher(viper.GetString("nats.url"))
		if err != nil {
			return fmt.Errorf("connect sink: %w", err)
		}
		defer publisher.Close()

		if err := publisher.EnsureStream(ctx); err != nil {
			return fmt.Errorf("ensure sink stream: %w", err)
		}

		client := hubspot.NewClient(
			viper.GetString("hubspot.api_url"),
			viper.GetString("hubspot.client_id"),
			viper.GetString("hubspot.client_secret"),
		)

		runner := &syncer.Runner{
			Accounts: accounts,
			Client:   client,
			Sink:     publisher,
		}

		return runner.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
