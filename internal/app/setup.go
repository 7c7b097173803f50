package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Martian-dev/crm-sync-infra/internal/store"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the account database and register a CRM portal",
	Long:  "Applies the schema and inserts (or updates) an account record with its refresh token",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		hubID, _ := cmd.Flags().GetString("hub-id")
		refreshToken, _ := cmd.Flags().GetString("refresh-token")
		if hubID == "" {
			return fmt.Errorf("--hub-id is required")
		}

		accounts, err := store.Open(viper.GetString("db.path"))
		if err != nil {
			return fmt.Errorf("open account store: %w", err)
		}
		defer accounts.Close()

		account := &store.Account{
			HubID:        hubID,
			RefreshToken: refreshToken,
		}
		if err := accounts.CreateAccount(ctx, account); err != nil {
			return fmt.Errorf("create account: %w", err)
		}

		fmt.Printf("account %s registered\n", hubID)
		return nil
	},
}

func init() {
	setupCmd.Flags().String("hub-id", "", "CRM portal identifier")
	setupCmd.Flags().String("refresh-token", "", "OAuth refresh token for the portal")

	rootCmd.AddCommand(setupCmd)
}
