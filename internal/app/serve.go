package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Martian-dev/crm-sync-infra/internal/auth"
	"github.com/Martian-dev/crm-sync-infra/internal/hubspot"
	natsjs "github.com/Martian-dev/crm-sync-infra/internal/nats"
	"github.com/Martian-dev/crm-sync-infra/internal/store"
	"github.com/Martian-dev/crm-sync-infra/internal/syncer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled sync with the admin API",
	Long:  "Runs the sync pass on an interval and exposes status and trigger endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

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
		manager := syncer.NewManager(runner)

		go manager.Schedule(ctx, viper.GetDuration("sync.interval"))

		r := gin.Default()
		r.GET("/healthz", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api := r.Group("/")
		if jwksURL := viper.GetString("server.jwks_url"); jwksURL != "" {
			verifier, err := auth.NewVerifier(jwksURL)
			if err != nil {
				return fmt.Errorf("create token verifier: %w", err)
			}
			api.Use(verifier.Middleware())
		} else {
			log.Printf("server.jwks_url not set, admin API is unauthenticated")
		}

		api.GET("/sync/status", func(c *gin.Context) {
			states, err := accounts.SyncStates(c.Request.Context())
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"running": manager.IsRunning(),
				"states":  states,
			})
		})

		api.POST("/sync/run", func(c *gin.Context) {
			if err := manager.Trigger(ctx); err != nil {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"status": "started"})
		})

		srv := &http.Server{
			Addr:    viper.GetString("server.addr"),
			Handler: r,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			log.Printf("shutting down")
			manager.Stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		}
	},
}

func init() {
	serveCmd.Flags().String("server.addr", ":8080", "Admin API listen address")
	serveCmd.Flags().String("server.jwks_url", "", "JWKS URL for verifying admin API tokens")
	serveCmd.Flags().Duration("sync.interval", time.Hour, "Interval between scheduled sync passes")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("server.addr"))
	viper.BindPFlag("server.jwks_url", serveCmd.Flags().Lookup("server.jwks_url"))
	viper.BindPFlag("sync.interval", serveCmd.Flags().Lookup("sync.interval"))

	rootCmd.AddCommand(serveCmd)
}
