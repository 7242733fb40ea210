package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aquanexus/credits-cli/internal/auth"
	"github.com/aquanexus/credits-cli/internal/certificate"
	"github.com/aquanexus/credits-cli/internal/market"
	"github.com/aquanexus/credits-cli/internal/media"
	"github.com/aquanexus/credits-cli/internal/satellite"
	"github.com/aquanexus/credits-cli/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the marketplace API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		// Uploads stay disabled unless a bucket is configured.
		var uploader *media.Uploader
		if cfg.Media.Bucket != "" {
			uploader, err = media.NewUploader(ctx, cfg.Media)
			if err != nil {
				return err
			}
		}

		authSvc := auth.NewService(st, time.Duration(cfg.Auth.SessionTTLHours)*time.Hour)
		srv := server.New(server.Options{
			Store:    st,
			Market:   market.New(st, certificate.NewIssuer(st, nil)),
			Auth:     authSvc,
			Limiter:  auth.NewLoginLimiter(cfg.Auth.LoginRatePerMin, cfg.Auth.LoginBurst),
			Uploader: uploader,
			Analyzer: satellite.NewAnalyzer(&satellite.DemoProvider{}, cfg.Satellite.NDWIVerified, cfg.Satellite.WindowMonths),
			MapToken: cfg.Map.AccessToken,
		})

		// Purge expired sessions in the background.
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n, err := st.DeleteExpiredSessions(ctx); err != nil {
						zap.L().Warn("session purge", zap.Error(err))
					} else if n > 0 {
						zap.L().Info("sessions purged", zap.Int("count", n))
					}
				}
			}
		}()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Router(cfg.Server.AllowedOrigins),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			httpSrv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
