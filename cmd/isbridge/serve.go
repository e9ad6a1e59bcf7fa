package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/holtech/isbridge/internal/metrics"
	"github.com/holtech/isbridge/internal/scheduler"
	"github.com/holtech/isbridge/internal/server"
	"github.com/holtech/isbridge/pkg/hooks"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// sweepTimeout bounds one background refresh sweep.
const sweepTimeout = 2 * time.Minute

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Long: `Run the HTTP gateway.

Routes:
  GET  /admin/settings          settings page and OAuth callback (?code=)
  POST /admin/settings          save application credentials
  GET  /banner                  public "not authorized" banner
  GET  /api/status              authorization state as JSON
  GET  /api/contacts/{id}       contact lookup (?fields=a,b)
  GET  /metrics                 Prometheus metrics
  GET  /healthz                 liveness`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m := metrics.New()
			a, err := newApp(cmd, true, func(bus *hooks.Bus) { m.Subscribe(bus) })
			if err != nil {
				return err
			}
			defer a.Close()

			m.SetAuthorized(a.bridge.Manager().Authorized())

			if spec := a.cfg.Auth.RefreshSchedule; spec != "" {
				sched, err := scheduler.New(spec, a.bridge.Sweep, sweepTimeout, a.logger.Named("scheduler"))
				if err != nil {
					return err
				}
				sched.Start()
				defer func() {
					<-sched.Stop().Done()
				}()
				a.logger.Info("refresh sweep scheduled", zap.String("schedule", spec))
			}

			srv := server.New(a.cfg.Server, a.cfg.IsProduction(), a.bridge, m, a.logger.Named("http"))
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().String("refresh-schedule", "", `cron schedule for the refresh sweep, e.g. "@every 10m"`)

	return cmd
}

