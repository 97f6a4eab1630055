package cli

import (
	"cactus/backend/middleware"
	"cactus/backend/routes"
	"context"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, cleanup, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			app := fiber.New(fiber.Config{DisableStartupMessage: true})

			// Middleware
			app.Use(cors.New(cors.Config{
				AllowOrigins: "*",
				AllowHeaders: "Origin, Content-Type, Accept, Authorization",
			}))
			app.Use(middleware.LoggingMiddleware(svc.logger, svc.colored))

			routes.SetupRoutes(app, routes.Deps{
				Store:       svc.store,
				Clock:       svc.clock,
				Coordinator: svc.coordinator,
				Notifier:    svc.notifier,
				Scheduler:   svc.scheduler,
				Logger:      svc.logger,
			}, svc.cfg)

			if !noScheduler {
				go svc.scheduler.Run(ctx)
			}

			go func() {
				<-ctx.Done()
				_ = app.Shutdown()
			}()

			svc.logger.Printf("listening on :%s", svc.cfg.ServerPort)
			return app.Listen(":" + svc.cfg.ServerPort)
		},
	}

	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not run the in-process sweep (use an external cron instead)")
	return cmd
}
