package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"primavera/internal/availability"
	"primavera/internal/booking"
	"primavera/internal/config"
	"primavera/internal/dateutil"
	"primavera/internal/ical"
	appLog "primavera/internal/log"
	"primavera/internal/pricing"
	"primavera/internal/web"
)

const defaultConfigPath = "/etc/primavera/config.yaml"

func main() {
	// Load .env first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "primavera",
		Usage: "Availability and pricing service for the Casa Primavera suites.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: defaultConfigPath, Usage: "Path to config file"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			refreshCommand(),
			quoteCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		appLog.Error("application failed", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API with periodic calendar feed refresh.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "HTTP listen address (overrides config if set)"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if listen := c.String("listen"); listen != "" {
				cfg.Listen = listen
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			engine, avail, submitter := buildServices(cfg)

			appLog.Info("effective config",
				"listen", cfg.Listen,
				"timezone", cfg.Timezone,
				"refresh", cfg.RefreshCron,
				"room_count", len(cfg.Rooms),
				"relay_count", len(cfg.Relays),
			)

			// Initial feed sync before serving so the first availability
			// request does not see an empty view.
			avail.RefreshAll(ctx)

			sched := cron.New()
			if _, err := sched.AddFunc(cfg.RefreshCron, func() {
				avail.RefreshAll(context.Background())
			}); err != nil {
				return fmt.Errorf("invalid refresh schedule %q: %w", cfg.RefreshCron, err)
			}
			sched.Start()
			defer sched.Stop()

			srv := &http.Server{
				Addr:              cfg.Listen,
				Handler:           web.NewServer(engine, avail, submitter).Handler(),
				ReadHeaderTimeout: 20 * time.Second,
			}

			go func() {
				<-ctx.Done()
				appLog.Info("signal received, shutting down")

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 4*time.Second)
				defer shutdownCancel()

				if err := srv.Shutdown(shutdownCtx); err != nil {
					appLog.Error("failed to stop http server", err)
				}
			}()

			appLog.Info("http server starting", "listen", "http://"+cfg.Listen)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("run http server: %w", err)
			}

			appLog.Info("primavera exiting")
			return nil
		},
	}
}

func refreshCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Fetch calendar feeds once and print blocked-date counts.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "room", Usage: "Refresh a single room id"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			_, avail, _ := buildServices(cfg)

			if roomID := c.String("room"); roomID != "" {
				count, err := avail.RefreshRoom(ctx, roomID)
				if err != nil {
					return err
				}
				fmt.Printf("room %s: %d blocked dates\n", roomID, count)
				return nil
			}

			for roomID, count := range avail.RefreshAll(ctx) {
				fmt.Printf("room %s: %d blocked dates\n", roomID, count)
			}
			return nil
		},
	}
}

func quoteCommand() *cli.Command {
	return &cli.Command{
		Name:  "quote",
		Usage: "Price a stay for a room and date range.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "room", Required: true, Usage: "Room id"},
			&cli.StringFlag{Name: "start", Required: true, Usage: "Check-in date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "end", Required: true, Usage: "Check-out date (YYYY-MM-DD)"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			start, err := dateutil.ParseISO(c.String("start"))
			if err != nil {
				return fmt.Errorf("invalid start date: %w", err)
			}
			end, err := dateutil.ParseISO(c.String("end"))
			if err != nil {
				return fmt.Errorf("invalid end date: %w", err)
			}

			engine, _, _ := buildServices(cfg)
			q := engine.TripQuote(c.String("room"), start, end)

			fmt.Printf("nights:   %d\n", q.Nights)
			fmt.Printf("subtotal: %.2f\n", q.Subtotal)
			if q.DiscountLabel != "" {
				fmt.Printf("discount: %.2f (%s)\n", q.DiscountAmount, q.DiscountLabel)
			}
			fmt.Printf("total:    %.2f\n", q.Total)
			return nil
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if c.Bool("debug") {
		appLog.SetLevel(appLog.LevelDebug)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", c.String("config"), err)
	}

	// Environment overrides, typically via .env in development.
	if v := os.Getenv("PRIMAVERA_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("PRIMAVERA_WEBHOOK_URL"); v != "" {
		cfg.WebhookURL = v
	}

	return cfg, nil
}

func buildServices(cfg *config.Config) (*pricing.Engine, *availability.Service, *booking.Submitter) {
	engine := pricing.NewEngine(pricing.DefaultRules())
	if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
		engine = engine.WithClock(func() time.Time { return time.Now().In(loc) })
	} else {
		appLog.Warn("unknown timezone, using local clock", "timezone", cfg.Timezone)
	}

	relays := make([]ical.Relay, 0, len(cfg.Relays))
	for _, r := range cfg.Relays {
		relays = append(relays, ical.Relay{Name: r.Name, Prefix: r.Prefix, Encode: r.Encode})
	}
	fetcher := ical.NewFetcher(relays)

	rooms := make([]availability.Room, 0, len(cfg.Rooms))
	for _, r := range cfg.Rooms {
		rooms = append(rooms, availability.Room{
			ID:      r.ID,
			Name:    r.Name,
			FeedURL: r.CalendarURL,
			Manual:  dateutil.NewDateSet(r.BlockedDates...),
		})
	}
	avail := availability.NewService(rooms, fetcher)

	return engine, avail, booking.NewSubmitter(cfg.WebhookURL)
}
