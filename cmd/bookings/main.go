package main

import (
	"context"
	"receptionist/internal/bookings/events"
	bookinghandler "receptionist/internal/bookings/handler"
	bookingservice "receptionist/internal/bookings/service"
	bookingvalidator "receptionist/internal/bookings/validator"
	"receptionist/internal/pools/selector"
	reservationservice "receptionist/internal/reservations/service"
	"receptionist/internal/reservations/sweeper"
	slothandler "receptionist/internal/slots/handler"
	slotservice "receptionist/internal/slots/service"
	slotvalidator "receptionist/internal/slots/validator"
	"receptionist/internal/storage"
	"receptionist/pkg/app"
	"receptionist/pkg/clock"
	"receptionist/pkg/config"
	"receptionist/pkg/kafka"
	kafka_config "receptionist/pkg/kafka/config"
	kafka_middleware "receptionist/pkg/kafka/middleware"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Bookings service")

	ctx := context.Background()
	repos, err := storage.Open(ctx, cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to open storage", "error", err)
	}
	cfg.SetRedis()

	serverApp := app.NewApplication(cfg)
	clk := clock.SystemClock{}

	slots := slotservice.NewSlotService(repos.Slots, slotvalidator.NewSlotValidator(), clk, cfg)
	reservationManager := reservationservice.NewReservationManager(repos.Reservations, slots, clk, cfg)
	coordinator := bookingservice.NewBookingCoordinator(
		repos.Pools,
		slots,
		reservationManager,
		selector.NewRoundRobinSelector(repos.Pools, clk, cfg),
		repos.Bookings,
		initPublisher(cfg, serverApp),
		clk,
		cfg,
	)

	if !cfg.UsesMongo() {
		seedPool(ctx, cfg, repos, clk)

		// The standalone sweeper cannot see process memory, so run it here.
		sweepCtx, stopSweeper := context.WithCancel(ctx)
		serverApp.OnShutdown(stopSweeper)
		go func() {
			_ = sweeper.New(reservationManager, clk, cfg.SweepInterval, cfg.Log).Run(sweepCtx)
		}()
	}

	serverApp.SetApp(
		slothandler.NewSlotHandler(slots, cfg.Log),
		bookinghandler.NewBookingHandler(coordinator, bookingvalidator.NewBookingValidator(), cfg.Log),
	)
	serverApp.Run()
}

func initPublisher(cfg *config.Config, serverApp *app.Application) events.Publisher {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, booking events are not published")
		return events.NewNopPublisher()
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.KafkaBookingsTopic, cfg.KafkaBookingsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}
	serverApp.OnShutdown(func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})

	return events.NewKafkaPublisher(producer, ServiceName, kafkaCfg.PublishTimeout)
}

func seedPool(ctx context.Context, cfg *config.Config, repos *storage.Repositories, clk clock.Clock) {
	if len(cfg.SeedPoolMembers) == 0 {
		cfg.Log.Warn("No seed pool members configured, bookings will report POOL_NOT_FOUND")
		return
	}
	pool, err := repos.SeedPool(ctx, "default", cfg.SeedPoolMembers, clk.Now())
	if err != nil {
		cfg.Log.Fatal("Failed to seed pool", "error", err)
	}
	cfg.Log.Info("Seeded in-memory pool", "pool_id", pool.ID, "members", len(cfg.SeedPoolMembers))
}
