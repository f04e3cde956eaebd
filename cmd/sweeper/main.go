package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	reservationservice "receptionist/internal/reservations/service"
	"receptionist/internal/reservations/sweeper"
	slotservice "receptionist/internal/slots/service"
	slotvalidator "receptionist/internal/slots/validator"
	"receptionist/internal/storage"
	"receptionist/pkg/clock"
	"receptionist/pkg/config"
	"syscall"
)

const ServiceName = "reservation-sweeper"

func main() {
	cfg := config.Load(ServiceName)
	if !cfg.UsesMongo() {
		cfg.Log.Fatal("The standalone sweeper requires the mongo storage driver")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := storage.Open(ctx, cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to open storage", "error", err)
	}
	defer cfg.GracefulShutdown()

	clk := clock.SystemClock{}
	slots := slotservice.NewSlotService(repos.Slots, slotvalidator.NewSlotValidator(), clk, cfg)
	manager := reservationservice.NewReservationManager(repos.Reservations, slots, clk, cfg)

	err = sweeper.New(manager, clk, cfg.SweepInterval, cfg.Log).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Reservation sweeper exited", "error", err)
	}
}
