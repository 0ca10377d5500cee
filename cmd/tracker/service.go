package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fitlife/tracker/internal/activity"
	"github.com/fitlife/tracker/internal/api"
	"github.com/fitlife/tracker/internal/board"
	"github.com/fitlife/tracker/internal/config"
	"github.com/fitlife/tracker/internal/db"
	"github.com/fitlife/tracker/internal/location"
	"github.com/fitlife/tracker/internal/mongostore"
	"github.com/fitlife/tracker/internal/notify"
	"github.com/fitlife/tracker/internal/sensor"
	"github.com/fitlife/tracker/internal/serialmux"
	"github.com/fitlife/tracker/internal/tracking"
	"github.com/fitlife/tracker/internal/units"
)

// Starting point and cadence of the simulated walk in -dev mode.
const (
	devLat     = 40.4168
	devLon     = -3.7038
	devCadence = 500 * time.Millisecond
)

// service is the wired application: sensor board, tracking controller,
// activity store, presenters and the HTTP handler.
type service struct {
	mux     serialmux.SerialMuxInterface
	board   *board.Board
	ctrl    *tracking.Controller
	repo    activity.Repository
	db      *db.DB
	mongo   *mongo.Client
	redis   *redis.Client
	cron    *cron.Cron
	handler http.Handler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func loadConfig(path string) (*config.TrackingConfig, error) {
	if path == "" {
		return config.DefaultTrackingConfig(), nil
	}
	return config.LoadTrackingConfig(path)
}

func openSerialMux(o *options) (serialmux.SerialMuxInterface, error) {
	switch {
	case o.DisableSensors:
		return serialmux.NewDisabledSerialMux(), nil
	case o.Dev:
		return serialmux.NewMockSerialMux(devLat, devLon, devCadence), nil
	default:
		m, err := serialmux.NewRealSerialMux(o.Port, serialmux.PortOptions{BaudRate: o.Baud})
		if err != nil {
			return nil, fmt.Errorf("failed to open sensor board: %w", err)
		}
		return m, nil
	}
}

// newService wires every component. Background routines run until Close.
func newService(ctx context.Context, o *options) (_ *service, err error) {
	cfg, err := loadConfig(o.Config)
	if err != nil {
		return nil, err
	}
	dayLabel, err := units.DayLabeler(o.Timezone)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &service{cancel: cancel}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	if err := s.openStore(ctx, o); err != nil {
		return nil, err
	}
	if o.Seed {
		n, err := activity.Seed(ctx, s.repo)
		if err != nil {
			return nil, fmt.Errorf("seed activities: %w", err)
		}
		if n > 0 {
			log.Printf("seeded %d activities", n)
		}
	}

	if s.mux, err = openSerialMux(o); err != nil {
		return nil, err
	}
	s.board = board.New(s.mux, nil)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := s.mux.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor sensor board: %v", err)
		}
		log.Print("monitor routine terminated")
	}()
	go func() {
		defer s.wg.Done()
		if err := s.board.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("board routine failed: %v", err)
		}
	}()

	if err := s.mux.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize sensor board: %w", err)
	}
	if !o.DisableSensors {
		probeCtx, cancelProbe := context.WithTimeout(ctx, o.ProbeTimeout)
		caps, err := s.board.Probe(probeCtx)
		cancelProbe()
		if err != nil {
			log.Printf("sensor board did not report capabilities, tracking is unavailable: %v", err)
		} else {
			log.Printf("sensor board capabilities: %v", caps)
		}
	}

	perms := tracking.GrantAll()
	s.ctrl = tracking.NewController(
		sensor.NewSource(s.board, sensor.Options{
			AccelThreshold:  cfg.GetAccelThresholdMps2(),
			MinStepInterval: cfg.GetMinStepInterval(),
		}),
		location.NewListener(s.board),
		tracking.Options{
			Config:      cfg,
			Permissions: perms,
			Repository:  s.repo,
			DayLabel:    dayLabel,
		},
	)

	presenters := []notify.Presenter{&notify.LogPresenter{MinInterval: 30 * time.Second}}
	if s.redis, err = notify.Connect(o.RedisURL); err != nil {
		return nil, err
	}
	if s.redis != nil {
		presenters = append(presenters, notify.NewRedisPublisher(s.redis))
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		notify.Run(ctx, s.ctrl, presenters...)
	}()

	if o.AutosaveCron != "" {
		if s.cron, err = startAutosave(o.AutosaveCron, s.ctrl); err != nil {
			return nil, err
		}
	}

	srv := api.NewServer(api.Options{
		Session:     s.ctrl,
		Activities:  s.repo,
		Permissions: perms,
		Board:       s.board,
		Config:      cfg,
		DayLabel:    dayLabel,
	})
	mux := srv.ServeMux()
	srv.AttachAdminRoutes(mux)
	s.mux.AttachAdminRoutes(mux)
	if s.db != nil {
		s.db.AttachAdminRoutes(mux)
	}
	s.handler = api.LoggingMiddleware(mux)
	return s, nil
}

func (s *service) openStore(ctx context.Context, o *options) error {
	if o.MongoURI != "" {
		database, err := mongostore.Connect(ctx, o.MongoURI, o.MongoDB)
		if err != nil {
			return err
		}
		s.mongo = database.Client()
		repo := mongostore.New(database)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("mongo indexes: %w", err)
		}
		s.repo = repo
		return nil
	}

	database, err := db.NewDB(o.DB)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = database
	s.repo = db.NewActivityRepository(database)
	return nil
}

// Close stops the session and releases everything newService opened.
func (s *service) Close() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.ctrl != nil {
		s.ctrl.Close()
	}
	if s.board != nil {
		s.board.Close()
	}
	s.cancel()
	if s.mux != nil {
		if err := s.mux.Close(); err != nil {
			log.Printf("failed to close sensor board: %v", err)
		}
	}
	s.wg.Wait()

	if s.redis != nil {
		s.redis.Close()
	}
	if s.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.mongo.Disconnect(ctx); err != nil {
			log.Printf("mongo disconnect: %v", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("failed to close database: %v", err)
		}
	}
}
