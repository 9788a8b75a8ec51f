package cmd

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/config"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/evaluator"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/logging"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/metrics"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/notify"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/probe"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/store"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/suite"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/sweep"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     store.Gateway
	notifier  notify.Notifier
	metrics   *metrics.Observer
	prober    *probe.Client
	suite     suite.Source
	evaluator *evaluator.Evaluator
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Release: cfg.Server.Release,
		Debug:   cfg.Server.Debug,
		Silent:  cfg.Server.Silent,
	})
}

func newProber(cfg *config.Config, obs probe.Observer) *probe.Client {
	c := probe.NewClient()
	c.Timeout = cfg.Probe.Timeout
	c.MaxBodyBytes = cfg.Probe.MaxBodyBytes
	c.Observer = obs
	return c
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	obs, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	src, err := suite.NewSource(cfg.Suite.File, cfg.Suite.Dir)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, store.Options{
		Backend:  cfg.Store.Backend,
		Dir:      cfg.Store.Dir,
		MongoURI: cfg.Store.MongoURI,
		Database: cfg.Store.Database,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Store opened", zap.String("backend", cfg.Store.Backend))

	var n notify.Notifier = notify.Nop{}
	if cfg.Notify.NATSURL != "" {
		nc, err := notify.Connect(cfg.Notify.NATSURL, cfg.Notify.SubjectPrefix)
		if err != nil {
			st.Close(ctx)
			return nil, err
		}
		logger.Info("Publishing score events", zap.String("nats_url", cfg.Notify.NATSURL))
		n = nc
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		notifier: n,
		metrics:  obs,
		prober:   newProber(cfg, obs),
		suite:    src,
	}
	a.evaluator = &evaluator.Evaluator{
		Suite:    a.suite,
		Prober:   a.prober,
		Store:    a.store,
		Notifier: a.notifier,
		Observer: a.metrics,
		Logger:   logger,
	}
	return a, nil
}

func (a *app) sweeper(eventID string) *sweep.Sweeper {
	return &sweep.Sweeper{
		Submissions: a.store,
		Evaluator:   a.evaluator,
		Parallel:    a.cfg.Sweep.Parallel,
		EventID:     eventID,
		Logger:      a.logger,
	}
}

func (a *app) Close(ctx context.Context) error {
	return errors.Join(a.notifier.Close(), a.store.Close(ctx))
}

// withApp runs fn with an app built from cfg and closes it afterwards.
func withApp(ctx context.Context, cfg *config.Config, fn func(a *app) error) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))
	return fn(a)
}
