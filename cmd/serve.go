package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/config"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/server"
)

const shutdownTimeout = 5 * time.Second

type (
	stopFunc func(ctx context.Context) error
	initFunc func() (start func(), cleanUp stopFunc)
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the evaluation API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	servers := []initFunc{
		initHTTPServer(a),
		initMonitorHTTPServer(cfg, logger),
		initSweep(a),
	}

	// A server that stops on its own shuts the rest down as well.
	sig := make(chan os.Signal, 1+len(servers))
	stops := []stopFunc{}
	for _, s := range servers {
		start, stop := s()
		if start != nil {
			go func() {
				start()
				sig <- os.Interrupt
			}()
		}
		if stop != nil {
			stops = append(stops, stop)
		}
	}

	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	signal.Reset(syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Shutting Down...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var eg errgroup.Group
	for _, s := range stops {
		eg.Go(func() error {
			return s(ctx)
		})
	}
	err = errors.Join(eg.Wait(), a.Close(ctx))
	logger.Info("Shutdown Finished", zap.Error(err))
	return err
}

func initHTTPServer(a *app) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		logger := a.logger
		addr := a.cfg.Server.Addr
		srv := http.Server{
			Addr: addr,
			Handler: server.New(a.evaluator, a.store, logger, server.Options{
				AuthToken: a.cfg.Server.AuthToken,
				Release:   a.cfg.Server.Release,
				Metrics:   a.cfg.Server.Metrics,
			}),
		}
		return func() {
				lis, err := net.Listen("tcp", addr)
				if err != nil {
					logger.Error("Http server listen failed", zap.Error(err))
					return
				}
				logger.Info("Starting http server", zap.String("addr", lis.Addr().String()))
				if err := srv.Serve(lis); errors.Is(err, http.ErrServerClosed) {
					logger.Info("Http server stopped", zap.Error(err))
				} else {
					logger.Error("Http server stopped", zap.Error(err))
				}
			}, func(ctx context.Context) error {
				logger.Info("Http server shutting down")
				return srv.Shutdown(ctx)
			}
	}
}

func initMonitorHTTPServer(cfg *config.Config, logger *zap.Logger) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		mux := initMonitorHTTPMux(cfg)
		if mux == nil {
			return nil, nil
		}
		msrv := http.Server{
			Addr:    cfg.Server.MonitorAddr,
			Handler: mux,
		}
		return func() {
				lis, err := net.Listen("tcp", cfg.Server.MonitorAddr)
				if err != nil {
					logger.Error("Monitoring http listen failed", zap.Error(err))
					return
				}
				logger.Info("Starting monitoring http server", zap.String("addr", lis.Addr().String()))
				logger.Info("Monitoring http server stopped", zap.Error(msrv.Serve(lis)))
			}, func(ctx context.Context) error {
				logger.Info("Monitoring http server shutdown")
				return msrv.Shutdown(ctx)
			}
	}
}

func initMonitorHTTPMux(cfg *config.Config) http.Handler {
	if cfg.Server.MonitorAddr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if cfg.Server.Debug {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

// initSweep re-evaluates registered submissions in the background when a
// sweep interval is configured.
func initSweep(a *app) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		interval := a.cfg.Sweep.Interval
		if interval <= 0 {
			return nil, nil
		}
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		s := a.sweeper(a.cfg.Sweep.EventID)
		return func() {
				defer close(done)
				a.logger.Info("Starting sweep", zap.Duration("interval", interval), zap.Int("parallel", s.Parallel))
				if err := s.Run(ctx, interval); err != nil {
					a.logger.Error("Sweep stopped", zap.Error(err))
				}
			}, func(stopCtx context.Context) error {
				cancel()
				select {
				case <-done:
					a.logger.Info("Sweep stopped")
					return nil
				case <-stopCtx.Done():
					return stopCtx.Err()
				}
			}
	}
}
