// Command process-dispatcher runs the scheduler, the HTTP claim
// endpoint, and the keyed-mutex cleanup ticker until a termination
// signal is received, then drains every task before exiting.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/7krasov/process-dispatcher/internal/app"
	"github.com/7krasov/process-dispatcher/internal/config"
	"github.com/7krasov/process-dispatcher/internal/metrics"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// keyedMutexCleanupInterval matches spec.md §4.2's "30 s suffices".
const keyedMutexCleanupInterval = 30 * time.Second

func main() {
	cfg := config.Load()

	log.SetLevel(cfg.LogLevel)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	built, err := app.New(context.Background(), cfg)
	if err != nil {
		log.WithError(err).Fatal("process-dispatcher: failed to wire application")
	}
	defer built.Repository.Close()

	g, _ := errgroup.WithContext(built.Stopper)

	g.Go(func() error {
		built.Scheduler.Run(built.Stopper)
		return nil
	})

	g.Go(func() error {
		return built.HTTPServer.Run(built.Stopper)
	})

	g.Go(func() error {
		runKeyedMutexCleanup(built.Stopper.Stopping(), built.KeyedMutex.Cleanup, built.KeyedMutex.Len)
		return nil
	})

	g.Go(func() error {
		waitForSignal(built.Stopper.Stopping())
		built.Stopper.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("process-dispatcher: a task exited with an error")
		os.Exit(1)
	}

	log.Info("process-dispatcher: all tasks drained, exiting cleanly")
}

// waitForSignal blocks until SIGTERM, SIGINT, or SIGQUIT arrives, or
// until stopping is already closed by some other task.
func waitForSignal(stopping <-chan struct{}) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig).Info("process-dispatcher: termination signal received")
	case <-stopping:
	}
}

// runKeyedMutexCleanup periodically reclaims dead keyed-mutex entries
// and reports the live key count as a gauge.
func runKeyedMutexCleanup(stopping <-chan struct{}, cleanup func(), length func() int) {
	ticker := time.NewTicker(keyedMutexCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopping:
			return
		case <-ticker.C:
			cleanup()
			metrics.KeyedMutexKeys.Set(float64(length()))
		}
	}
}
