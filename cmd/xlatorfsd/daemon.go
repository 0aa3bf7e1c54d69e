package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/xlatorfs/xlatorfs/config"
	"github.com/xlatorfs/xlatorfs/logging"
	"github.com/xlatorfs/xlatorfs/metrics"
	"github.com/xlatorfs/xlatorfs/stack"
	"github.com/xlatorfs/xlatorfs/syncenv"
)

// run is the composition root of SPEC_FULL.md §4.14: it loads the graph
// config, builds the translator graph, starts the metrics endpoint and
// the synctask pool, and blocks until ctx is done (a delivered OS
// signal). It contains no translator logic of its own.
func run(ctx context.Context) error {
	log := logging.New(logrus.StandardLogger())

	v, err := loadViper()
	if err != nil {
		return err
	}
	spec, err := config.Load(v)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewRegistry(reg)

	engine := stack.NewEngine()
	top, err := config.Build(spec, defaultRegistry(log, m), engine)
	if err != nil {
		return err
	}
	log.Infof("graph built, top translator %q", top.Name())

	srv := &http.Server{Addr: listenAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics server: %v", err)
		}
	}()
	defer srv.Close()

	pool := syncenv.NewPool(ctx, workers)

	<-ctx.Done()
	log.Infof("shutting down: %v", ctx.Err())
	return pool.Wait()
}
