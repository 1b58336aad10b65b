// cmd/faultctl/export.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamzrod/faultcapture/internal/metrics"
)

type exportCmd struct {
	storeCmd
	Listen string `short:"l" long:"listen" description:"address to serve /metrics on (default metrics.listen)"`
}

func (cmd *exportCmd) Execute(_ []string) error {
	s, err := cmd.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	listen := cmd.Listen
	if listen == "" {
		listen = cmd.cfg.Metrics.Listen
	}

	reg := prometheus.NewRegistry()
	if err := reg.Register(metrics.NewCollector(cmd.log.Named("metrics"), cmd.cfg.Device.ID, s.Reader())); err != nil {
		return errors.Wrap(err, "register collector")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		cmd.log.Info("serving metrics", "listen", listen, "device", cmd.cfg.Device.ID)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "metrics server")
	case <-ctx.Done():
	}

	cmd.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
