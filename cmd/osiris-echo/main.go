// Command osiris-echo is a cobra-driven CLI wrapper around the echo demo
// in internal/echodemo, for running it with configurable host/port/ring
// parameters.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ehrlich-b/osiris-go"
	"github.com/ehrlich-b/osiris-go/internal/echodemo"
	"github.com/ehrlich-b/osiris-go/internal/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		host        string
		port        int
		ringEntries uint32
		polling     bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "osiris-echo",
		Short: "Run the osiris-go echo demo: a detached accept loop and one round-trip client",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := osiris.DefaultConfig()
			cfg.RingEntries = ringEntries
			if polling {
				cfg.Mode = osiris.ModePolling
			}

			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				cfg.Observer = metrics.NewPrometheusObserver(reg)
				serveMetrics(metricsAddr, reg)
			}

			msg, err := echodemo.Run(cfg, host, port)
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "address to listen and connect on")
	cmd.Flags().IntVar(&port, "port", 8080, "port to listen and connect on")
	cmd.Flags().Uint32Var(&ringEntries, "ring-entries", 256, "completion ring depth")
	cmd.Flags().BoolVar(&polling, "polling", false, "busy-poll the reactor instead of blocking in the kernel")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve prometheus metrics on this address (e.g. :9090) while the demo runs")

	return cmd
}

// serveMetrics starts a background HTTP server exposing reg on /metrics.
// Its lifetime is the process's: the demo is a one-shot run, so there is
// nothing to gracefully shut the listener down for.
func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() { _ = http.ListenAndServe(addr, mux) }()
}
