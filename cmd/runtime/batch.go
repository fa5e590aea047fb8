package main

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"indexer-runtime/core"
)

// batchCmd drives many independent SandboxInstances concurrently, one
// goroutine per queued fixture, demonstrating spec §5's "the host may run
// many handlers in parallel on separate threads" literally (SPEC_FULL.md
// §5, §2.2: golang.org/x/sync/errgroup).
func batchCmd() *cobra.Command {
	var env string
	var concurrency int
	cmd := &cobra.Command{
		Use:   "batch <fixture.json>...",
		Short: "invoke one handler per fixture concurrently, one goroutine and one SandboxInstance each",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrDefault(env)
			log := newLogger(cfg)
			metrics := core.NewMetrics(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)

			var (
				g    errgroup.Group
				sem  = make(chan struct{}, concurrency)
				mu   sync.Mutex
				fail int64
			)

			for _, path := range args {
				path := path
				g.Go(func() error {
					sem <- struct{}{}
					defer func() { <-sem }()

					result, err := runFixture(path, cfg, log, metrics)
					if err != nil {
						atomic.AddInt64(&fail, 1)
						log.WithField("fixture", path).WithError(err).Error("handler invocation failed")
						return nil // one failed fixture does not cancel the rest of the batch
					}

					mu.Lock()
					fmt.Printf("%s: handler %q completed with %d entity ops\n",
						path, result.handlerName, len(result.state.EntityCache()))
					mu.Unlock()
					return nil
				})
			}

			if err := g.Wait(); err != nil {
				return err
			}
			if fail > 0 {
				return fmt.Errorf("%d of %d fixtures failed", fail, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "environment overlay name (e.g. \"production\")")
	cmd.Flags().IntVar(&concurrency, "concurrency", 8, "maximum number of SandboxInstances running at once")
	return cmd
}
