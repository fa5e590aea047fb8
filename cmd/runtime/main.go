package main

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"indexer-runtime/core"
	"indexer-runtime/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{Use: "runtime"}
	rootCmd.AddCommand(invokeCmd())
	rootCmd.AddCommand(batchCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(level)
	}
	return logrus.NewEntry(log)
}

func loadConfigOrDefault(env string) *config.Config {
	cfg, err := config.Load(env)
	if err != nil {
		cfg = &config.Config{}
		cfg.Engine.ApiVersion = "1.1.0"
		cfg.Engine.AbiVersion = "0.0.4"
		cfg.Engine.HandlerTimeoutMS = 5000
		cfg.Metrics.Namespace = "indexer_runtime"
		cfg.Logging.Level = "info"
	}
	return cfg
}

func invokeCmd() *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "invoke <fixture.json>",
		Short: "compile a guest module and invoke one handler against a literal event fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrDefault(env)
			log := newLogger(cfg)
			metrics := core.NewMetrics(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)
			result, err := runFixture(args[0], cfg, log, metrics)
			if err != nil {
				return err
			}
			fmt.Printf("handler %q completed: %d entity ops, %d created data sources\n",
				result.handlerName, len(result.state.EntityCache()), len(result.state.CreatedDataSources()))
			return nil
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "environment overlay name (e.g. \"production\")")
	return cmd
}

type fixtureResult struct {
	handlerName string
	state       *core.BlockState
}

// runFixture implements the construction -> run_start -> handler-invocation
// sequence spec.md §4.6 names, driven end to end from one JSON fixture.
// metrics is shared across every instance the CLI spins up in one process
// (batch mode included) since a Prometheus registry will not accept the
// same collector registered twice.
func runFixture(path string, cfg *config.Config, log *logrus.Entry, metrics *core.Metrics) (*fixtureResult, error) {
	fixture, err := loadFixture(path)
	if err != nil {
		return nil, err
	}

	wasmBytes, err := os.ReadFile(fixture.WasmPath)
	if err != nil {
		return nil, fmt.Errorf("read wasm module: %w", err)
	}

	reqVersion, err := core.ParseVersion(cfg.Engine.ApiVersion)
	if err != nil {
		return nil, fmt.Errorf("parse configured api_version: %w", err)
	}
	abiVersion, err := core.ParseVersion(cfg.Engine.AbiVersion)
	if err != nil {
		return nil, fmt.Errorf("parse configured abi_version: %w", err)
	}

	valid := &core.ValidModule{
		Code:        wasmBytes,
		ImportNames: []string{"abort", "gas"},
	}

	inst, err := core.NewSandboxInstance(valid, core.InstanceConfig{
		Block:              fixture.Block.toBlock(),
		VersionRequirement: core.VersionRequirement{Min: reqVersion},
		AbiVersion:         abiVersion,
		HandlerTimeout:     time.Duration(cfg.Engine.HandlerTimeoutMS) * time.Millisecond,
		IpfsFetcher:        newHTTPIpfsFetcher(cfg.Collaborators.IpfsEndpoint, log),
		ContractCaller:     newRPCContractCaller(cfg.Collaborators.EthereumRPCEndpoint, log),
		Log:                log,
		Metrics:            metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("instantiate sandbox: %w", err)
	}

	if err := inst.RunStart("runStart"); err != nil {
		return nil, fmt.Errorf("run_start: %w", err)
	}

	var (
		tx    core.EthereumTransaction
		state *core.BlockState
	)
	if fixture.Transaction != nil {
		tx = fixture.Transaction.toTransaction()
	}

	switch fixture.EventKind {
	case "log":
		if fixture.Log == nil {
			return nil, fmt.Errorf("event_kind %q requires a \"log\" fixture section", fixture.EventKind)
		}
		l := fixture.Log.toLog(tx)
		state, err = inst.HandleLog(fixture.HandlerName, l)
	case "call":
		if fixture.Call == nil {
			return nil, fmt.Errorf("event_kind %q requires a \"call\" fixture section", fixture.EventKind)
		}
		c := fixture.Call.toCall(tx)
		state, err = inst.HandleCall(fixture.HandlerName, c)
	case "block":
		state, err = inst.HandleBlock(fixture.HandlerName)
	default:
		return nil, fmt.Errorf("unknown event_kind %q, expected log/call/block", fixture.EventKind)
	}
	if err != nil {
		return nil, err
	}

	return &fixtureResult{handlerName: fixture.HandlerName, state: state}, nil
}
