package app

import (
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/solguard-dev/solguard/internal/checkpoint"
	"github.com/solguard-dev/solguard/internal/engine"
	"github.com/solguard-dev/solguard/internal/engines/echidna"
	"github.com/solguard-dev/solguard/internal/engines/ecorisk"
	"github.com/solguard-dev/solguard/internal/engines/mythril"
	"github.com/solguard-dev/solguard/internal/engines/slither"
	"github.com/solguard-dev/solguard/internal/events"
	"github.com/solguard-dev/solguard/internal/orchestrator"
	"github.com/solguard-dev/solguard/internal/sink"
	"github.com/solguard-dev/solguard/pkg/shared"
	"github.com/solguard-dev/solguard/pkg/shared/config"
	"github.com/solguard-dev/solguard/pkg/shared/httpclient"
)

// BuildOrchestrator assembles the full pipeline from configuration: the
// engine registry, the checkpoint store, the progress publishers and the
// result sinks. The returned cleanup releases every held resource.
func BuildOrchestrator(cfg *config.Config, logger hclog.Logger) (*orchestrator.Orchestrator, func(), error) {
	registry := NewRegistry(logger)

	closeEngines, err := registerExternalEngines(cfg, registry)
	if err != nil {
		return nil, nil, err
	}

	store, err := openCheckpointStore(cfg)
	if err != nil {
		closeEngines()
		return nil, nil, err
	}

	publisher, err := buildPublisher(cfg, logger)
	if err != nil {
		store.Close()
		closeEngines()
		return nil, nil, err
	}

	resultSink, err := buildSinks(cfg, logger)
	if err != nil {
		publisher.Close()
		store.Close()
		closeEngines()
		return nil, nil, err
	}

	orch := orchestrator.New(logger, orchestrator.Options{
		Registry:          registry,
		Store:             store,
		Publisher:         publisher,
		Sink:              resultSink,
		TenantConcurrency: int64(cfg.Pipeline.TenantConcurrency),
		WorkDir:           cfg.Pipeline.WorkDir,
	})

	cleanup := func() {
		publisher.Close()
		store.Close()
		closeEngines()
	}
	return orch, cleanup, nil
}

// registerExternalEngines dispenses the configured engine plugin binaries and
// registers them over the built-in adapters. The returned function kills the
// plugin processes.
func registerExternalEngines(cfg *config.Config, registry *engine.Registry) (func(), error) {
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	for _, name := range cfg.Engines.External {
		eng, kill, err := shared.OpenEngine(cfg, "core", name)
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, kill)

		remote, err := engine.NewRemote(eng)
		if err != nil {
			closeAll()
			return nil, err
		}
		registry.Register(remote)
	}
	return closeAll, nil
}

// NewRegistry registers the built-in engine adapters.
func NewRegistry(logger hclog.Logger) *engine.Registry {
	registry := engine.NewRegistry(logger)
	registry.Register(slither.New(logger.Named("slither")))
	registry.Register(mythril.New(logger.Named("mythril")))
	registry.Register(echidna.New(logger.Named("echidna")))
	registry.Register(ecorisk.New(logger.Named("ecorisk")))
	return registry
}

func openCheckpointStore(cfg *config.Config) (checkpoint.Store, error) {
	path := cfg.Checkpoint.Path
	if path == "" {
		path = filepath.Join(shared.GetSolguardHome(), "checkpoints.db")
	}
	return checkpoint.NewSQLiteStore(path)
}

func buildPublisher(cfg *config.Config, logger hclog.Logger) (events.Publisher, error) {
	publishers := []events.Publisher{events.NewLogPublisher(logger.Named("events"))}

	if cfg.Events.WebsocketURL != "" {
		ws, err := events.NewWebSocketPublisher(logger.Named("events"), cfg.Events.WebsocketURL)
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, ws)
	}
	return events.NewMultiPublisher(publishers...), nil
}

func buildSinks(cfg *config.Config, logger hclog.Logger) (sink.Sink, error) {
	resultsDir := cfg.Sinks.ResultsDir
	if resultsDir == "" {
		resultsDir = filepath.Join(shared.GetSolguardHome(), "results")
	}

	sinks := []sink.Sink{sink.NewFileSink(logger.Named("sink"), resultsDir)}

	if cfg.Sinks.ExportSarif {
		sinks = append(sinks, sink.NewSarifSink(logger.Named("sink"), resultsDir))
	}
	if cfg.Sinks.ResultsAPI.URL != "" {
		httpc := httpclient.NewRestyClient(logger.Named("sink"), cfg)
		sinks = append(sinks, sink.NewHTTPSink(logger.Named("sink"), httpc, cfg.Sinks.ResultsAPI.URL, cfg.Sinks.ResultsAPI.Token))
	}
	if cfg.Sinks.ArtifactsS3.Bucket != "" {
		s3Sink, err := sink.NewS3Sink(logger.Named("sink"),
			cfg.Sinks.ArtifactsS3.Bucket, cfg.Sinks.ArtifactsS3.Region, cfg.Sinks.ArtifactsS3.Prefix)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s3Sink)
	}

	return sink.NewMultiSink(logger.Named("sink"), sinks...), nil
}
