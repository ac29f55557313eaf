// Package runtime assembles the daemon: telemetry, voice bank, synthesis
// pipeline, session store, bus services, and the HTTP surface.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cantolabs/canto/internal/bus"
	"github.com/cantolabs/canto/internal/config"
	"github.com/cantolabs/canto/internal/engine"
	"github.com/cantolabs/canto/internal/natsserver"
	"github.com/cantolabs/canto/internal/phoneme"
	"github.com/cantolabs/canto/internal/server"
	"github.com/cantolabs/canto/internal/sessionstore"
	"github.com/cantolabs/canto/internal/speech"
	"github.com/cantolabs/canto/internal/synth"
	"github.com/cantolabs/canto/internal/voicebank"
)

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	store, err := sessionstore.Open(ctx, r.cfg.SessionStore, r.logger)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	synthesizer, err := BuildSynthesizer(r.cfg, r.logger)
	if err != nil {
		return err
	}

	var speechService *speech.Service
	var busClient *bus.Client
	if r.cfg.Bus.Enabled {
		embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("start embedded bus: %w", err)
		}
		defer embedded.Shutdown()

		busCfg := r.cfg.Bus
		if embedded != nil && len(busCfg.Servers) == 0 {
			busCfg.Servers = []string{embedded.ClientURL()}
		}
		busClient, err = bus.Connect(ctx, busCfg, r.logger)
		if err != nil {
			return fmt.Errorf("connect bus: %w", err)
		}
		defer busClient.Close()

		speechService = speech.NewService(ctx, r.cfg.Synthesis, busClient, synthesizer, store, r.logger)
		if err := speechService.Start(); err != nil {
			return fmt.Errorf("start speech service: %w", err)
		}
		defer speechService.Close()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
	server.New(r.cfg.Synthesis, synthesizer, store, r.logger).Register(mux)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("addr", addr),
		slog.Int("voices", len(synthesizer.Bank().Styles())))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

// BuildSynthesizer assembles the pipeline from config. The CLI shares this
// with the daemon.
func BuildSynthesizer(cfg config.Config, logger *slog.Logger) (*synth.Synthesizer, error) {
	bank, err := voicebank.Load(cfg.Model.VoicesPath)
	if err != nil {
		return nil, fmt.Errorf("load voice bank: %w", err)
	}

	var ph phoneme.Phonemizer
	switch cfg.Phonemizer.Mode {
	case "exec":
		ph, err = phoneme.NewExecPhonemizer(cfg.Phonemizer.Command,
			cfg.Phonemizer.PreservePunctuation, cfg.Phonemizer.WithStress)
		if err != nil {
			return nil, fmt.Errorf("build phonemizer: %w", err)
		}
	default:
		ph = phoneme.NewRulePhonemizer()
	}

	var eng engine.Engine
	switch cfg.Engine.Mode {
	case "exec":
		eng, err = engine.NewExecEngine(cfg.Engine.Command, cfg.Model.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("build engine: %w", err)
		}
	default:
		eng = engine.NewMockEngine(cfg.Model.SampleRate)
	}

	return synth.New(bank, ph, eng, synth.Config{
		SampleRate: cfg.Model.SampleRate,
		MaxTokens:  cfg.Synthesis.MaxTokens,
	}, logger), nil
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
