package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path"
	"reflect"
	"runtime"
	"syscall"
	"time"

	"github.com/encodeous/edgeflow/perf"
	"github.com/encodeous/edgeflow/state"
	"github.com/encodeous/tint"
	"github.com/goccy/go-yaml"
	slogmulti "github.com/samber/slog-multi"
)

func ReadNodeConfig(nodePath string) (*state.LocalCfg, error) {
	var nodeCfg state.LocalCfg
	file, err := os.ReadFile(nodePath)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(file, &nodeCfg)
	if err != nil {
		return nil, err
	}
	return &nodeCfg, nil
}

// NewLogger builds the console logger, and a file logger if logPath is set
func NewLogger(id state.NodeId, logPath string, logLevel slog.Level) (*slog.Logger, error) {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        logLevel,
			AddSource:    false,
			CustomPrefix: string(id),
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	if logPath != "" {
		err := os.MkdirAll(path.Dir(logPath), 0700)
		if err != nil {
			return nil, err
		}
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0700)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel}))
	}

	return slog.New(slogmulti.Fanout(handlers...)), nil
}

// TrafficFactory builds the traffic source once the config and logger are known
type TrafficFactory func(cfg *state.LocalCfg, log *slog.Logger) (state.TrafficSource, error)

// Bootstrap reads and validates the node config, then runs until every round completes.
func Bootstrap(nodePath, logPath string, verbose bool, newTraffic TrafficFactory, subscribers ...chan<- interface{}) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	nodeCfg, err := ReadNodeConfig(nodePath)
	if err != nil {
		return err
	}
	if logPath != "" {
		nodeCfg.LogPath = logPath
	}
	err = state.NodeConfigValidator(nodeCfg)
	if err != nil {
		return err
	}
	logger, err := NewLogger(nodeCfg.Id, nodeCfg.LogPath, level)
	if err != nil {
		return err
	}
	var traffic state.TrafficSource
	if newTraffic != nil {
		traffic, err = newTraffic(nodeCfg, logger)
		if err != nil {
			return err
		}
	}
	return Start(*nodeCfg, logger, traffic, nil, subscribers...)
}

// Start runs the node until the simulation finishes, a signal is received or a round fails.
// Subscribers receive a RoundReport after every round.
func Start(ncfg state.LocalCfg, logger *slog.Logger, traffic state.TrafficSource, initState **state.State, subscribers ...chan<- interface{}) error {
	ctx, cancel := context.WithCancelCause(context.Background())

	dispatch := make(chan func(env *state.State) error, 128)

	s := state.State{
		Modules: make(map[string]state.Module),
		Env: &state.Env{
			Context:         ctx,
			Cancel:          cancel,
			DispatchChannel: dispatch,
			LocalCfg:        ncfg,
			Traffic:         traffic,
			Log:             logger,
		},
	}
	if initState != nil {
		*initState = &s
	}

	s.Log.Info("init modules")
	err := initModules(&s, subscribers)
	if err != nil {
		Stop(&s)
		return err
	}
	s.Log.Info("init modules complete")

	if ncfg.DebugAddr != "" {
		// pprof, expvar and metrics register themselves on the default mux
		mux := http.NewServeMux()
		mux.Handle("/debug/", http.DefaultServeMux)
		mux.Handle(InspectPath, InspectHandler(&s))
		mux.Handle(TracePath, TraceHandler(&s, Get[*RoundTrace](&s)))
		srv := &http.Server{Addr: ncfg.DebugAddr, Handler: mux}
		go func() {
			s.Log.Info("serving debug endpoints", "addr", ncfg.DebugAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.Log.Error("debug server failed", "error", err)
			}
		}()
		defer srv.Close()
	}

	s.Log.Info("edgeflow has been initialized. To gracefully exit, send SIGINT or Ctrl+C.")

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(c)
		select {
		case _ = <-c:
			s.Cancel(errors.New("received shutdown signal"))
		case <-ctx.Done():
			return
		}
	}()

	return MainLoop(&s, dispatch)
}

func initModules(s *state.State, subscribers []chan<- interface{}) error {
	trace := &RoundTrace{}
	var modules []state.Module
	modules = append(modules, trace)
	modules = append(modules, &TrustRouter{})

	for _, module := range modules {
		s.Modules[reflect.TypeOf(module).String()] = module
		if err := module.Init(s); err != nil {
			return err
		}
	}
	// rounds only run once the main loop starts, so no report is missed
	for _, sub := range subscribers {
		trace.Register(sub)
	}
	return nil
}

func MainLoop(s *state.State, dispatch <-chan func(*state.State) error) error {
	s.Log.Debug("started main loop")
	s.Started.Store(true)
	var loopErr error
	for {
		select {
		case fun := <-dispatch:
			if fun == nil {
				goto endLoop
			}
			start := time.Now()
			err := fun(s)
			if err != nil {
				s.Log.Error("error occurred during dispatch: ", "error", err)
				loopErr = err
				s.Cancel(err)
				goto endLoop
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > state.SlowRoundWarn {
				s.Log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(fun).Pointer()).Name(), "elapsed", elapsed, "len", len(dispatch))
			}
		case <-s.Context.Done():
			goto endLoop
		}
	}
endLoop:
	cause := context.Cause(s.Context)
	if cause == nil {
		cause = context.Canceled
	}
	s.Log.Info("stopped main loop", "reason", cause.Error(), "rounds", s.Round)
	Stop(s)
	if loopErr != nil {
		return fmt.Errorf("round loop failed: %w", loopErr)
	}
	return nil
}

func Stop(s *state.State) {
	if s.Stopping.Swap(true) {
		return // don't stop twice
	}
	s.Cancel(context.Canceled)
	if s.DispatchChannel != nil {
		close(s.DispatchChannel)
	}
	s.Log.Info("cleaning up modules")
	for moduleName, module := range s.Modules {
		err := module.Cleanup(s)
		if err != nil {
			s.Log.Error("error occurred during Stop: ", "module", moduleName, "error", err)
		}
	}
	s.Log.Info("stopped")
}
