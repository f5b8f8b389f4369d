package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/semanticmixer/internal/config"
	"github.com/xaionaro-go/semanticmixer/internal/pipeline"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	_ "github.com/xaionaro-go/semanticmixer/pkg/audio/backends/malgo"
	_ "github.com/xaionaro-go/semanticmixer/pkg/audio/backends/oto"
	_ "github.com/xaionaro-go/semanticmixer/pkg/audio/backends/portaudio"
	_ "github.com/xaionaro-go/semanticmixer/pkg/audio/backends/pulseaudio"
	"github.com/xaionaro-go/semanticmixer/pkg/battery"
	"github.com/xaionaro-go/semanticmixer/pkg/control"
	"github.com/xaionaro-go/semanticmixer/pkg/detection"
	"github.com/xaionaro-go/semanticmixer/pkg/observe"
	"github.com/xaionaro-go/semanticmixer/pkg/safety"
	"github.com/xaionaro-go/semanticmixer/pkg/stability"
	"github.com/xaionaro-go/semanticmixer/pkg/worker"
)

const shutdownTimeout = 5 * time.Second

func main() {
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	configPath := pflag.String("config", "", "path to the YAML configuration file")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	metricsAddr := pflag.String("metrics-listen-addr", "", "an address to serve Prometheus metrics on")
	modeFlag := pflag.String("mode", "", "control mode: auto or manual (overrides the configuration)")
	profileFlag := pflag.String("profile", "", "the ID of the profile to start with (overrides the configuration)")
	pflag.Parse()

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		assertNoError(err)
	}
	if *modeFlag != "" {
		cfg.Mode = *modeFlag
	}
	if *profileFlag != "" {
		cfg.Profile = *profileFlag
	}

	if *netPprofAddr != "" {
		observability.Go(ctx, func(ctx context.Context) { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	provider, err := observe.NewPrometheusProvider()
	assertNoError(err)
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Errorf(ctx, "unable to shutdown the meter provider: %v", err)
		}
	}()
	metrics, err := observe.NewMetrics(provider.MeterProvider)
	assertNoError(err)
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", provider.Handler())
		observability.Go(ctx, func(ctx context.Context) { l.Error(http.ListenAndServe(*metricsAddr, mux)) })
	}

	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancelFn()

	logger.Infof(ctx, "starting...")
	p, err := pipeline.New(ctx, cfg, metrics)
	assertNoError(err)
	defer func() {
		if err := p.Close(); err != nil {
			logger.Errorf(ctx, "unable to close the pipeline: %v", err)
		}
	}()

	p.Safety.OnAlert(newAlertSink(cfg.Safety.AlertSound))
	events, unsubscribe := p.Engine.Subscribe(control.DefaultEventBufferSize)
	defer unsubscribe()
	observability.Go(ctx, func(ctx context.Context) { logEvents(ctx, events) })

	format := audio.StreamFormat{
		SampleRate:      audio.SampleRate(cfg.Stream.SampleRate),
		Channels:        audio.Channel(cfg.Stream.Channels),
		FramesPerBuffer: cfg.Stream.FramesPerBuffer,
	}
	mixer, err := worker.NewMixer(cfg.Worker, func(ctx context.Context) (audio.Device, error) {
		return audio.NewDeviceAuto(ctx, format), nil
	}, p.Engine, metrics)
	assertNoError(err)
	p.Engine.SetGainSink(ctx, mixer)
	assertNoError(mixer.Start(ctx))

	var dutyCycle *stability.AdaptiveDutyCycle
	if cfg.Detection.UseBattery {
		dutyCycle, err = stability.NewAdaptiveDutyCycle(
			cfg.Detection.NormalInterval,
			cfg.Detection.SavingInterval,
			cfg.Detection.CriticalInterval,
			battery.NewHost(),
		)
		assertNoError(err)
	}
	thread, err := detection.NewThread(p.Detector, mixer.Window, func(ctx context.Context, result *detection.Result) {
		p.Engine.OnDetectionUpdate(ctx, result.Smoothed)
	}, dutyCycle)
	assertNoError(err)
	thread.BaseInterval = cfg.Detection.BaseInterval
	assertNoError(thread.Start(ctx))

	logger.Infof(ctx, "running; press Ctrl+C to stop")
	<-ctx.Done()
	logger.Infof(ctx, "stopping...")

	shutdownCtx := context.WithoutCancel(ctx)
	thread.Stop()
	if !thread.Wait(shutdownTimeout) {
		logger.Warnf(shutdownCtx, "the detection thread did not stop within %v", shutdownTimeout)
	}
	if err := mixer.Stop(shutdownCtx); err != nil {
		logger.Errorf(shutdownCtx, "unable to stop the audio worker cleanly: %v", err)
	}
}

func newAlertSink(soundPath string) safety.AlertSink {
	return func(ctx context.Context, status safety.Status) {
		logger.Warnf(ctx, "SAFETY ALERT: %s detected (%.0f%%)", status.Category, status.Confidence*100)
		if soundPath == "" {
			return
		}
		observability.Go(ctx, func(ctx context.Context) {
			if err := playAlert(ctx, soundPath); err != nil {
				logger.Errorf(ctx, "unable to play the alert sound: %v", err)
			}
		})
	}
}

func playAlert(ctx context.Context, soundPath string) error {
	f, err := os.Open(soundPath)
	if err != nil {
		return fmt.Errorf("unable to open '%s': %w", soundPath, err)
	}
	defer f.Close()

	player := audio.NewPlayerAuto(ctx)
	defer player.Close()
	stream, err := player.PlayVorbis(ctx, f)
	if err != nil {
		return err
	}
	if err := stream.Drain(); err != nil {
		return fmt.Errorf("unable to drain the alert stream: %w", err)
	}
	return stream.Close()
}

func logEvents(ctx context.Context, events <-chan control.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case control.EventProfileChanged:
				logger.Infof(ctx, "profile: %s (%s)", ev.Profile.Name, ev.Reason)
			case control.EventModeChanged:
				logger.Infof(ctx, "mode: %s", ev.Mode)
			case control.EventGainsChanged:
				logger.Debugf(ctx, "gains: %s", ev.Gains)
			case control.EventSafetyAlert:
				if ev.Alert != nil {
					logger.Debugf(ctx, "%s", ev.Alert.Message)
				}
			case control.EventDetectionsUpdated:
				logger.Tracef(ctx, "detections: %v", ev.Detections)
			}
		}
	}
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
