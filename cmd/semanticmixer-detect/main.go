package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/semanticmixer/internal/config"
	"github.com/xaionaro-go/semanticmixer/internal/pipeline"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	_ "github.com/xaionaro-go/semanticmixer/pkg/audio/backends/portaudio"
	"github.com/xaionaro-go/semanticmixer/pkg/audio/backends/pulseaudio"
	"github.com/xaionaro-go/semanticmixer/pkg/ringbuffer"
)

func main() {
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	configPath := pflag.String("config", "", "path to the YAML configuration file")
	outputPath := pflag.String("output", "", "if set, the captured float32 audio is also written to this file")
	duration := pflag.Duration("duration", 0, "stop after this time; zero means until interrupted")
	pflag.Parse()

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt)
	defer cancelFn()
	if *duration > 0 {
		ctx, cancelFn = context.WithTimeout(ctx, *duration)
		defer cancelFn()
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		assertNoError(err)
	}

	p, err := pipeline.New(ctx, cfg, nil)
	assertNoError(err)
	defer p.Close()

	sampleRate := audio.SampleRate(cfg.Stream.SampleRate)
	channels := audio.Channel(cfg.Stream.Channels)
	window, err := ringbuffer.New(int(cfg.Detection.BaseInterval.Seconds() * float64(sampleRate) * float64(channels)))
	assertNoError(err)

	sink := io.Writer(&sampleWriter{Buffer: window})
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		assertNoError(err)
		defer f.Close()
		sink = io.MultiWriter(sink, f)
	}
	wc := datacounter.NewWriterCounter(sink)

	logger.Infof(ctx, "starting...")
	recorder := audio.NewRecorderAuto(ctx)
	defer recorder.Close()
	streamRecord, err := recorder.RecordPCM(ctx, sampleRate, channels, audio.PCMFormatFloat32LE, wc)
	assertNoError(err)
	defer func() {
		assertNoError(streamRecord.Close())
	}()

	observability.Go(ctx, func(ctx context.Context) {
		t := time.NewTicker(5 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				logger.Debugf(ctx, "captured: %d bytes", wc.Count())
				if pulseStreamRecord, ok := streamRecord.(*pulseaudio.RecordStream); ok {
					logger.Debugf(ctx, "record stream status: running:%v, closed:%v, err:%v", pulseStreamRecord.Running(), pulseStreamRecord.Closed(), pulseStreamRecord.Error())
				}
			}
		}
	})

	t := time.NewTicker(cfg.Detection.BaseInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infof(ctx, "finished, captured %d bytes", wc.Count())
			return
		case <-t.C:
		}
		samples, err := window.Read(window.Capacity())
		if err != nil {
			logger.Debugf(ctx, "the window is not full yet: %v", err)
			continue
		}
		result, err := p.Detector.Classify(ctx, audio.NewFrame(samples, channels, sampleRate))
		if err != nil {
			logger.Errorf(ctx, "unable to classify: %v", err)
			continue
		}
		for _, d := range result.Top {
			logger.Infof(ctx, "%-14s %5.1f%%", d.Category, d.Confidence*100)
		}
		if result.SafetyOverride {
			logger.Warnf(ctx, "a safety-critical sound is detected")
		}
	}
}

// sampleWriter decodes float32 PCM into a ring buffer; a trailing partial
// sample is kept until the next Write.
type sampleWriter struct {
	Locker  sync.Mutex
	Buffer  *ringbuffer.RingBuffer
	pending []byte
}

func (w *sampleWriter) Write(p []byte) (int, error) {
	w.Locker.Lock()
	defer w.Locker.Unlock()
	w.pending = append(w.pending, p...)
	size := int(audio.PCMFormatFloat32LE.Size())
	complete := len(w.pending) / size * size
	w.Buffer.Write(audio.PCMFormatFloat32LE.DecodeFloat32(w.pending[:complete]))
	w.pending = append(w.pending[:0], w.pending[complete:]...)
	return len(p), nil
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
