package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/semanticmixer/internal/batch"
	"github.com/xaionaro-go/semanticmixer/internal/config"
	"github.com/xaionaro-go/semanticmixer/internal/pipeline"
	"github.com/xaionaro-go/semanticmixer/pkg/audio"
	"github.com/xaionaro-go/semanticmixer/pkg/category"
	"github.com/xaionaro-go/semanticmixer/pkg/suppressor"
)

func main() {
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	configPath := pflag.String("config", "", "path to the YAML configuration file")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	isS16Flag := pflag.Bool("s16", false, "the files are signed 16-bit little-endian instead of float32")
	sampleRate := pflag.Uint32("sample-rate", 48000, "sample rate of the input")
	channels := pflag.Uint32("channels", 1, "channel count of the input")
	suppressFlag := pflag.StringSlice("suppress", nil, "categories to suppress, e.g. typing,wind")
	threshold := pflag.Float64("threshold", suppressor.DefaultThreshold, "detection threshold")
	aggressiveness := pflag.Float64("aggressiveness", suppressor.DefaultAggressiveness, "multiplier of the subtracted signal, at least 1")
	chunkDuration := pflag.Duration("chunk", batch.DefaultChunkDuration, "processing chunk duration")
	pflag.Parse()

	if pflag.NArg() != 2 {
		panic(fmt.Errorf("expected exactly two arguments: <input-file> <output-file>"))
	}

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	if *netPprofAddr != "" {
		observability.Go(ctx, func(ctx context.Context) { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		assertNoError(err)
	}

	pcmFormat := audio.PCMFormatFloat32LE
	if *isS16Flag {
		pcmFormat = audio.PCMFormatS16LE
	}
	raw, err := os.ReadFile(pflag.Arg(0))
	assertNoError(err)
	frameSize := int(pcmFormat.Size()) * int(*channels)
	if len(raw)%frameSize != 0 {
		logger.Warnf(ctx, "the input size %d is not a multiple of %d, truncating", len(raw), frameSize)
		raw = raw[:len(raw)-len(raw)%frameSize]
	}
	input := audio.NewFrame(pcmFormat.DecodeFloat32(raw), audio.Channel(*channels), audio.SampleRate(*sampleRate))

	p, err := pipeline.New(ctx, cfg, nil)
	assertNoError(err)
	defer p.Close()

	var categories []category.Name
	for _, name := range *suppressFlag {
		categories = append(categories, category.Name(strings.TrimSpace(name)))
	}
	opts := suppressor.Options{
		Categories:     categories,
		Threshold:      *threshold,
		Aggressiveness: *aggressiveness,
		SafetyCheck:    true,
	}

	logger.Infof(ctx, "suppressing %v in %v of audio", categories, input.Duration())
	output, stats, err := batch.Process(ctx, p.Suppressor, input, opts, *chunkDuration)
	assertNoError(err)
	logger.Infof(ctx, "processed %d chunks; RMS %.4f -> %.4f (%.1f dB)", stats.Chunks, stats.OriginalRMS, stats.CleanedRMS, stats.RMSReductionDB)

	err = os.WriteFile(pflag.Arg(1), pcmFormat.EncodeFloat32(output.Samples), 0640)
	assertNoError(err)
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
