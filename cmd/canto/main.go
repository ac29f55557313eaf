package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/cantolabs/canto/internal/audio"
	"github.com/cantolabs/canto/internal/config"
	"github.com/cantolabs/canto/internal/runtime"
	"github.com/cantolabs/canto/internal/synth"
)

var version = "0.1.0-dev"

type options struct {
	configPath     string
	language       string
	style          string
	forceStyle     bool
	autoDetect     bool
	speed          float64
	initialSilence int
	output         string
	mono           bool
	stream         bool
	verbose        bool
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "text":
		cmd, opts := newFlagSet("text")
		cmd.Parse(os.Args[2:])
		if cmd.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "usage: canto text [flags] <text>")
			os.Exit(2)
		}
		exit(runText(opts, cmd.Arg(0)))
	case "file":
		cmd, opts := newFlagSet("file")
		cmd.Parse(os.Args[2:])
		if cmd.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "usage: canto file [flags] <path>")
			os.Exit(2)
		}
		exit(runFile(opts, cmd.Arg(0)))
	case "pipe":
		cmd, opts := newFlagSet("pipe")
		cmd.Parse(os.Args[2:])
		exit(runPipe(opts))
	case "voices":
		cmd, opts := newFlagSet("voices")
		cmd.Parse(os.Args[2:])
		exit(runVoices(opts))
	case "version":
		fmt.Println(version)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "expected 'text', 'file', 'pipe', 'voices', or 'version'")
}

func exit(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newFlagSet(name string) (*flag.FlagSet, *options) {
	opts := &options{}
	cmd := flag.NewFlagSet(name, flag.ExitOnError)
	cmd.StringVar(&opts.configPath, "config", "canto.yaml", "Path to configuration file")
	cmd.StringVar(&opts.language, "l", "", "Language, e.g. en-us")
	cmd.StringVar(&opts.style, "style", "", "Voice style, single or blended like af_sky.4+af_nicole.6")
	cmd.BoolVar(&opts.forceStyle, "force-style", false, "Use the requested style even when the language table disagrees")
	cmd.BoolVar(&opts.autoDetect, "a", false, "Auto-detect language from the input text")
	cmd.Float64Var(&opts.speed, "s", 0, "Speech speed factor")
	cmd.IntVar(&opts.initialSilence, "initial-silence", 0, "Leading silence tokens")
	cmd.StringVar(&opts.output, "o", "output.wav", "Output WAV path")
	cmd.BoolVar(&opts.mono, "mono", false, "Write mono instead of duplicated stereo")
	cmd.BoolVar(&opts.stream, "x", false, "Also stream raw WAV to stdout")
	cmd.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	return cmd, opts
}

func (o *options) logger() *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (o *options) setup() (*synth.Synthesizer, config.Config, *slog.Logger, error) {
	log := o.logger()
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, cfg, log, fmt.Errorf("load config: %w", err)
	}
	s, err := runtime.BuildSynthesizer(cfg, log)
	if err != nil {
		return nil, cfg, log, err
	}
	return s, cfg, log, nil
}

func (o *options) request(cfg config.Config, text string) synth.Request {
	req := synth.Request{
		Text:           text,
		Language:       o.language,
		Style:          o.style,
		ForceStyle:     o.forceStyle,
		AutoDetect:     o.autoDetect,
		Speed:          float32(o.speed),
		InitialSilence: o.initialSilence,
		FailFast:       true,
	}
	if req.Language == "" {
		req.Language = cfg.Synthesis.Language
	}
	if req.Style == "" {
		req.Style = cfg.Synthesis.Style
	}
	if req.Speed <= 0 {
		req.Speed = float32(cfg.Synthesis.Speed)
	}
	return req
}

func runText(opts *options, text string) error {
	s, cfg, log, err := opts.setup()
	if err != nil {
		return err
	}
	res, err := s.SynthesizeUtterance(context.Background(), opts.request(cfg, text))
	if err != nil {
		return err
	}
	log.Info("synthesis complete",
		slog.String("language", res.Language),
		slog.String("style", res.Style),
		slog.Int("samples", len(res.Audio)))
	return writeAudio(opts, s.SampleRate(), res.Audio)
}

// runFile speaks each non-empty line into its own numbered WAV so callers
// can batch a script file in one invocation.
func runFile(opts *options, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	s, cfg, log, err := opts.setup()
	if err != nil {
		return err
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	for i, line := range lines {
		res, err := s.SynthesizeUtterance(context.Background(), opts.request(cfg, line))
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		out := opts.output
		if len(lines) > 1 {
			out = numberedPath(opts.output, i)
		}
		perLine := *opts
		perLine.output = out
		perLine.stream = false
		if err := writeAudio(&perLine, s.SampleRate(), res.Audio); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		log.Info("line synthesized", slog.Int("line", i+1), slog.String("output", out))
	}
	return nil
}

// numberedPath turns out.wav into out_3.wav.
func numberedPath(path string, i int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(path, ext), i, ext)
}

func runVoices(opts *options) error {
	s, _, _, err := opts.setup()
	if err != nil {
		return err
	}
	for _, name := range s.Bank().Styles() {
		fmt.Println(name)
	}
	return nil
}

func writeAudio(opts *options, sampleRate int, samples []float32) error {
	sink, err := audio.NewFileSink(opts.output, sampleRate, opts.mono)
	if err != nil {
		return err
	}
	if err := sink.WriteChunk(samples); err != nil {
		sink.Close()
		return err
	}
	if err := sink.Close(); err != nil {
		return err
	}
	if opts.stream {
		out := bufio.NewWriter(os.Stdout)
		if err := audio.WriteWAVHeader(out, 1, uint32(sampleRate), uint32(len(samples)*4)); err != nil {
			return err
		}
		if err := audio.WriteSamples(out, samples); err != nil {
			return err
		}
		return out.Flush()
	}
	return nil
}

// runPipe reads stdin incrementally and speaks sentences as they complete.
// SIGINT aborts mid-stream; EOF drains what remains.
func runPipe(opts *options) error {
	s, cfg, log, err := opts.setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := s.OpenSession(synth.SessionOptions{
		Language:           firstNonEmpty(opts.language, cfg.Synthesis.Language),
		Style:              firstNonEmpty(opts.style, cfg.Synthesis.Style),
		ForceStyle:         opts.forceStyle,
		AutoDetect:         opts.autoDetect || cfg.Synthesis.AutoDetectLanguage,
		Speed:              pickSpeed(opts.speed, cfg.Synthesis.Speed),
		InitialSilence:     opts.initialSilence,
		DetectAfterBytes:   cfg.Stream.DetectAfterChars,
		PendingByteCeiling: cfg.Stream.PendingByteCeiling,
		ChannelDepth:       cfg.Stream.ChannelDepth,
	})
	if err != nil {
		return err
	}

	fileSink, err := audio.NewFileSink(opts.output, s.SampleRate(), opts.mono)
	if err != nil {
		return err
	}
	sess.AddSink(fileSink)
	if opts.stream {
		sess.AddSink(audio.NewStreamSink(os.Stdout, 1, uint32(s.SampleRate())))
	}

	reader := bufio.NewReader(os.Stdin)
	buf := make([]byte, 4096)
	for {
		if ctx.Err() != nil {
			sess.Abort()
			log.Warn("interrupted, aborting stream")
			return nil
		}
		n, err := reader.Read(buf)
		if n > 0 {
			if ferr := sess.Feed(ctx, string(buf[:n])); ferr != nil {
				sess.Abort()
				return ferr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			sess.Abort()
			return fmt.Errorf("read stdin: %w", err)
		}
	}

	if err := sess.Close(ctx); err != nil {
		return err
	}
	units, failed, stats := sess.Stats()
	log.Info("stream complete",
		slog.Int("units", units),
		slog.Int("failed_chunks", failed),
		slog.Int("guard_trips", stats.GuardTrips))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func pickSpeed(flagSpeed, cfgSpeed float64) float32 {
	if flagSpeed > 0 {
		return float32(flagSpeed)
	}
	return float32(cfgSpeed)
}
