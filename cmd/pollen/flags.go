package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/germanamz/pollen/pkg/config"
	"github.com/germanamz/pollen/pkg/pollinations"
)

// commonFlags are accepted by every command. Request parameters given on the
// command line override the config file, which overrides the defaults.
type commonFlags struct {
	fs *pflag.FlagSet

	configPath    string
	envFile       string
	baseURL       string
	model         string
	systemMessage string
	referrer      string
	temperature   float64
	topP          float64
	presence      float64
	frequency     float64
	maxTokens     int
	seed          int
	private       bool
	asJSON        bool
	timeout       time.Duration
	minInterval   time.Duration
	plain         bool
	verbose       bool
}

func newFlags(name, summary string, stderr io.Writer) *commonFlags {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: pollen %s [flags]\n\n%s\n\nFlags:\n", name, summary)
		fs.PrintDefaults()
	}

	f := &commonFlags{fs: fs}
	fs.StringVar(&f.configPath, "config", "", "path to a YAML configuration file")
	fs.StringVar(&f.envFile, "env", ".env", "path to .env file (ignored if missing)")
	fs.StringVar(&f.baseURL, "base-url", "", "API root (default "+pollinations.DefaultBaseURL+")")
	fs.StringVar(&f.referrer, "referrer", "", "Referer header identifying this application to the API")
	fs.StringVarP(&f.model, "model", "m", config.DefaultModel, `model name (see "pollen models")`)
	fs.StringVarP(&f.systemMessage, "system-message", "s", config.DefaultSystemMessage, "system message that sets the assistant's behaviour")
	fs.Float64VarP(&f.temperature, "temperature", "t", config.DefaultTemperature, "sampling temperature in [0, 1]")
	fs.Float64Var(&f.topP, "top-p", config.DefaultTopP, "nucleus sampling mass, clamped to [0, 1]")
	fs.Float64Var(&f.presence, "presence-penalty", 0, "penalty for tokens already present, clamped to [-2, 2]")
	fs.Float64Var(&f.frequency, "frequency-penalty", 0, "penalty proportional to token frequency, clamped to [-2, 2]")
	fs.IntVar(&f.maxTokens, "max-tokens", config.DefaultMaxTokens, fmt.Sprintf("reply length cap, clamped to [0, %d]", config.MaxTokensLimit))
	fs.IntVar(&f.seed, "seed", 0, "fixed seed for reproducible replies (random when unset)")
	fs.BoolVar(&f.private, "private", false, "hide replies from the public feed")
	fs.BoolVar(&f.asJSON, "json", false, "ask for a JSON formatted reply")
	fs.DurationVar(&f.timeout, "timeout", config.DefaultTimeout, "per-request timeout")
	fs.DurationVar(&f.minInterval, "min-interval", 0, "minimum spacing between requests (e.g. 5s for the anonymous tier)")
	fs.BoolVar(&f.plain, "plain", false, "print replies as plain text instead of rendered markdown")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log debug details to stderr")

	return f
}

// settings is what a command needs once .env, the config file and flags are
// merged.
type settings struct {
	file   config.File
	cfg    *config.Config
	log    *slog.Logger
	client *pollinations.Client
}

func (f *commonFlags) load(stderr io.Writer) (*settings, error) {
	if err := loadDotEnv(f.envFile); err != nil {
		return nil, err
	}

	var file config.File
	if f.configPath != "" {
		var err error
		if file, err = config.LoadFile(f.configPath); err != nil {
			return nil, err
		}
	}

	cfg, err := file.Config()
	if err != nil {
		return nil, err
	}
	if err := f.apply(cfg); err != nil {
		return nil, err
	}

	interval, err := file.MinInterval()
	if err != nil {
		return nil, err
	}
	if f.fs.Changed("min-interval") {
		interval = f.minInterval
	}

	baseURL := pollinations.DefaultBaseURL
	if file.BaseURL != "" {
		baseURL = file.BaseURL
	}
	if f.baseURL != "" {
		baseURL = f.baseURL
	}

	referrer := file.Referrer
	if f.referrer != "" {
		referrer = f.referrer
	}

	log := newLogger(stderr, f.verbose)
	opts := []pollinations.Option{
		pollinations.WithBaseURL(baseURL),
		pollinations.WithLogger(log),
		pollinations.WithPacing(interval),
	}
	if referrer != "" {
		opts = append(opts, pollinations.WithHeader("Referer", referrer))
	}
	client := pollinations.New(opts...)

	return &settings{file: file, cfg: cfg, log: log, client: client}, nil
}

// apply copies explicitly set flags onto cfg.
func (f *commonFlags) apply(cfg *config.Config) error {
	fs := f.fs

	if fs.Changed("model") {
		if err := cfg.SetModel(f.model); err != nil {
			return err
		}
	}
	if fs.Changed("system-message") {
		cfg.SetSystemMessage(f.systemMessage)
	}
	if fs.Changed("temperature") {
		if err := cfg.SetTemperature(f.temperature); err != nil {
			return err
		}
	}
	if fs.Changed("top-p") {
		cfg.SetTopP(f.topP)
	}
	if fs.Changed("presence-penalty") {
		cfg.SetPresencePenalty(f.presence)
	}
	if fs.Changed("frequency-penalty") {
		cfg.SetFrequencyPenalty(f.frequency)
	}
	if fs.Changed("max-tokens") {
		cfg.SetMaxTokens(f.maxTokens)
	}
	if fs.Changed("seed") {
		if err := cfg.SetSeed(f.seed); err != nil {
			return err
		}
	}
	if fs.Changed("private") {
		cfg.SetPrivate(f.private)
	}
	if fs.Changed("json") {
		cfg.SetJSON(f.asJSON)
	}
	if fs.Changed("timeout") {
		if err := cfg.SetTimeout(f.timeout); err != nil {
			return err
		}
	}

	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
