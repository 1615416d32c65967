// Copyright 2026 Benoit Pereira da Silva
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/benoit-pereira-da-silva/gemgo/pkg/gemgo/gemfiles"
	"github.com/benoit-pereira-da-silva/gemgo/pkg/gemgo/gemini"
)

// Runner is a configurable CLI runtime that can be embedded by third parties.
type Runner struct {
	Stdin io.Reader
	Usage func(io.Writer)

	Parse func(args []string) (Config, error)

	// LoadConfig resolves the API configuration, usually from the
	// environment. Flag overrides are applied on top of its result.
	LoadConfig func() (gemini.Config, error)
}

// Option configures a Runner.
type Option func(*Runner)

// NewRunner constructs a Runner with the default gemgo behavior. Use options
// to override specific extension points.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.ensureDefaults()
	return r
}

// WithStdin overrides the interactive input source.
func WithStdin(stdin io.Reader) Option {
	return func(r *Runner) { r.Stdin = stdin }
}

// WithConfigLoader overrides how the API configuration is resolved.
func WithConfigLoader(load func() (gemini.Config, error)) Option {
	return func(r *Runner) { r.LoadConfig = load }
}

func (r *Runner) ensureDefaults() {
	if r.Stdin == nil {
		r.Stdin = os.Stdin
	}
	if r.Usage == nil {
		r.Usage = PrintUsage
	}
	if r.Parse == nil {
		r.Parse = parseCLI
	}
	if r.LoadConfig == nil {
		r.LoadConfig = gemini.ConfigFromEnv
	}
}

// Run executes the default CLI against argv.
func Run(argv []string, stdout io.Writer, stderr io.Writer) int {
	return NewRunner().Run(argv, stdout, stderr)
}

// Run executes the CLI against argv.
func (r *Runner) Run(argv []string, stdout io.Writer, stderr io.Writer) int {
	r.ensureDefaults()

	if len(argv) == 0 {
		argv = []string{"gemgo"}
	}

	// "gemgo help" convenience command.
	if len(argv) >= 2 {
		switch strings.TrimSpace(argv[1]) {
		case "help", "usage", "--help", "-help", "-h", "--h":
			r.Usage(stdout)
			return 0
		}
	}

	cfg, err := r.Parse(argv[1:])
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		fmt.Fprintln(stderr)
		r.Usage(stderr)
		return 2
	}

	if cfg.Help.Enabled() {
		r.Usage(stdout)
		return 0
	}
	if cfg.Version.Enabled() {
		fmt.Fprintln(stdout, version)
		return 0
	}
	if strings.TrimSpace(cfg.Message) == "" && !cfg.Loop.Enabled() {
		fmt.Fprintln(stderr, "Error: provide --message or use --loop")
		fmt.Fprintln(stderr)
		r.Usage(stderr)
		return 2
	}

	apiCfg, err := r.LoadConfig()
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	apiCfg = applyOverrides(apiCfg, cfg)

	var logger *zap.SugaredLogger
	if cfg.Debug.Enabled() {
		zl, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			return 1
		}
		defer zl.Sync()
		logger = zl.Sugar()
	}

	session, err := gemini.NewSessionBuilder().
		Config(apiCfg).
		Logger(logger).
		Build()
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}

	settings := buildSettings(cfg)

	if cfg.Verbose.Enabled() {
		fmt.Fprintf(stderr, "Model: %s\n", apiCfg.Model)
		fmt.Fprintf(stderr, "Base URL: %s\n", apiCfg.BaseURL)
		fmt.Fprintf(stderr, "API version: %s\n", apiCfg.APIVersion)
		fmt.Fprintf(stderr, "SSE: %t\n", !apiCfg.DisableSSE)
		fmt.Fprintln(stderr)
	}

	// Root context reacts to Ctrl+C (SIGINT) and SIGTERM.
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional attachment, uploaded through the files API.
	var attachment *gemini.FileData
	if strings.TrimSpace(cfg.FilePath) != "" {
		manager := gemfiles.NewManager(session.Client().Config()).WithLogger(logger)
		fd, err := manager.AddFile(rootCtx, cfg.FilePath)
		if err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			return 1
		}
		attachment = &fd
	}

	// Prepare a buffered writer for smooth streaming.
	outw := bufio.NewWriter(stdout)
	defer outw.Flush()

	if cfg.Loop.Enabled() {
		return interactiveLoop(rootCtx, cfg, session, settings, attachment, r.Stdin, outw, stderr)
	}

	ctx, cancel := withOptionalTimeout(rootCtx, cfg.Timeout)
	defer cancel()

	if err := streamTurn(ctx, session, settings, cfg.Message, attachment, outw); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	fmt.Fprintln(outw)
	return 0
}

// applyOverrides layers explicit flag values over the environment config.
func applyOverrides(apiCfg gemini.Config, cfg Config) gemini.Config {
	if m := strings.TrimSpace(cfg.Model); m != "" {
		apiCfg = apiCfg.WithModel(gemini.Model(m))
	}
	if u := strings.TrimSpace(cfg.BaseURL); u != "" {
		apiCfg = apiCfg.WithBaseURL(u)
	}
	if v := strings.TrimSpace(cfg.APIVersion); v != "" {
		apiCfg = apiCfg.WithAPIVersion(v)
	}
	if cfg.NoSSE.Enabled() {
		apiCfg.DisableSSE = true
	}
	return apiCfg
}

func buildSettings(cfg Config) *gemini.Settings {
	settings := gemini.NewSettings()
	if cfg.Temperature.IsSet() {
		settings.SetTemperature(cfg.Temperature.Value())
	}
	if cfg.TopP.IsSet() {
		settings.SetTopP(cfg.TopP.Value())
	}
	if cfg.MaxTokens.IsSet() {
		settings.SetMaxOutputTokens(cfg.MaxTokens.Value())
	}
	if s := strings.TrimSpace(cfg.Instructions); s != "" {
		settings.SetSystemInstruction(s)
	}
	return settings
}
