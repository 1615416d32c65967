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

// Package cli implements the `gemgo` command-line interface runtime.
//
// `gemgo` is a small streaming chat CLI for the Gemini generative language
// API. It keeps the whole conversation in a session context, so every turn
// sees the previous ones.
//
// The default behavior is exposed by:
//
//	os.Exit(cli.Run(os.Args, os.Stdout, os.Stderr))
//
// # Environment variables
//
//   - GEMINI_API_KEY (required)
//   - GEMINI_API_URL (optional; default: https://generativelanguage.googleapis.com)
//   - GEMINI_API_VERSION (optional; default: v1beta)
//   - GEMINI_MODEL (optional; default: gemini-2.0-flash)
//   - GEMINI_TIMEOUT, GEMINI_CONNECT_TIMEOUT, GEMINI_DISABLE_SSE (optional)
//
// A .env file in the working directory is loaded when present.
//
// Usage
//
//	gemgo help
//	gemgo --message "Hello!"
//	gemgo --model gemini-2.5-pro --loop
//	gemgo --file photo.jpg --message "Describe this image."
//
// Exit status
//
//	0 - success
//	2 - CLI usage / argument error
//	1 - runtime failure (HTTP error, missing API key, etc.)
package cli

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// version is set at build time using:
//
//	go build -ldflags "-X github.com/benoit-pereira-da-silva/gemgo/pkg/gemgo/cli.version=v1.2.3"
//
// When not set, it defaults to "dev".
var version = "dev"

// Version returns the build-time version string printed by --version.
func Version() string { return version }

// Config contains every user-facing option. Numeric and boolean fields use
// "optional" wrappers so we can preserve tri-state behavior (unset vs
// explicitly set).
type Config struct {
	Help    OptBool
	Version OptBool
	Verbose OptBool
	Debug   OptBool

	Model      string
	BaseURL    string
	APIVersion string

	Message  string
	FilePath string

	Instructions string

	Loop         OptBool
	ExitCommands string

	Timeout OptDuration
	NoSSE   OptBool

	Temperature OptFloat64
	TopP        OptFloat64
	MaxTokens   OptInt
}

// OptBool is a flag.Value that tracks whether it has been explicitly set.
// It also supports bool flag shorthand `--flag` (implicit true) by
// implementing IsBoolFlag.
type OptBool struct {
	set bool
	val bool
}

func (b *OptBool) IsBoolFlag() bool { return true }

func (b *OptBool) Set(s string) error {
	b.set = true
	// `--flag` may call Set("").
	if strings.TrimSpace(s) == "" {
		b.val = true
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("parse bool %q: %w", s, err)
	}
	b.val = v
	return nil
}

func (b *OptBool) String() string {
	if !b.set {
		return ""
	}
	return strconv.FormatBool(b.val)
}

// IsSet reports whether the flag has been explicitly set by the user.
func (b OptBool) IsSet() bool { return b.set }

// Value returns the parsed flag value.
func (b OptBool) Value() bool { return b.val }

// Enabled is a convenience shortcut for IsSet() && Value().
func (b OptBool) Enabled() bool { return b.set && b.val }

type OptInt struct {
	set bool
	val int
}

func (i *OptInt) Set(s string) error {
	i.set = true
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("parse int %q: %w", s, err)
	}
	i.val = v
	return nil
}

func (i *OptInt) String() string {
	if !i.set {
		return ""
	}
	return strconv.Itoa(i.val)
}

func (i OptInt) IsSet() bool { return i.set }

func (i OptInt) Value() int { return i.val }

type OptFloat64 struct {
	set bool
	val float64
}

func (f *OptFloat64) Set(s string) error {
	f.set = true
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("parse float %q: %w", s, err)
	}
	f.val = v
	return nil
}

func (f *OptFloat64) String() string {
	if !f.set {
		return ""
	}
	return strconv.FormatFloat(f.val, 'f', -1, 64)
}

func (f OptFloat64) IsSet() bool { return f.set }

func (f OptFloat64) Value() float64 { return f.val }

type OptDuration struct {
	set bool
	val time.Duration
}

func (d *OptDuration) Set(s string) error {
	d.set = true
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.val = v
	return nil
}

func (d *OptDuration) String() string {
	if !d.set {
		return ""
	}
	return d.val.String()
}

func (d OptDuration) IsSet() bool { return d.set }

func (d OptDuration) Value() time.Duration { return d.val }

// parseCLI parses args (argv without the program name) into a Config.
func parseCLI(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("gemgo", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.Var(&cfg.Help, "help", "print usage and exit")
	fs.Var(&cfg.Version, "version", "print version and exit")
	fs.Var(&cfg.Verbose, "verbose", "print resolved configuration on stderr")
	fs.Var(&cfg.Debug, "debug", "enable debug logging on stderr")

	fs.StringVar(&cfg.Model, "model", "", "model name (default from GEMINI_MODEL)")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "API base URL override")
	fs.StringVar(&cfg.APIVersion, "api-version", "", "API version override")

	fs.StringVar(&cfg.Message, "message", "", "one-shot message to send")
	fs.StringVar(&cfg.FilePath, "file", "", "path of a file to attach to the message")
	fs.StringVar(&cfg.Instructions, "instructions", "", "system instruction text")

	fs.Var(&cfg.Loop, "loop", "interactive chat loop")
	fs.StringVar(&cfg.ExitCommands, "exit-commands", "exit,quit,bye", "comma-separated loop exit commands")

	fs.Var(&cfg.Timeout, "timeout", "per-turn timeout (e.g. 45s)")
	fs.Var(&cfg.NoSSE, "no-sse", "stream as a plain JSON array instead of SSE")

	fs.Var(&cfg.Temperature, "temperature", "sampling temperature")
	fs.Var(&cfg.TopP, "top-p", "nucleus sampling threshold")
	fs.Var(&cfg.MaxTokens, "max-tokens", "maximum output tokens")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if rest := fs.Args(); len(rest) > 0 {
		return cfg, fmt.Errorf("unexpected argument %q", rest[0])
	}
	return cfg, nil
}

// PrintUsage writes the usage text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, `gemgo %s - streaming chat CLI for the Gemini API

Usage:
  gemgo [flags]
  gemgo help

Flags:
  --message TEXT        one-shot message to send
  --file PATH           attach a file to the message (uploaded once, cached by content)
  --loop                interactive chat loop (exit with: exit, quit, bye)
  --exit-commands CSV   loop exit commands (default "exit,quit,bye")
  --model NAME          model name (default from GEMINI_MODEL, else gemini-2.0-flash)
  --instructions TEXT   system instruction for the whole session
  --temperature F       sampling temperature
  --top-p F             nucleus sampling threshold
  --max-tokens N        maximum output tokens
  --timeout D           per-turn timeout, e.g. 45s
  --base-url URL        API base URL override
  --api-version V       API version override (default v1beta)
  --no-sse              stream as a plain JSON array instead of SSE
  --verbose             print resolved configuration on stderr
  --debug               enable debug logging on stderr
  --version             print version and exit

Environment:
  GEMINI_API_KEY        required
  GEMINI_MODEL          default model
  GEMINI_API_URL        base URL override

Examples:
  gemgo --message "Hello!"
  gemgo --model gemini-2.5-pro --loop
  gemgo --file photo.jpg --message "Describe this image."
`, version)
}
