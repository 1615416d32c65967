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
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/benoit-pereira-da-silva/gemgo/pkg/gemgo/gemini"
)

func withOptionalTimeout(parent context.Context, d OptDuration) (context.Context, context.CancelFunc) {
	if !d.IsSet() || d.Value() <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, d.Value())
}

// streamTurn sends one message, streams the model reply to outw chunk by
// chunk, and records the full reply in the session context so the next turn
// sees it.
func streamTurn(
	ctx context.Context,
	session *gemini.Session,
	settings *gemini.Settings,
	message string,
	attachment *gemini.FileData,
	outw *bufio.Writer,
) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return errors.New("empty message")
	}

	var (
		stream *gemini.Stream
		err    error
	)
	if attachment != nil {
		stream, err = session.SendMessageWithFileStream(ctx, message, *attachment, gemini.RoleUser, settings)
	} else {
		stream, err = session.SendMessageStream(ctx, message, gemini.RoleUser, settings)
	}
	if err != nil {
		return err
	}
	defer stream.Close()

	var reply strings.Builder
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		text := chunk.Text()
		if text == "" {
			continue
		}
		reply.WriteString(text)
		if _, err := outw.WriteString(text); err != nil {
			return err
		}
		_ = outw.Flush()
	}

	if reply.Len() > 0 {
		session.Context().PushMessage(gemini.RoleModel, reply.String())
	}
	return nil
}

func interactiveLoop(
	rootCtx context.Context,
	cfg Config,
	session *gemini.Session,
	settings *gemini.Settings,
	attachment *gemini.FileData,
	stdin io.Reader,
	outw *bufio.Writer,
	stderr io.Writer,
) int {
	if stdin == nil {
		stdin = os.Stdin
	}

	exitCmds := make(map[string]struct{})
	for _, c := range splitCSV(cfg.ExitCommands) {
		exitCmds[strings.ToLower(c)] = struct{}{}
	}

	inReader := bufio.NewReader(stdin)

	// The attachment rides on the first turn only.
	pending := attachment

	for {
		select {
		case <-rootCtx.Done():
			fmt.Fprintln(stderr, "\nCanceled.")
			return 1
		default:
		}

		// Prompt.
		fmt.Fprint(outw, "> ")
		_ = outw.Flush()

		line, err := inReader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(outw)
				_ = outw.Flush()
				return 0
			}
			fmt.Fprintln(stderr, "Error reading stdin:", err)
			return 1
		}

		msg := strings.TrimSpace(line)
		if msg == "" {
			continue
		}
		if _, ok := exitCmds[strings.ToLower(msg)]; ok {
			return 0
		}

		ctx, cancel := withOptionalTimeout(rootCtx, cfg.Timeout)
		err = streamTurn(ctx, session, settings, msg, pending, outw)
		cancel()
		pending = nil
		if err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			fmt.Fprintln(outw)
			_ = outw.Flush()
			continue
		}
		fmt.Fprintln(outw)
		_ = outw.Flush()
	}
}

func splitCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
