package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrWong99/murphy/internal/config"
	"github.com/MrWong99/murphy/internal/observe"
	"github.com/MrWong99/murphy/internal/pipeline"
)

type renderOptions struct {
	scriptPath string
	speakers   []string
	out        string
	language   string
}

func newRenderCmd() *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a script file into a single audio track",
		Example: `  murphy render --script episode.txt --speaker Sarah=en-US-natalie --speaker Ken=en-US-ken --out episode.mp3
  cat episode.txt | murphy render --script - --speaker Sarah=en-US-natalie`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return render(ctx, cfg, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.scriptPath, "script", "", `script file, or "-" for stdin`)
	cmd.Flags().StringArrayVar(&opts.speakers, "speaker", nil, "speaker mapping Name=voiceID, in script priority order (repeatable)")
	cmd.Flags().StringVar(&opts.out, "out", "", "output file (default <job id>.mp3 in the working directory)")
	cmd.Flags().StringVar(&opts.language, "language", "", "language label recorded in metrics")
	_ = cmd.MarkFlagRequired("script")
	_ = cmd.MarkFlagRequired("speaker")
	return cmd
}

// parseSpeakers splits Name=voiceID pairs, keeping their order.
func parseSpeakers(pairs []string) (names, voices []string, err error) {
	for _, p := range pairs {
		name, voice, ok := strings.Cut(p, "=")
		name, voice = strings.TrimSpace(name), strings.TrimSpace(voice)
		if !ok || name == "" || voice == "" {
			return nil, nil, fmt.Errorf("murphy: invalid --speaker %q, want Name=voiceID", p)
		}
		names = append(names, name)
		voices = append(voices, voice)
	}
	return names, voices, nil
}

func readScript(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("murphy: read script: %w", err)
	}
	return string(data), nil
}

func render(ctx context.Context, cfg *config.Config, opts renderOptions, stdin io.Reader, stdout io.Writer) error {
	names, voices, err := parseSpeakers(opts.speakers)
	if err != nil {
		return err
	}
	script, err := readScript(opts.scriptPath, stdin)
	if err != nil {
		return err
	}

	rt, err := newRuntime(ctx, cfg, observe.DefaultMetrics(), false)
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := rt.pipeline.Run(ctx, pipeline.Request{
		Script:   script,
		Names:    names,
		VoiceIDs: voices,
		Language: opts.language,
	})
	if err != nil {
		return err
	}
	defer func() { _ = res.Release() }()

	out := opts.out
	if out == "" {
		out = res.JobID + filepath.Ext(res.Path)
	}
	if err := moveFile(res.Path, out); err != nil {
		return err
	}

	for _, d := range res.Report.Dropped {
		if d.Suggestion != "" {
			_, _ = fmt.Fprintf(stdout, "skipped line %d: unknown speaker %q (did you mean %q?)\n", d.Line+1, d.Label, d.Suggestion)
			continue
		}
		_, _ = fmt.Fprintf(stdout, "skipped line %d: no known speaker\n", d.Line+1)
	}
	_, _ = fmt.Fprintf(stdout, "wrote %s (%d/%d utterances rendered)\n", out, res.Rendered(), res.Utterances)
	return nil
}

// moveFile renames src to dst, falling back to a copy when they live on
// different file systems.
func moveFile(src, dst string) (err error) {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("murphy: open artifact: %w", err)
	}
	defer in.Close()

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("murphy: create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("murphy: close output: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()
	if _, err = io.Copy(f, in); err != nil {
		return fmt.Errorf("murphy: copy artifact: %w", err)
	}
	return nil
}
