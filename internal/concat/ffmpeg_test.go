package concat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/MrWong99/murphy/internal/tempstore"
	"github.com/MrWong99/murphy/pkg/provider/tts"
)

// fakeFFmpeg is a shell stand-in that records its arguments and concatenates
// the files listed in the manifest into the output path (the last argument).
const fakeFFmpeg = `#!/bin/sh
echo "$@" > "$(dirname "$0")/args.txt"
manifest=""
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -i) manifest="$2"; shift 2 ;;
    *) out="$1"; shift ;;
  esac
done
sed -n "s/^file '\(.*\)'$/\1/p" "$manifest" | while IFS= read -r f; do cat "$f"; done > "$out"
`

const failingFFmpeg = `#!/bin/sh
echo "Invalid data found when processing input" >&2
exit 3
`

const silentFFmpeg = `#!/bin/sh
exit 0
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	return path
}

func newWorkspace(t *testing.T, jobID string) *tempstore.Workspace {
	t.Helper()
	s, err := tempstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("tempstore.New: %v", err)
	}
	ws, err := s.NewJob(jobID)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	return ws
}

func writeClips(t *testing.T, ws *tempstore.Workspace, contents ...string) []Clip {
	t.Helper()
	var clips []Clip
	for i, c := range contents {
		p := ws.ClipPath(i, "mp3")
		if err := os.WriteFile(p, []byte(c), 0o644); err != nil {
			t.Fatal(err)
		}
		clips = append(clips, Clip{Path: p, Format: "mp3"})
	}
	return clips
}

// writeFormatted writes one clip per format, named after its container.
func writeFormatted(t *testing.T, ws *tempstore.Workspace, formats ...string) []Clip {
	t.Helper()
	var clips []Clip
	for i, format := range formats {
		p := ws.ClipPath(i, tts.Container(format))
		if err := os.WriteFile(p, []byte("X"), 0o644); err != nil {
			t.Fatal(err)
		}
		clips = append(clips, Clip{Path: p, Format: format})
	}
	return clips
}

func TestNewFFmpeg_RequiresPath(t *testing.T) {
	if _, err := NewFFmpeg(""); !errors.Is(err, ErrBinaryNotFound) {
		t.Fatalf("err = %v, want ErrBinaryNotFound", err)
	}
}

func TestJoin_StreamCopyInOrder(t *testing.T) {
	bin := writeScript(t, fakeFFmpeg)
	f, _ := NewFFmpeg(bin)
	ws := newWorkspace(t, "job1")
	clips := writeClips(t, ws, "A", "B", "C")

	// Drop the middle clip as if its synthesis failed.
	out, err := f.Join(context.Background(), ws, []Clip{clips[0], clips[2]})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if out != ws.OutputPath("mp3") {
		t.Errorf("output = %q, want %q", out, ws.OutputPath("mp3"))
	}
	data, _ := os.ReadFile(out)
	if string(data) != "AC" {
		t.Errorf("joined = %q, want %q", data, "AC")
	}

	manifest, _ := os.ReadFile(ws.ManifestPath())
	want := "file '" + clips[0].Path + "'\nfile '" + clips[2].Path + "'\n"
	if string(manifest) != want {
		t.Errorf("manifest =\n%s\nwant\n%s", manifest, want)
	}

	args, _ := os.ReadFile(filepath.Join(filepath.Dir(bin), "args.txt"))
	if !strings.Contains(string(args), "-f concat -safe 0 -i") || !strings.Contains(string(args), "-c copy") {
		t.Errorf("args = %q, want concat demuxer with stream copy", args)
	}
}

func TestJoin_Reencode(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		formats []string
	}{
		{name: "forced", opts: []Option{WithReencode(true), WithBitrate("192k")}, formats: []string{"mp3", "mp3"}},
		{name: "wav clips", opts: []Option{WithBitrate("192k")}, formats: []string{"wav"}},
		{name: "wav among mp3", opts: []Option{WithBitrate("192k")}, formats: []string{"mp3", "wav_24000"}},
		{name: "mp3 encodings differ", opts: []Option{WithBitrate("192k")}, formats: []string{"mp3", "mp3_22050_32"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := writeScript(t, fakeFFmpeg)
			f, _ := NewFFmpeg(bin, tt.opts...)
			ws := newWorkspace(t, "job2")

			if _, err := f.Join(context.Background(), ws, writeFormatted(t, ws, tt.formats...)); err != nil {
				t.Fatalf("Join: %v", err)
			}
			args, _ := os.ReadFile(filepath.Join(filepath.Dir(bin), "args.txt"))
			if !strings.Contains(string(args), "-c:a libmp3lame -b:a 192k") {
				t.Errorf("args = %q, want libmp3lame re-encode", args)
			}
		})
	}
}

func TestCopyable(t *testing.T) {
	tests := []struct {
		name  string
		clips []Clip
		ext   string
		want  bool
	}{
		{"same mp3", []Clip{{Format: "mp3"}, {Format: "MP3"}}, "mp3", true},
		{"same elevenlabs mp3", []Clip{{Format: "mp3_44100_128"}, {Format: "mp3_44100_128"}}, "mp3", true},
		{"format from path", []Clip{{Path: "/t/a.mp3"}, {Path: "/t/b.mp3", Format: "mp3"}}, "mp3", true},
		{"wav into mp3", []Clip{{Path: "/t/a.mp3", Format: "wav"}}, "mp3", false},
		{"mixed encodings", []Clip{{Format: "mp3"}, {Format: "mp3_44100_128"}}, "mp3", false},
		{"wav into wav", []Clip{{Format: "wav_16000"}, {Format: "wav_16000"}}, "wav", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := copyable(tt.clips, tt.ext); got != tt.want {
				t.Errorf("copyable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJoin_NoClipsNeverRunsBinary(t *testing.T) {
	bin := writeScript(t, fakeFFmpeg)
	f, _ := NewFFmpeg(bin)
	ws := newWorkspace(t, "job3")

	if _, err := f.Join(context.Background(), ws, nil); !errors.Is(err, ErrNoClips) {
		t.Fatalf("err = %v, want ErrNoClips", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(bin), "args.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Error("ffmpeg was invoked for an empty clip list")
	}
	if _, err := os.Stat(ws.ManifestPath()); !errors.Is(err, os.ErrNotExist) {
		t.Error("manifest was written for an empty clip list")
	}
}

func TestJoin_MissingBinary(t *testing.T) {
	f, _ := NewFFmpeg(filepath.Join(t.TempDir(), "does-not-exist"))
	ws := newWorkspace(t, "job4")
	clips := writeClips(t, ws, "A")

	if _, err := f.Join(context.Background(), ws, clips); !errors.Is(err, ErrBinaryNotFound) {
		t.Fatalf("err = %v, want ErrBinaryNotFound", err)
	}
}

func TestJoin_NonZeroExit(t *testing.T) {
	bin := writeScript(t, failingFFmpeg)
	f, _ := NewFFmpeg(bin)
	ws := newWorkspace(t, "job5")
	clips := writeClips(t, ws, "A")

	_, err := f.Join(context.Background(), ws, clips)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("err = %v, want *ExitError", err)
	}
	if exitErr.Code != 3 {
		t.Errorf("Code = %d, want 3", exitErr.Code)
	}
	if !strings.Contains(exitErr.Stderr, "Invalid data") {
		t.Errorf("Stderr = %q", exitErr.Stderr)
	}
}

func TestJoin_MissingOutput(t *testing.T) {
	bin := writeScript(t, silentFFmpeg)
	f, _ := NewFFmpeg(bin)
	ws := newWorkspace(t, "job6")

	if _, err := f.Join(context.Background(), ws, writeClips(t, ws, "A")); !errors.Is(err, ErrNoOutput) {
		t.Fatalf("err = %v, want ErrNoOutput", err)
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	notExec := filepath.Join(dir, "plain")
	_ = os.WriteFile(notExec, []byte("x"), 0o644)

	for _, p := range []string{dir, notExec, filepath.Join(dir, "missing")} {
		f, _ := NewFFmpeg(p)
		if err := f.Check(); !errors.Is(err, ErrBinaryNotFound) {
			t.Errorf("Check(%s) = %v, want ErrBinaryNotFound", p, err)
		}
	}
}

func TestEscapeQuote(t *testing.T) {
	if got := escapeQuote("/tmp/it's.mp3"); got != `/tmp/it'\''s.mp3` {
		t.Errorf("escapeQuote = %q", got)
	}
}

func TestJoin_FailureRemovesPartialOutput(t *testing.T) {
	// Writes half a file to the output argument, then fails.
	bin := writeScript(t, `#!/bin/sh
for a in "$@"; do out="$a"; done
printf 'ID3' > "$out"
exit 1
`)
	f, _ := NewFFmpeg(bin)
	ws := newWorkspace(t, "job7")

	if _, err := f.Join(context.Background(), ws, writeClips(t, ws, "A")); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(ws.OutputPath("mp3")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("partial output left behind: %v", err)
	}
}
