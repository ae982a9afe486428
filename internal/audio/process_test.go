package audio

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/voiceforge/internal/runner"
)

func TestBuildOperations(t *testing.T) {
	tests := []struct {
		name string
		ops  []Operation
		want []OpKind
	}{
		{
			name: "nothing enabled",
			ops:  BuildOperations(false, 0, false, 0, false, 0, 0, "", ""),
			want: nil,
		},
		{
			name: "normalize only",
			ops:  BuildOperations(true, -20, false, 0, false, 0, 0, "", ""),
			want: []OpKind{OpNormalize},
		},
		{
			name: "full chain keeps order",
			ops:  BuildOperations(true, -20, true, time.Second, true, -40, time.Second, "mp3", "192k"),
			want: []OpKind{OpNormalize, OpFade, OpTrimSilence, OpConvert},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.ops) != len(tt.want) {
				t.Fatalf("Expected %d operations, got %d", len(tt.want), len(tt.ops))
			}
			for i, kind := range tt.want {
				if tt.ops[i].Kind != kind {
					t.Errorf("Operation %d: expected %s, got %s", i, kind, tt.ops[i].Kind)
				}
			}
		})
	}
}

func TestProcessFileMissingInput(t *testing.T) {
	p := NewProcessor(&fakeRunner{}, "ffmpeg", time.Minute, testLogger())
	err := p.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "nope.wav"), "out.wav",
		BuildOperations(true, -20, false, 0, false, 0, 0, "", ""))
	if err == nil {
		t.Fatal("Expected error for missing input")
	}
}

func TestProcessFileFilterArgs(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	if err := os.WriteFile(in, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		ops        []Operation
		wantFilter string
	}{
		{
			name:       "normalize uses loudnorm",
			ops:        []Operation{{Kind: OpNormalize, TargetDBFS: -20}},
			wantFilter: "loudnorm=I=-20",
		},
		{
			name:       "fade uses areverse trick",
			ops:        []Operation{{Kind: OpFade, FadeDuration: 2 * time.Second}},
			wantFilter: "afade=t=in:st=0:d=2,areverse",
		},
		{
			name: "silence removal thresholds",
			ops: []Operation{{
				Kind:             OpTrimSilence,
				SilenceThreshold: -40,
				MinSilenceLen:    500 * time.Millisecond,
			}},
			wantFilter: "silenceremove=start_periods=1:start_threshold=-40dB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeRunner{onRun: func(req runner.Request) {
				// The output target must exist for the in-place rename.
				os.WriteFile(req.Args[len(req.Args)-1], []byte("y"), 0o644)
			}}
			p := NewProcessor(fake, "ffmpeg", time.Minute, testLogger())
			if err := p.ProcessFile(context.Background(), in, in, tt.ops); err != nil {
				t.Fatalf("ProcessFile failed: %v", err)
			}

			joined := strings.Join(fake.requests[0].Args, " ")
			if !strings.Contains(joined, tt.wantFilter) {
				t.Errorf("Expected filter %q in args: %v", tt.wantFilter, fake.requests[0].Args)
			}
		})
	}
}

func TestProcessDirSkipsNonAudio(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.wav", "b.mp3", "notes.txt", "c.WAV"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	fake := &fakeRunner{onRun: func(req runner.Request) {
		os.WriteFile(req.Args[len(req.Args)-1], []byte("y"), 0o644)
	}}
	p := NewProcessor(fake, "ffmpeg", time.Minute, testLogger())
	ops := []Operation{{Kind: OpNormalize, TargetDBFS: -20}}
	if err := p.ProcessDir(context.Background(), dir, ops); err != nil {
		t.Fatalf("ProcessDir failed: %v", err)
	}

	if len(fake.requests) != 3 {
		t.Errorf("Expected 3 audio files processed, got %d", len(fake.requests))
	}
}
