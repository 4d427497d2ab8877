package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/james-see/multienv/pkg/patch"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lead.menv")

	execute(t, "new", path, "--attack", "5", "--decay", "20", "--sustain", "0.25", "--release", "40")

	info := execute(t, "info", path)
	for _, want := range []string{"Stages:      4", "Sustain:     stage 2", "Shape:       ADSR"} {
		if !strings.Contains(info, want) {
			t.Errorf("info output missing %q:\n%s", want, info)
		}
	}

	eval := execute(t, "eval", path, "--at", "0,5,100", "--hold", "100")
	for _, want := range []string{"0\t0.000000", "5\t1.000000", "100\t0.250000"} {
		if !strings.Contains(eval, want) {
			t.Errorf("eval output missing %q:\n%s", want, eval)
		}
	}

	yamlPath := filepath.Join(dir, "lead.yaml")
	execute(t, "convert", path, "-o", yamlPath)
	def, err := patch.Load(yamlPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st, _ := def.Stage(3); st.Duration != 40 {
		t.Errorf("release = %v, want 40", st.Duration)
	}

	for _, name := range []string{"lead.wav", "lead.mid"} {
		out := filepath.Join(dir, name)
		execute(t, "render", path, "-o", out, "--hold", "50")
		if fi, err := os.Stat(out); err != nil || fi.Size() == 0 {
			t.Errorf("render %s produced no output: %v", name, err)
		}
	}

	randomized := filepath.Join(dir, "random.json")
	execute(t, "randomize", path, "-o", randomized, "--seed", "7", "--stages", "6")
	def, err = patch.Load(randomized)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := def.NumStages(); got != 6 {
		t.Errorf("NumStages() = %d, want 6", got)
	}
}

func TestEvalRejectsNonPositiveStep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pad.json")
	t.Cleanup(func() {
		step = 10
		arOnly = false
	})
	execute(t, "new", path, "--ar", "--attack", "10", "--release", "10")
	evalTimes = nil

	for _, bad := range []string{"0", "-1", "NaN"} {
		t.Run(bad, func(t *testing.T) {
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetErr(&out)
			rootCmd.SetArgs([]string{"eval", path, "--step", bad})
			if err := rootCmd.Execute(); err == nil {
				t.Errorf("eval --step %s should fail", bad)
			}
		})
	}

	got := execute(t, "eval", path, "--step", "5", "--hold", "0")
	for _, want := range []string{"0\t0.000000", "5\t0.500000", "10\t1.000000"} {
		if !strings.Contains(got, want) {
			t.Errorf("eval output missing %q:\n%s", want, got)
		}
	}
}
