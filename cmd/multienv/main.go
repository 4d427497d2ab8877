// Package main is the entry point for the multienv CLI
package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/james-see/multienv/pkg/api"
	"github.com/james-see/multienv/pkg/editor"
	"github.com/james-see/multienv/pkg/envelope"
	"github.com/james-see/multienv/pkg/patch"
	"github.com/james-see/multienv/pkg/render"
	"github.com/james-see/multienv/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	outputFile string
	serverPort int

	attack, decay, sustain, release float64
	arOnly                          bool

	evalTimes  []float64
	hold       float64
	length     float64
	step       float64
	sampleRate int
	controller int
	tempo      float64

	seed       int64
	stageCount int

	viewLength float64
	sliders    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "multienv",
	Short: "Edit, play and convert multi-stage envelopes",
	Long: `multienv creates and edits multi-stage envelopes with an optional
sustain stage, evaluates them, and renders them as control signals or
MIDI controller automation.

Examples:
  multienv new lead.menv --attack 5 --decay 200 --sustain 0.4 --release 300
  multienv info lead.menv
  multienv eval lead.menv --at 0,10,100 --hold 500
  multienv render lead.menv -o lead.wav --hold 500 --rate 1000
  multienv convert lead.menv -o lead.yaml
  multienv tui lead.menv
  multienv serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

var newCmd = &cobra.Command{
	Use:   "new <file>",
	Short: "Create an ADSR or AR envelope file",
	Args:  cobra.ExactArgs(1),
	RunE:  runNew,
}

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show the stages of an envelope file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var evalCmd = &cobra.Command{
	Use:   "eval <file>",
	Short: "Print envelope levels for a note held for --hold ms",
	Args:  cobra.ExactArgs(1),
	RunE:  runEval,
}

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render an envelope to .wav or .mid",
	Long:  `Plays the envelope against a note held for --hold ms and writes a WAV control signal or MIDI controller automation, chosen by the output extension.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Convert between envelope formats",
	Long:  `Detects the input format and converts to the format named by the output file extension (.menv, .json, .yaml).`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var randomizeCmd = &cobra.Command{
	Use:   "randomize <file>",
	Short: "Randomize targets and durations of an envelope",
	Args:  cobra.ExactArgs(1),
	RunE:  runRandomize,
}

var tuiCmd = &cobra.Command{
	Use:   "tui [file]",
	Short: "Launch the interactive envelope editor",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// new command
	newCmd.Flags().Float64Var(&attack, "attack", 10, "Attack time in ms")
	newCmd.Flags().Float64Var(&decay, "decay", 100, "Decay time in ms")
	newCmd.Flags().Float64Var(&sustain, "sustain", 0.5, "Sustain level (0-1)")
	newCmd.Flags().Float64Var(&release, "release", 200, "Release time in ms")
	newCmd.Flags().BoolVar(&arOnly, "ar", false, "Create a two stage attack/release envelope")

	// eval command
	evalCmd.Flags().Float64SliceVar(&evalTimes, "at", nil, "Times in ms to evaluate (default: sample the whole note)")
	evalCmd.Flags().Float64Var(&hold, "hold", 500, "Note length in ms before release")
	evalCmd.Flags().Float64Var(&step, "step", 10, "Sampling interval in ms when --at is not given")

	// render command
	renderCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .wav or .mid file path (required)")
	_ = renderCmd.MarkFlagRequired("output")
	renderCmd.Flags().Float64Var(&hold, "hold", 500, "Note length in ms before release")
	renderCmd.Flags().Float64Var(&length, "length", 0, "Rendered length in ms (default: until the release ends)")
	renderCmd.Flags().IntVar(&sampleRate, "rate", 1000, "WAV sample rate in Hz")
	renderCmd.Flags().IntVar(&controller, "cc", 1, "MIDI controller number")
	renderCmd.Flags().Float64Var(&tempo, "tempo", 120, "MIDI tempo in BPM")

	// convert command
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (required)")
	_ = convertCmd.MarkFlagRequired("output")

	// randomize command
	randomizeCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: overwrite input)")
	randomizeCmd.Flags().Int64Var(&seed, "seed", 1, "Random seed")
	randomizeCmd.Flags().IntVar(&stageCount, "stages", 0, "Resize to this many stages first")

	// tui command
	tuiCmd.Flags().Float64Var(&viewLength, "view", editor.DefaultViewLength, "Visible time window in ms")
	tuiCmd.Flags().BoolVar(&sliders, "sliders", false, "Start in slider mode")
	tuiCmd.Flags().Int64Var(&seed, "seed", 1, "Seed for right click randomize")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	// Add commands
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(randomizeCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func runNew(cmd *cobra.Command, args []string) error {
	def := envelope.NewADSR(attack, decay, sustain, release)
	if arOnly {
		def = envelope.NewAR(attack, release)
	}
	if err := patch.Save(args[0], def); err != nil {
		return err
	}
	fmt.Printf("Created %s\n", args[0])
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	def, err := patch.Load(args[0])
	if err != nil {
		return err
	}
	s := def.Snapshot()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "File:        %s\n", args[0])
	fmt.Fprintf(out, "Stages:      %d\n", len(s.Stages))
	if s.HasSustain() {
		fmt.Fprintf(out, "Sustain:     stage %d\n", s.SustainStage)
	} else {
		fmt.Fprintln(out, "Sustain:     none")
	}
	if s.MaxSustain == envelope.Indefinite {
		fmt.Fprintln(out, "Max sustain: until release")
	} else {
		fmt.Fprintf(out, "Max sustain: %g ms\n", s.MaxSustain)
	}
	fmt.Fprintf(out, "Time scale:  %g\n", s.TimeScale)
	if s.IsStandardADSR() {
		fmt.Fprintln(out, "Shape:       ADSR")
	}
	for i, st := range s.Stages {
		dur := fmt.Sprintf("%g ms", st.Duration)
		if math.IsInf(st.Duration, 1) {
			dur = "hold"
		}
		fmt.Fprintf(out, "  %2d  target %-6.3g %s\n", i, st.Target, dur)
	}
	return nil
}

func runEval(cmd *cobra.Command, args []string) error {
	if !(step > 0) {
		return errors.Errorf("--step must be positive, got %g", step)
	}
	def, err := patch.Load(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(evalTimes) == 0 {
		gate := render.Gate{Hold: hold, Step: step}
		for i, v := range render.Sample(def, gate) {
			fmt.Fprintf(out, "%g\t%.6f\n", float64(i)*step, v)
		}
		return nil
	}

	rt := envelope.NewRuntime(def)
	rt.Start(0, 1)
	rt.Stop(hold)
	for _, t := range evalTimes {
		fmt.Fprintf(out, "%g\t%.6f\n", t, rt.Value(t))
	}
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	input := args[0]
	def, err := patch.Load(input)
	if err != nil {
		return err
	}

	gate := render.Gate{Hold: hold, Length: length}
	f, err := os.Create(outputFile)
	if err != nil {
		return errors.Wrap(err, "failed to create output file")
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(outputFile)) {
	case ".wav":
		gate.Step = render.StepForRate(sampleRate)
		err = render.WriteWAV(f, render.Sample(def, gate), sampleRate)
	case ".mid", ".midi":
		opts := render.DefaultMIDIOptions
		opts.Controller = uint8(controller)
		opts.Tempo = tempo
		gate.Step = opts.Step
		err = render.WriteMIDI(f, render.Sample(def, gate), opts)
	default:
		return errors.Errorf("cannot render to %s, use .wav or .mid", outputFile)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Rendered %s -> %s\n", input, outputFile)
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]

	fmt.Printf("Converting %s -> %s\n", input, outputFile)
	if err := patch.ConvertFile(input, outputFile); err != nil {
		return err
	}
	fmt.Println("Conversion complete!")
	return nil
}

func runRandomize(cmd *cobra.Command, args []string) error {
	input := args[0]
	def, err := patch.Load(input)
	if err != nil {
		return err
	}
	if stageCount > 0 {
		def.SetStageCount(stageCount)
	}
	envelope.Randomize(def, rand.New(rand.NewSource(seed)))

	output := outputFile
	if output == "" {
		output = input
	}
	if err := patch.Save(output, def); err != nil {
		return err
	}
	fmt.Printf("Randomized %s -> %s\n", input, output)
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	opts := tui.Options{ViewLength: viewLength, Seed: seed}
	if len(args) == 1 {
		opts.Filename = args[0]
	}
	if sliders {
		opts.DisplayMode = editor.DisplaySliders
	}
	return tui.Run(opts)
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", serverPort)
	return api.StartServer(serverPort)
}
