package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	pathpkg "path/filepath"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"ppsearch/internal/engine"
	"ppsearch/internal/engine/native"
	"ppsearch/internal/engine/r2"
	"ppsearch/internal/logging"
	"ppsearch/internal/operand"
	applog "ppsearch/internal/ppsearch/log"
	"ppsearch/internal/scan"
	"ppsearch/internal/ui/colorize"
)

// Report is the JSON output structure for regression testing
type Report struct {
	Binary  string      `json:"binary" jsonschema:"title=Binary,description=Path to the analyzed binary"`
	Value   string      `json:"value" jsonschema:"title=Value,description=Hex value that was searched"`
	Shift   string      `json:"shift_operand" jsonschema:"title=Shift Operand,description=Immediate added to x27 before lsl 12"`
	Offset  string      `json:"offset_operand" jsonschema:"title=Offset Operand,description=Displacement of the load from the pool page"`
	Engine  string      `json:"engine" jsonschema:"title=Engine,description=Disassembly engine that produced the listing"`
	Matches []MatchPair `json:"matches" jsonschema:"title=Matches,description=Adjacent add/ldr pairs found"`
}

// MatchPair is one add/ldr pair in JSON output
type MatchPair struct {
	Add string `json:"add"`
	Ldr string `json:"ldr"`
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")

	rootCmd.Flags().BoolP("help", "h", false, "Help")
	rootCmd.Flags().StringP("engine", "e", "r2", "Disassembly engine: r2 or native")
	rootCmd.Flags().IntP("window", "W", 3, "Instructions to disassemble at each candidate address")
	rootCmd.Flags().BoolP("json", "j", false, "Output results as JSON for regression testing")
	rootCmd.Flags().Bool("no-color", false, "Disable colorized output")
	rootCmd.Flags().String("cpuprofile", "", "Write CPU profile to file")
	rootCmd.Flags().String("memprofile", "", "Write memory profile to file")
}

var rootCmd = &cobra.Command{
	Use:   "ppsearch <binary> <hex_value>",
	Short: "Find Dart object-pool usages in an AArch64 Flutter library",
	Long: `ppsearch locates uses of a Dart object-pool slot in a Flutter libapp.so
built for AArch64. Pool values are addressed through a fixed idiom, an add on
the pool register followed by a load:

    add x16, x27, 8, lsl 12
    ldr x16, [x16, 0x8f0]

Given a hex value, ppsearch derives the two immediates, asks the disassembly
engine for every candidate location, and prints each matching pair.`,
	Example: `
# Find every use of pool value 0x88f0
ppsearch libapp.so 0x88f0

# Use the built-in disassembler instead of radare2
ppsearch -e native libapp.so 0x88f0
  `,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()

		debug, _ := cmd.Flags().GetBool("debug")
		applog.Setup(debug)

		// Setup CPU profiling if requested
		cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
		if cpuprofile != "" {
			f, err := os.Create(cpuprofile)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %v", err)
			}
			defer f.Close()
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %v", err)
			}
			defer pprof.StopCPUProfile()
		}

		// Setup memory profiling if requested
		memprofile, _ := cmd.Flags().GetString("memprofile")
		if memprofile != "" {
			defer func() {
				f, err := os.Create(memprofile)
				if err != nil {
					fmt.Fprintf(os.Stderr, "could not create memory profile: %v\n", err)
					return
				}
				defer f.Close()
				if err := pprof.WriteHeapProfile(f); err != nil {
					fmt.Fprintf(os.Stderr, "could not write memory profile: %v\n", err)
				}
			}()
		}

		binary, err := pathpkg.Abs(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve path: %v", err)
		}
		if _, err := os.Stat(binary); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", args[0])
			}
			return fmt.Errorf("cannot access file: %v", err)
		}
		hexValue := args[1]

		ops, err := operand.Split(hexValue)
		if err != nil {
			return err
		}

		engineName, _ := cmd.Flags().GetString("engine")
		window, _ := cmd.Flags().GetInt("window")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		if window < 2 {
			return fmt.Errorf("--window must be at least 2 to cover the add/ldr pair, got %d", window)
		}

		if !jsonOutput {
			fmt.Printf("The shift operand is: %s\n", ops.Shift)
			fmt.Printf("The offset operand is: %s\n", ops.Offset)
		}

		lg := logging.NewLogger()
		defer lg.Close()
		lg.Debug("opening disassembly engine", "engine", engineName, "binary", binary, "window", window)

		eng, err := openEngine(engineName, binary, window)
		if err != nil {
			return err
		}
		defer eng.Close()

		if !jsonOutput {
			fmt.Print("Looking for matches..." + "\r")
		}

		lines, err := eng.Find(ops)
		if err != nil {
			return err
		}
		lg.Debug("engine returned listing", "lines", len(lines))

		p1, p2 := scan.Patterns(ops)
		matches := scan.AdjacentPairs(lines, p1, p2)

		if jsonOutput {
			return writeReport(os.Stdout, binary, hexValue, engineName, ops, matches)
		}

		noColor, _ := cmd.Flags().GetBool("no-color")
		useColor := !noColor && colorize.Enabled() && term.IsTerminal(os.Stdout.Fd())
		printMatches(os.Stdout, matches, useColor)
		fmt.Printf("Script execution time: %.2f seconds\n", time.Since(start).Seconds())
		return nil
	},
}

func openEngine(name, binary string, window int) (engine.Engine, error) {
	switch name {
	case "r2":
		return r2.Open(binary, window)
	case "native":
		return native.Open(binary, window)
	default:
		return nil, fmt.Errorf("unknown engine %q (want r2 or native)", name)
	}
}

// printMatches writes the result block: a count header followed by each
// pair on two lines with a blank separator, or a no-match notice.
func printMatches(w io.Writer, matches []scan.Match, useColor bool) {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches found.")
		return
	}

	fmt.Fprintf(w, "Found %d direct matches:\n", len(matches))
	for _, m := range matches {
		first, second := m.First, m.Second
		if useColor {
			first = colorize.Assembly(first)
			second = colorize.Assembly(second)
		}
		fmt.Fprintf(w, "%s\n%s\n\n", first, second)
	}
}

func writeReport(w io.Writer, binary, value, engineName string, ops operand.Operands, matches []scan.Match) error {
	report := Report{
		Binary:  binary,
		Value:   value,
		Shift:   ops.Shift,
		Offset:  ops.Offset,
		Engine:  engineName,
		Matches: make([]MatchPair, 0, len(matches)),
	}
	for _, m := range matches {
		report.Matches = append(report.Matches, MatchPair{
			Add: strings.TrimSpace(m.First),
			Ldr: strings.TrimSpace(m.Second),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func Execute() {
	// fang renders help and errors as markdown; use plain cobra when
	// output is being piped
	if !term.IsTerminal(os.Stdout.Fd()) {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
