// Command rlkp dumps a RealLive archive's bytecode as readable
// disassembly, the kepago-style counterpart to rlvm: where rlvm executes
// a game, rlkp reads the same archive and scenario packages and prints
// what they parsed instead of running it.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ssakurai/rlvm/archive"
	"github.com/ssakurai/rlvm/gameexe"
	"github.com/ssakurai/rlvm/scenario"
)

var (
	flagOutput   string
	flagScenario int
)

var rootCmd = &cobra.Command{
	Use:   "rlkp <game-directory>",
	Short: "Disassemble a RealLive archive's scenarios",
	Long: `rlkp opens <game-directory>'s SEEN.TXT and Gameexe.ini the same way
rlvm does, then prints each scenario's parsed elements via their own
DebugString rendering instead of executing them.

With no --scenario flag it prints a one-line summary of every scenario
in the archive (index, encoding, compressed size). With --scenario N it
disassembles that one scenario's full element stream.`,
	Args: cobra.ExactArgs(1),
	RunE: runRLKP,
}

func init() {
	rootCmd.Flags().StringVar(&flagOutput, "output", "stdout", `output destination: "stdout" or a directory path`)
	rootCmd.Flags().IntVar(&flagScenario, "scenario", -1, "disassemble only this scenario number (default: summarize all)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runRLKP(cmd *cobra.Command, args []string) error {
	dir := args[0]

	exeFile, err := os.Open(filepath.Join(dir, "Gameexe.ini"))
	if err != nil {
		return err
	}
	exe, err := gameexe.Parse(exeFile)
	exeFile.Close()
	if err != nil {
		return err
	}

	regname := ""
	if exe.Exists("REGNAME") {
		if s, err := exe.GetView("REGNAME").AsStr(); err == nil {
			regname = s
		}
	}

	ar, err := archive.Open(filepath.Join(dir, "SEEN.TXT"), regname)
	if err != nil {
		return err
	}
	defer ar.Close()

	out, closeOut, err := openOutput(flagOutput)
	if err != nil {
		return err
	}
	defer closeOut()

	w := bufio.NewWriter(out)
	defer w.Flush()

	if flagScenario >= 0 {
		sc, err := ar.GetScenario(flagScenario)
		if err != nil {
			return err
		}
		return disassemble(w, sc)
	}
	return summarize(w, ar)
}

// openOutput resolves "stdout" to os.Stdout (no-op close), or creates
// <dir>/scenarios.txt — rlkp's one output file, since a full archive
// dump is a single readable document rather than one file per scenario.
func openOutput(dest string) (io.Writer, func(), error) {
	if dest == "" || dest == "stdout" {
		return os.Stdout, func() {}, nil
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(filepath.Join(dest, "scenarios.txt"))
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// pagerWidth reports the real terminal width when stdout is a terminal,
// falling back to 80 columns for a file or pipe destination.
func pagerWidth() int {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return 80
}

func summarize(w io.Writer, ar *archive.Archive) error {
	width := pagerWidth()
	rule := ""
	for i := 0; i < width && i < 72; i++ {
		rule += "-"
	}

	indices := ar.Indices()
	fmt.Fprintf(w, "%d scenarios\n%s\n", len(indices), rule)
	for _, idx := range indices {
		sc, err := ar.GetScenario(idx)
		if err != nil {
			return err
		}
		size, _ := ar.CompressedSize(idx)
		fmt.Fprintf(w, "seen%04d  encoding=%-3d  elements=%-6s  compressed=%s\n",
			idx, sc.Encoding(), humanize.Comma(int64(sc.Script.Len())), humanize.Bytes(uint64(size)))
	}
	return nil
}

func disassemble(w io.Writer, sc *scenario.Scenario) error {
	fmt.Fprintf(w, "seen%04d  encoding=%d  %s elements\n\n", sc.ScenarioNumber, sc.Encoding(), humanize.Comma(int64(sc.Script.Len())))

	loc, ok := sc.Script.FirstLocation()
	for ok {
		el, found := sc.Script.At(loc)
		if !found {
			break
		}
		fmt.Fprintf(w, "%8d: %s\n", loc, el.DebugString())
		loc, ok = sc.Script.Next(loc)
	}
	return nil
}
