// Command rlvm plays a RealLive game directory in a terminal, the
// console-frontend counterpart to the teacher's bubbletea story player
// (main.go), generalized from picking an IF-Archive .z-file off disk to
// loading a RealLive SEEN.TXT plus its Gameexe.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ssakurai/rlvm/archive"
	"github.com/ssakurai/rlvm/assets"
	"github.com/ssakurai/rlvm/audio"
	"github.com/ssakurai/rlvm/config"
	"github.com/ssakurai/rlvm/console"
	"github.com/ssakurai/rlvm/gameexe"
	"github.com/ssakurai/rlvm/machine"
	"github.com/ssakurai/rlvm/savestate"
	"github.com/ssakurai/rlvm/scriptor"
)

var (
	flagScenario       int
	flagEntry          int
	flagSlot           int
	flagResume         bool
	flagSettingsPath   string
	flagUndefinedFatal bool
)

var rootCmd = &cobra.Command{
	Use:   "rlvm <game-directory>",
	Short: "Play a RealLive visual novel in a terminal",
	Long: `rlvm loads a RealLive game directory (its Gameexe.ini and SEEN.TXT
archive) and runs its scenario bytecode through an interactive bubbletea
console: text advances on a keypress, Select prompts render as a list,
and ctrl+s saves the current call stack and memory to a local slot.`,
	Args: cobra.ExactArgs(1),
	RunE: runRLVM,
}

func init() {
	rootCmd.Flags().IntVar(&flagScenario, "scenario", -1, "scenario number to start at (default: archive's first scenario)")
	rootCmd.Flags().IntVar(&flagEntry, "entry", 0, "entrypoint index within the starting scenario")
	rootCmd.Flags().IntVar(&flagSlot, "slot", 0, "save slot ctrl+s writes to, and --resume reads from")
	rootCmd.Flags().BoolVar(&flagResume, "resume", false, "restore --slot instead of starting fresh")
	rootCmd.Flags().StringVar(&flagSettingsPath, "settings", "", "path to settings.yaml (default: config.DefaultPath())")
	rootCmd.Flags().BoolVar(&flagUndefinedFatal, "undefined-fatal", false, "halt instead of logging and skipping an undefined opcode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// fatalReporter is the machine.FatalErrorReporter the Runner installs:
// it just remembers the last fatal error so main can print it to stderr
// once the bubbletea program has torn down the terminal, the way the
// teacher's main.go defers its own "interpreter panicked" print until
// after tea.Program.Run returns.
type fatalReporter struct {
	message string
	cause   error
}

func (r *fatalReporter) ReportFatalError(message string, detail error) {
	r.message, r.cause = message, detail
}

func runRLVM(cmd *cobra.Command, args []string) error {
	dir := args[0]

	settingsPath := flagSettingsPath
	if settingsPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		settingsPath = p
	}
	cfg, err := config.Load(settingsPath)
	if err != nil {
		return err
	}

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

	assetIndex, err := assets.Build(dir, exe)
	if err != nil {
		return err
	}
	_ = assetIndex // consulted by graphics/sound opcodes, out of this CLI's own scope
	soundTable := audio.Build(exe)
	_ = soundTable

	ar, err := archive.Open(filepath.Join(dir, "SEEN.TXT"), regname)
	if err != nil {
		return err
	}
	defer ar.Close()

	script, err := scriptor.New(ar)
	if err != nil {
		return err
	}
	if cfg.EncodingOverride != "" {
		if enc, err := strconv.Atoi(cfg.EncodingOverride); err == nil {
			script.SetDefaultScenarioConfig(scriptor.ScenarioConfig{TextEncoding: enc})
		}
	}

	registry := machine.NewOpcodeRegistry()
	reporter := &fatalReporter{}
	runner := console.NewRunner(script, registry, reporter)
	vm := runner.Engine()
	vm.UndefinedIsFatal = flagUndefinedFatal

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if flagResume {
		if err := loadSlot(vm, store, flagSlot); err != nil {
			return err
		}
	} else {
		scenarioNumber := flagScenario
		if scenarioNumber < 0 {
			first, err := ar.GetFirstScenario()
			if err != nil {
				return err
			}
			scenarioNumber = first.SceneNumber()
		}
		if err := vm.Start(scenarioNumber, flagEntry); err != nil {
			return err
		}
	}

	model := console.NewModel(runner)
	model.OnSave = func(r *console.Runner) (string, error) {
		return saveSlot(r.Engine(), script, store, flagSlot)
	}

	if _, err := tea.NewProgram(model).Run(); err != nil {
		return err
	}
	if reporter.cause != nil {
		return fmt.Errorf("%s: %w", reporter.message, reporter.cause)
	}
	return nil
}

func openStore(cfg config.Settings) (*savestate.Store, error) {
	if err := os.MkdirAll(cfg.SaveDirectory, 0o755); err != nil {
		return nil, err
	}
	return savestate.Open(filepath.Join(cfg.SaveDirectory, "saves.sqlite"))
}

// saveSlot snapshots vm's full runtime state and writes it to slotNumber.
func saveSlot(vm *machine.Machine, script *scriptor.Scriptor, store *savestate.Store, slotNumber int) (string, error) {
	frames := vm.Frames()
	out := make([]savestate.Frame, len(frames))
	for i, f := range frames {
		loc, err := script.LocationNumber(f.Cursor)
		if err != nil {
			return "", err
		}
		out[i] = savestate.Frame{
			Kind:           f.Kind,
			ScenarioNumber: f.Cursor.ScenarioNumber,
			LocationNumber: loc,
			Locals:         f.Locals,
			GosubArgs:      f.GosubArgs,
		}
	}

	title := "empty call stack"
	if len(out) > 0 {
		title = fmt.Sprintf("scenario %d", out[len(out)-1].ScenarioNumber)
	}

	snap := savestate.Snapshot{Memory: vm.Memory, Frames: out}
	slot, err := store.Save(slotNumber, title, snap)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("saved to slot %d at %s", slot.Number, slot.CreatedAt.Format("15:04:05")), nil
}

// loadSlot restores vm's memory and call stack from slotNumber, in place
// of calling Start.
func loadSlot(vm *machine.Machine, store *savestate.Store, slotNumber int) error {
	snap, _, err := store.Load(slotNumber)
	if err != nil {
		return err
	}
	vm.RestoreMemory(snap.Memory)
	vm.ResetCallStack()
	for _, f := range snap.Frames {
		if err := vm.PushRestoredFrame(f.ScenarioNumber, f.LocationNumber, f.Kind, f.Locals, f.GosubArgs); err != nil {
			return err
		}
	}
	return nil
}
