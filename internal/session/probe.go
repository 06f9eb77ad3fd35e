package session

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
)

// HostProbe is the capability abstraction so each port supplies its own
// findInstallDir()/handoff reader without C1's discovery loop knowing
// anything about the underlying OS. Tests exercise the discovery
// contract against a fake; production wiring uses ProcessProbe on every
// OS, which picks its fallback install paths by the running GOOS.
type HostProbe interface {
	FindInstallDir() (string, bool)
	ReadHandoffFile(dir string) ([]byte, bool)
}

var installDirFlag = regexp.MustCompile(`--install-directory=([^\s"]+)`)

// knownInstallDirs is the fallback list consulted when the process
// command line can't be inspected or doesn't carry the flag.
func knownInstallDirs() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			`C:\Riot Games\League of Legends`,
			`C:\Program Files\Riot Games\League of Legends`,
		}
	case "darwin":
		return []string{"/Applications/League of Legends.app/Contents/LoL"}
	default:
		return []string{"/opt/riotgames/league-of-legends"}
	}
}

const handoffFileName = "lockfile"

// ProcessProbe is a best-effort, build-tag-free probe: it reads
// /proc/*/cmdline on Linux to recover the --install-directory flag and
// otherwise falls back to the known-paths list. On platforms without a
// /proc filesystem it always falls through to the known paths, which
// keeps it usable (if less precise) everywhere without OS-specific
// build constraints.
type ProcessProbe struct{}

func NewProcessProbe() *ProcessProbe { return &ProcessProbe{} }

func (p *ProcessProbe) FindInstallDir() (string, bool) {
	if dir, ok := p.fromProcCmdline(); ok {
		return dir, true
	}
	for _, dir := range knownInstallDirs() {
		if _, err := os.Stat(dir); err == nil {
			return dir, true
		}
	}
	return "", false
}

func (p *ProcessProbe) fromProcCmdline() (string, bool) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join("/proc", e.Name(), "cmdline"))
		if err != nil {
			continue
		}
		cmdline := bytes.ReplaceAll(raw, []byte{0}, []byte{' '})
		if m := installDirFlag.FindSubmatch(cmdline); m != nil {
			return string(m[1]), true
		}
	}
	return "", false
}

func (p *ProcessProbe) ReadHandoffFile(dir string) ([]byte, bool) {
	data, err := os.ReadFile(filepath.Join(dir, handoffFileName))
	if err != nil {
		return nil, false
	}
	return data, true
}

// FakeProbe is a deterministic test double: InstallDir/Handoff are
// swapped by the test to simulate connect/disconnect edges.
type FakeProbe struct {
	InstallDir string
	HasDir     bool
	Handoff    []byte
	HasHandoff bool
}

func (p *FakeProbe) FindInstallDir() (string, bool) { return p.InstallDir, p.HasDir }

func (p *FakeProbe) ReadHandoffFile(dir string) ([]byte, bool) {
	if !p.HasHandoff {
		return nil, false
	}
	return p.Handoff, true
}
