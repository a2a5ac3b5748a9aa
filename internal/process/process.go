package process

import (
	"os"
	"strings"

	"github.com/mitchellh/go-ps"
)

// ProcessInfo is a small struct representing a running process.
type ProcessInfo struct {
	PID  int
	Name string
}

// GetProcesses returns a list of running processes in a platform-agnostic format.
func GetProcesses() ([]ProcessInfo, error) {
	procs, err := ps.Processes()
	if err != nil {
		return nil, err
	}
	out := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		out = append(out, ProcessInfo{PID: p.Pid(), Name: p.Executable()})
	}
	return out, nil
}

// FindProcess looks up a process by PID and returns it with a boolean indicating whether it was found.
func FindProcess(pid int) (ProcessInfo, bool, error) {
	p, err := ps.FindProcess(pid)
	if err != nil {
		return ProcessInfo{}, false, err
	}
	if p == nil {
		return ProcessInfo{}, false, nil
	}
	return ProcessInfo{PID: p.Pid(), Name: p.Executable()}, true, nil
}

// OtherInstances returns processes named name, excluding the current process.
// Names are compared case-insensitively.
func OtherInstances(name string) ([]ProcessInfo, error) {
	procs, err := GetProcesses()
	if err != nil {
		return nil, err
	}
	return filterOthers(procs, name, os.Getpid()), nil
}

func filterOthers(procs []ProcessInfo, name string, self int) []ProcessInfo {
	var out []ProcessInfo
	for _, p := range procs {
		if p.PID == self {
			continue
		}
		if strings.EqualFold(p.Name, name) {
			out = append(out, p)
		}
	}
	return out
}
