// Package processes inspects the process table so that a command's whole tree
// can be torn down after a timeout.
package processes

import (
	"errors"
	"fmt"
	"os"
)

var (
	ErrUnsupported         = errors.New("process listing unsupported")
	minimumCommandFallback = "process"
)

type Process struct {
	PID     int    `json:"pid"`
	Command string `json:"command"`
	CWD     string `json:"cwd"`
	PPID    int    `json:"ppid"`
}

// List returns the processes owned by the current user.
func List() ([]Process, error) {
	return listNative(os.Getuid())
}

// Descendants returns every transitive child of pid, parents before children.
func Descendants(pid int) ([]int, error) {
	procs, err := List()
	if err != nil {
		return nil, err
	}
	return descendantsOf(pid, procs), nil
}

func descendantsOf(pid int, procs []Process) []int {
	children := make(map[int][]int, len(procs))
	for _, p := range procs {
		if p.PID == p.PPID {
			continue
		}
		children[p.PPID] = append(children[p.PPID], p.PID)
	}

	var out []int
	seen := map[int]bool{pid: true}
	queue := []int{pid}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, child := range children[next] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

func sanitizeCommand(cmd string, pid int) string {
	if cmd != "" {
		return cmd
	}
	return fmt.Sprintf("%s-%d", minimumCommandFallback, pid)
}
