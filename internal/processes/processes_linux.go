//go:build linux

package processes

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func listNative(uid int) ([]Process, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrUnsupported
		}
		return nil, err
	}

	procs := make([]Process, 0, len(entries))
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		meta, err := readStatus(entry.Name())
		if err != nil || meta.uid != uid {
			// Exited between ReadDir and now, or someone else's.
			continue
		}

		// cwd is unreadable for zombies; keep them so the tree stays connected.
		cwd, _ := os.Readlink(filepath.Join("/proc", entry.Name(), "cwd"))
		cwd = strings.TrimSuffix(cwd, " (deleted)")

		procs = append(procs, Process{
			PID:     pid,
			PPID:    meta.ppid,
			Command: sanitizeCommand(meta.name, pid),
			CWD:     cwd,
		})
	}

	return procs, nil
}

type procStatus struct {
	name string
	uid  int
	ppid int
}

func readStatus(pid string) (procStatus, error) {
	file, err := os.Open(filepath.Join("/proc", pid, "status"))
	if err != nil {
		return procStatus{}, err
	}
	defer file.Close()

	var (
		st     procStatus
		hasUID bool
	)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		fields := strings.Fields(value)
		if len(fields) == 0 {
			continue
		}
		switch key {
		case "Name":
			st.name = fields[0]
		case "Uid":
			if uid, err := strconv.Atoi(fields[0]); err == nil {
				st.uid = uid
				hasUID = true
			}
		case "PPid":
			if ppid, err := strconv.Atoi(fields[0]); err == nil {
				st.ppid = ppid
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return procStatus{}, err
	}
	if !hasUID {
		return procStatus{}, fmt.Errorf("/proc/%s/status: %w", pid, errors.New("missing Uid"))
	}
	return st, nil
}
