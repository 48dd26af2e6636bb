package workspace

import (
	"fmt"
	"os"
	"strings"
)

// lockHolder identifies the scenario holding a workspace lock. It is written
// into the lock file so that a blocked reset can say who it is waiting on.
type lockHolder struct {
	PID      int
	Scenario string
}

func (h lockHolder) String() string {
	if h.PID == 0 {
		return "an unknown holder"
	}
	return fmt.Sprintf("pid %d (scenario %s)", h.PID, h.Scenario)
}

func (h lockHolder) record() []byte {
	return []byte(fmt.Sprintf("%d %s\n", h.PID, h.Scenario))
}

// readLockHolder parses the lock file at path. A file that is missing, empty
// or mid-write yields the zero holder.
func readLockHolder(path string) lockHolder {
	data, err := os.ReadFile(path)
	if err != nil {
		return lockHolder{}
	}
	var h lockHolder
	if _, err := fmt.Sscan(strings.TrimSpace(string(data)), &h.PID, &h.Scenario); err != nil {
		return lockHolder{}
	}
	return h
}
