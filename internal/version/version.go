package version

import (
	"runtime/debug"
	"strings"
)

const devel = "(devel)"

// Info describes the running binary.
type Info struct {
	Version   string
	GoVersion string
	Revision  string
}

// Read collects Info from the embedded build information.
func Read() Info {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Info{Version: devel, GoVersion: "unknown", Revision: "unknown"}
	}
	out := Info{
		Version:   normalize(info.Main.Version),
		GoVersion: info.GoVersion,
		Revision:  "unknown",
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			out.Revision = s.Value
		}
	}
	return out
}

// String is the module version, or "(devel)" for local and pseudo-versions.
func String() string {
	return Read().Version
}

func normalize(v string) string {
	if v == "" || v == devel || strings.Contains(v, "+dirty") || isPseudoVersion(v) {
		return devel
	}
	return v
}

// isPseudoVersion matches vX.Y.Z-yyyymmddhhmmss-abcdefabcdef and its variants.
func isPseudoVersion(v string) bool {
	v, _, _ = strings.Cut(v, "+")
	parts := strings.Split(v, "-")
	if len(parts) < 3 {
		return false
	}
	ts, hash := parts[len(parts)-2], parts[len(parts)-1]
	// Prerelease pseudo-versions carry the timestamp after a dot, e.g. "0.20240101000000".
	if i := strings.LastIndexByte(ts, '.'); i >= 0 {
		ts = ts[i+1:]
	}
	return len(ts) == 14 && isAll(ts, "0123456789") && len(hash) >= 12 && isAll(hash, "0123456789abcdefABCDEF")
}

func isAll(s, set string) bool {
	for _, r := range s {
		if !strings.ContainsRune(set, r) {
			return false
		}
	}
	return s != ""
}
