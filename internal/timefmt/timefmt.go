package timefmt

import "time"

// Elapsed renders d at a precision suited to command run times: exact below a
// millisecond, whole milliseconds below a second, hundredths above.
func Elapsed(d time.Duration) string {
	switch {
	case d < 0:
		return "0s"
	case d < time.Millisecond:
		return d.String()
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}
