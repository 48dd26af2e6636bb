//go:build !linux

package processes

func listNative(_ int) ([]Process, error) {
	return nil, ErrUnsupported
}
