//go:build !linux && !darwin

package protection

func newBackend() (backend, error) {
	return nil, ErrUnsupportedPlatform
}
