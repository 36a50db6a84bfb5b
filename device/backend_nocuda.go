//go:build !cuda

package device

// hostBackend reports no accelerators; build with the cuda tag to
// detect CUDA devices
type hostBackend struct{}

func (hostBackend) Accelerators() (int, error) {
	return 0, nil
}
