//go:build cuda

package device

import (
	"fmt"

	"gorgonia.org/cu"
)

// hostBackend queries the CUDA driver for the number of devices
type hostBackend struct{}

func (hostBackend) Accelerators() (int, error) {
	n, err := cu.NumDevices()
	if err != nil {
		return 0, fmt.Errorf("accelerators: %w", err)
	}
	return n, nil
}
