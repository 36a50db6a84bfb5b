package policy

import (
	"fmt"

	"github.com/samuelfneumann/rlcode/batch"
	"github.com/samuelfneumann/rlcode/utils/matutils"
	"gorgonia.org/tensor"
)

// ApplyMask returns a copy of out in which every action preference
// whose mask entry is zero is set to -Inf. A nil mask returns out
// unchanged.
func ApplyMask(out, masks tensor.Tensor) (tensor.Tensor, error) {
	if masks == nil {
		return out, nil
	}

	values, err := batch.FromTensor(out)
	if err != nil {
		return nil, fmt.Errorf("applyMask: %w", err)
	}
	m, err := batch.FromTensor(masks)
	if err != nil {
		return nil, fmt.Errorf("applyMask: masks: %w", err)
	}
	if err := matutils.Mask(values, m); err != nil {
		return nil, fmt.Errorf("applyMask: %w", err)
	}
	return batch.Tensor(values), nil
}
