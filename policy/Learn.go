package policy

import (
	"github.com/samuelfneumann/rlcode/batch"
	"github.com/samuelfneumann/rlcode/experience"
)

// Learn performs one learning step. It calls PreLearn, then DoLearn on
// the batch PreLearn returned, then PostLearn on the batch DoLearn
// returned, each exactly once and on the calling goroutine. The Info
// of the three phases is merged into a single Info.
//
// The first phase to fail aborts the step; its error is returned
// wrapped in a *PhaseError and later phases are not called. Keys
// reported by more than one phase are an error, see Merge. A phase
// returning a nil batch fails with ErrNilBatch.
func Learn(p Policy, b *batch.Batch, src experience.Source) (Info, error) {
	if b == nil {
		return nil, &PhaseError{PreLearnPhase, ErrNilBatch}
	}

	b, preInfo, err := p.PreLearn(b, src)
	if err != nil {
		return nil, &PhaseError{PreLearnPhase, err}
	}
	if b == nil {
		return nil, &PhaseError{PreLearnPhase, ErrNilBatch}
	}

	b, doInfo, err := p.DoLearn(b, src)
	if err != nil {
		return nil, &PhaseError{DoLearnPhase, err}
	}
	if b == nil {
		return nil, &PhaseError{DoLearnPhase, ErrNilBatch}
	}

	postInfo, err := p.PostLearn(b, src)
	if err != nil {
		return nil, &PhaseError{PostLearnPhase, err}
	}

	return Merge(preInfo, doInfo, postInfo)
}

// Merge returns the union of the Info reported by the three learning
// phases. A key reported by more than one phase returns a
// *CollisionError naming the later phase. Nil Info is treated as
// empty.
func Merge(pre, do, post Info) (Info, error) {
	info := make(Info, len(pre)+len(do)+len(post))

	for phase, phaseInfo := range []Info{pre, do, post} {
		for key, value := range phaseInfo {
			if _, ok := info[key]; ok {
				return nil, &CollisionError{Key: key, Phase: Phase(phase)}
			}
			info[key] = value
		}
	}
	return info, nil
}
