package policy

import "fmt"

// Assert returns v as a Policy if it implements every Policy
// capability. Otherwise, it returns an *IncompleteError naming each
// missing capability.
//
// Concrete policies are checked at compile time with
//
//	var _ policy.Policy = &T{}
//
// Assert covers values whose type is only known at run time.
func Assert(v interface{}) (Policy, error) {
	if p, ok := v.(Policy); ok {
		return p, nil
	}

	var missing []string
	if _, ok := v.(Devicer); !ok {
		missing = append(missing, "Device")
	}
	if _, ok := v.(Forwarder); !ok {
		missing = append(missing, "Forward")
	}
	if _, ok := v.(PreLearner); !ok {
		missing = append(missing, "PreLearn")
	}
	if _, ok := v.(DoLearner); !ok {
		missing = append(missing, "DoLearn")
	}
	if _, ok := v.(PostLearner); !ok {
		missing = append(missing, "PostLearn")
	}

	return nil, &IncompleteError{Type: fmt.Sprintf("%T", v), Missing: missing}
}
