package task

import (
	"errors"
	"fmt"
)

var (
	// ErrUnimplemented matches every *UnimplementedError.
	ErrUnimplemented = errors.New("capability not implemented")

	ErrShortSource = errors.New("data source ended before every device had a sample")
	ErrNoInputs    = errors.New("test sessions need system.search_path.run.inputs")
	ErrNotTestMode = errors.New("task is not in test mode")
)

// UnimplementedError reports a required override point the specialization
// did not supply.
type UnimplementedError struct {
	Capability string
	Contract   string
}

func (e *UnimplementedError) Error() string {
	return fmt.Sprintf("%s is not implemented: %s", e.Capability, e.Contract)
}

func (e *UnimplementedError) Is(target error) bool {
	return target == ErrUnimplemented
}
