package regression

import (
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrVariableExists  = errors.New("variable already exists, reuse it")
	ErrVariableMissing = errors.New("variable does not exist, cannot reuse it")
)

// Variables haelt Parameter, die sich Replikas teilen. Die erste Replika
// legt sie an, alle weiteren muessen sie wiederverwenden.
type Variables struct {
	mu   sync.Mutex
	vars map[string]*mat.VecDense
}

func NewVariables() *Variables {
	return &Variables{vars: make(map[string]*mat.VecDense)}
}

func (v *Variables) Get(name string, reuse bool, init func() *mat.VecDense) (*mat.VecDense, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	existing, ok := v.vars[name]
	switch {
	case ok && !reuse:
		return nil, fmt.Errorf("%w: %s", ErrVariableExists, name)
	case !ok && reuse:
		return nil, fmt.Errorf("%w: %s", ErrVariableMissing, name)
	case ok:
		return existing, nil
	}

	created := init()
	v.vars[name] = created
	return created, nil
}

func (v *Variables) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.vars)
}
