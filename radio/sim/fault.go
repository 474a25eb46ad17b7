package sim

import (
	"fmt"
	"sync"

	"robotmesh/internal/check"
)

// Hook decides per call whether an operation fails. It sees the call as it
// will be journaled.
type Hook func(c Call) error

type opFault struct {
	onceErrs  []error
	alwaysErr error
	hook      Hook
}

// faults holds per-operation fault injection for a Radio.
type faults struct {
	mu  sync.Mutex
	ops map[Op]*opFault
}

func (f *faults) ensure(op Op) *opFault {
	if f.ops == nil {
		f.ops = make(map[Op]*opFault)
	}
	of, ok := f.ops[op]
	if !ok {
		of = &opFault{}
		f.ops[op] = of
	}
	return of
}

// FailOnce makes the next call of op return err.
func (r *Radio) FailOnce(op Op, err error) {
	check.Assert(err != nil, "sim.Radio.FailOnce: err must not be nil")
	r.faults.mu.Lock()
	defer r.faults.mu.Unlock()
	of := r.faults.ensure(op)
	of.onceErrs = append(of.onceErrs, err)
}

// FailAlways makes every call of op return err until cleared.
func (r *Radio) FailAlways(op Op, err error) {
	check.Assert(err != nil, "sim.Radio.FailAlways: err must not be nil")
	r.faults.mu.Lock()
	defer r.faults.mu.Unlock()
	r.faults.ensure(op).alwaysErr = err
}

// SetHook installs a call-aware fault for op, e.g. to fail one target.
func (r *Radio) SetHook(op Op, hook Hook) {
	check.Assert(hook != nil, "sim.Radio.SetHook: hook must not be nil")
	r.faults.mu.Lock()
	defer r.faults.mu.Unlock()
	r.faults.ensure(op).hook = hook
}

// Clear removes every fault for op.
func (r *Radio) Clear(op Op) {
	r.faults.mu.Lock()
	defer r.faults.mu.Unlock()
	delete(r.faults.ops, op)
}

// eval reports the injected failure for c, if any.
// Precedence: hook, then once, then always.
func (f *faults) eval(c Call) error {
	f.mu.Lock()
	of := f.ops[c.Op]
	if of == nil {
		f.mu.Unlock()
		return nil
	}
	hook := of.hook
	var onceErr error
	if len(of.onceErrs) > 0 {
		onceErr = of.onceErrs[0]
		of.onceErrs = of.onceErrs[1:]
	}
	alwaysErr := of.alwaysErr
	f.mu.Unlock()

	if hook != nil {
		if err := hook(c); err != nil {
			return fmt.Errorf("fault %s (hook): %w", c.Op, err)
		}
	}
	if onceErr != nil {
		return fmt.Errorf("fault %s (once): %w", c.Op, onceErr)
	}
	if alwaysErr != nil {
		return fmt.Errorf("fault %s (always): %w", c.Op, alwaysErr)
	}
	return nil
}
