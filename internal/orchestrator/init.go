package orchestrator

import (
	"context"

	"attrfilter/domain"
	"attrfilter/internal/effect"
)

// initRun tracks one init workflow: the attribute load, the selection load and
// the first page. With hidden elements the last two wait for the attribute.
type initRun struct {
	correlation   domain.Correlation
	ctx           context.Context
	stop          context.CancelFunc
	waitAttribute bool
	ops           map[uint64]effect.Kind
	done          map[effect.Kind]bool
}

func (r *initRun) owns(op effect.Op) bool {
	_, ok := r.ops[op.ID]
	return ok
}

// own registers op as a step of run; run may be nil
func (r *initRun) own(op effect.Op) {
	if r != nil {
		r.ops[op.ID] = op.Kind
	}
}

// parent is the context steps of run start under
func (o *Orchestrator) parent(run *initRun) context.Context {
	if run != nil {
		return run.ctx
	}
	return o.ctx
}

// Init loads the attribute, the elements of the seeded selection and the first
// page of elements. A running init is canceled first.
func (o *Orchestrator) Init(correlation domain.Correlation) error {
	if err := o.lock(); err != nil {
		return err
	}
	defer o.mu.Unlock()

	correlation = correlationOrNew(correlation)
	o.abortInit(domain.StatusCanceled, nil)

	ctx, stop := context.WithCancel(o.ctx)
	run := &initRun{
		correlation:   correlation,
		ctx:           ctx,
		stop:          stop,
		waitAttribute: len(o.store.Options().HiddenElements) > 0,
		ops:           make(map[uint64]effect.Kind),
		done:          make(map[effect.Kind]bool),
	}
	o.init = run

	o.logger.Debug("init started", "correlation", correlation, "waitAttribute", run.waitAttribute)
	o.store.SetInitState(domain.StatusLoading, nil)
	o.emit(domain.InitStartedEvent{Correlation: correlation})

	o.startAttributeLoad(correlation, run)
	if !run.waitAttribute {
		o.startSelectionLoad(correlation, run)
		o.startInitialPage(correlation, run)
	}
	return nil
}

// stepDone records a successful init step and finishes the init when all steps are done
func (o *Orchestrator) stepDone(op effect.Op) {
	run := o.init
	if run == nil || !run.owns(op) {
		return
	}
	run.done[op.Kind] = true

	if op.Kind == kindAttribute && run.waitAttribute {
		o.startSelectionLoad(run.correlation, run)
		o.startInitialPage(run.correlation, run)
		return
	}

	if run.done[kindAttribute] && run.done[kindSelection] && run.done[kindInitialPage] {
		o.init = nil
		run.stop()
		o.store.SetInitState(domain.StatusSuccess, nil)
		o.emit(domain.InitSucceededEvent{Correlation: run.correlation})
	}
}

// stepFailed fails the init when op is one of its steps
func (o *Orchestrator) stepFailed(op effect.Op, err error) {
	if o.init != nil && o.init.owns(op) {
		o.abortInit(domain.StatusError, err)
	}
}

// abortInit cancels the remaining steps of the running init and emits its
// single terminal event. Must hold o.mu.
func (o *Orchestrator) abortInit(status domain.Status, err error) {
	run := o.init
	if run == nil {
		return
	}
	o.init = nil
	run.stop()
	o.cancel(run.owns)

	o.store.SetInitState(status, err)
	if status == domain.StatusError {
		o.logger.Warn("init failed", "correlation", run.correlation, "error", err)
		o.emit(domain.InitFailedEvent{Correlation: run.correlation, Err: err})
		return
	}
	o.logger.Debug("init canceled", "correlation", run.correlation)
	o.emit(domain.InitCanceledEvent{Correlation: run.correlation})
}
