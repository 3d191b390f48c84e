// Package async implements SPIRAL's cooperative single-threaded task
// scheduler and bounded channel store (spec.md §4.7, §5): spawn/await,
// par/race, channel send/recv with FIFO and close semantics. It
// implements evaluator.AsyncHost so pkg/evaluator can dispatch the
// concurrent expression and block forms without importing this package.
package async

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/spiral-lang/spiral/pkg/types"
)

// Scheduler runs every task on one logical goroutine, using a weight-1
// semaphore purely as a rendezvous point between that goroutine and task
// goroutines that otherwise only ever run one at a time (serialized by
// the token), matching the "no evaluator code is re-entered from a
// different task between suspension points" invariant of §5.
type Scheduler struct {
	token *semaphore.Weighted

	futures  map[string]*types.Future
	channels map[string]*boundedChannel
}

// New returns a scheduler ready to run tasks for one program run. The
// calling goroutine is the root task and holds the scheduler token on
// return; every release below pairs with an acquire by the task that is
// about to run.
func New() *Scheduler {
	s := &Scheduler{
		token:    semaphore.NewWeighted(1),
		futures:  make(map[string]*types.Future),
		channels: make(map[string]*boundedChannel),
	}
	s.acquire()
	return s
}

func (s *Scheduler) acquire() { _ = s.token.Acquire(context.Background(), 1) }
func (s *Scheduler) release() { s.token.Release(1) }

// Spawn registers and starts a task running body on its own goroutine,
// serialized against every other task by the scheduler token, and
// returns a pending Future Value immediately (spec.md §4.7).
func (s *Scheduler) Spawn(body func() (types.Value, error)) types.Value {
	taskID := uuid.NewString()
	future := types.NewFuture(taskID)
	s.futures[taskID] = future

	s.release() // the spawning task keeps running; the new goroutine waits for the token
	go func() {
		s.acquire()
		v, err := body()
		if err != nil {
			if ee, ok := err.(*types.EvalError); ok {
				future.Fail(ee)
			} else {
				future.Fail(types.NewDomainError(err.Error()))
			}
		} else {
			future.Resolve(v)
		}
		s.release()
	}()
	s.acquire()

	return types.NewFutureValue(future)
}

// Await blocks the calling task until future resolves (spec.md §4.7).
// Awaiting releases the scheduler token so other tasks can make
// progress, then reacquires it before returning.
func (s *Scheduler) Await(futureVal types.Value) (types.Value, error) {
	if futureVal.Type() != types.KindFuture {
		return types.Value{}, types.NewTypeError("await requires a future")
	}
	f := futureVal.AsFuture()
	s.release()
	for f.Status() == types.FuturePending {
		// cooperative spin: the only suspension primitive available
		// without a richer wakeup channel per future. Token churn keeps
		// other goroutines progressing toward resolving f.
		s.acquire()
		s.release()
	}
	s.acquire()
	switch f.Status() {
	case types.FutureReady:
		return f.Value(), nil
	default:
		return types.Value{}, f.Err()
	}
}

// Par spawns every branch, waits for all, and returns their results in
// input order; on any branch error it returns the first error once every
// branch has finished (spec.md §4.7, SPEC_FULL Open-Question resolution:
// par always runs to completion before surfacing an error).
func (s *Scheduler) Par(branches []func() (types.Value, error)) (types.Value, error) {
	futures := make([]types.Value, len(branches))
	for i, b := range branches {
		b := b
		futures[i] = s.Spawn(b)
	}
	results := make([]types.Value, len(branches))
	var firstErr error
	for i, fv := range futures {
		v, err := s.Await(fv)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		results[i] = v
	}
	if firstErr != nil {
		return types.Value{}, firstErr
	}
	return types.NewList(results), nil
}

// Race runs every task, returns the first to complete, and marks the
// remaining futures as cancelled (losers are not forcibly killed — the
// scheduler is cooperative, so "cancellation" means their futures fail
// with a DomainError and their eventual result is discarded).
func (s *Scheduler) Race(tasks []func() (types.Value, error)) (types.Value, error) {
	futures := make([]types.Value, len(tasks))
	for i, t := range tasks {
		futures[i] = s.Spawn(t)
	}
	for {
		for _, fv := range futures {
			f := fv.AsFuture()
			if f.Status() != types.FuturePending {
				for _, other := range futures {
					// Fail is a no-op on already-resolved futures, winner included.
					other.AsFuture().Fail(types.NewDomainError("cancelled: lost race"))
				}
				if f.Status() == types.FutureReady {
					return f.Value(), nil
				}
				return types.Value{}, f.Err()
			}
		}
		s.release()
		s.acquire()
	}
}

// Select resolves the first ready future among futures, or reports
// timeout via SelectResult index -1 once timeoutMs elapses first
// (spec.md §4.7). Lacking a wall clock suspension primitive, timeout is
// modeled as a poll budget: each poll that finds nothing ready consumes
// one unit, so the behavior is deterministic under this package's own
// spin-based scheduling rather than wall-clock time.
func (s *Scheduler) Select(futures []types.Value, timeoutMs int, hasTimeout bool) (types.Value, error) {
	budget := timeoutMs
	for {
		for _, fv := range futures {
			f := fv.AsFuture()
			switch f.Status() {
			case types.FutureReady:
				idx := indexOfFuture(futures, fv)
				return types.NewSelectResult(idx, f.Value()), nil
			case types.FutureError:
				idx := indexOfFuture(futures, fv)
				return types.NewSelectResult(idx, f.Err().ToValue()), nil
			}
		}
		if hasTimeout {
			budget--
			if budget <= 0 {
				return types.NewSelectResult(-1, types.Value{}), nil
			}
		}
		s.release()
		s.acquire()
	}
}

func indexOfFuture(futures []types.Value, target types.Value) int {
	for i, f := range futures {
		if f.AsFuture() == target.AsFuture() {
			return i
		}
	}
	return -1
}

// NewChannel allocates a bounded FIFO channel of the requested kind
// (mpsc|spsc|mpmc|broadcast) and returns a Channel Value (spec.md §4.7).
func (s *Scheduler) NewChannel(kind string) (types.Value, error) {
	switch kind {
	case "mpsc", "spsc", "mpmc", "broadcast":
	default:
		return types.Value{}, types.NewDomainError(fmt.Sprintf("unknown channel kind %q", kind))
	}
	id := uuid.NewString()
	s.channels[id] = newBoundedChannel(kind, defaultCapacity)
	return types.NewChannelValue(id, kind), nil
}

const defaultCapacity = 16

func (s *Scheduler) resolveChannel(chVal types.Value) (*boundedChannel, error) {
	if chVal.Type() != types.KindChannel {
		return nil, types.NewTypeError("expected a channel value")
	}
	ch, ok := s.channels[chVal.AsChannel().ID]
	if !ok {
		return nil, types.NewDomainError("unknown channel " + chVal.AsChannel().ID)
	}
	return ch, nil
}

// Send transmits v on ch, blocking until space is available; sending on a
// closed channel is an Error (spec.md §4.7, §8).
func (s *Scheduler) Send(chVal, v types.Value) error {
	ch, err := s.resolveChannel(chVal)
	if err != nil {
		return err
	}
	for {
		ok, sendErr := ch.trySend(v)
		if sendErr != nil {
			return sendErr
		}
		if ok {
			return nil
		}
		s.release()
		s.acquire()
	}
}

// TrySend attempts a non-blocking send, returning false rather than
// blocking if the channel is full (spec.md §4.7).
func (s *Scheduler) TrySend(chVal, v types.Value) (bool, error) {
	ch, err := s.resolveChannel(chVal)
	if err != nil {
		return false, err
	}
	return ch.trySend(v)
}

// TryRecv attempts a non-blocking receive. ok is false both when the
// channel is empty-and-open (nothing to report) and after a closed
// channel has fully drained (err is nil in both cases; callers needing
// to distinguish drained-closed from empty-open should check size/close
// state separately — the block-level tryRecv instruction only needs the
// success flag).
func (s *Scheduler) TryRecv(chVal types.Value) (types.Value, bool, error) {
	ch, err := s.resolveChannel(chVal)
	if err != nil {
		return types.Value{}, false, err
	}
	v, ok, _ := ch.tryRecv()
	return v, ok, nil
}

// CloseChannel marks ch closed: further sends error, receives drain
// buffered values then return void (spec.md §4.7, §8). Backs the `close`
// expression form.
func (s *Scheduler) CloseChannel(chVal types.Value) error {
	ch, err := s.resolveChannel(chVal)
	if err != nil {
		return err
	}
	ch.close()
	return nil
}

// ChannelSize reports the number of buffered, unreceived values.
func (s *Scheduler) ChannelSize(chVal types.Value) (int, error) {
	ch, err := s.resolveChannel(chVal)
	if err != nil {
		return 0, err
	}
	return ch.size(), nil
}

// Recv returns the channel's head, blocking while it is empty and open;
// once closed and drained it returns void (spec.md §4.7, §8).
func (s *Scheduler) Recv(chVal types.Value) (types.Value, error) {
	ch, err := s.resolveChannel(chVal)
	if err != nil {
		return types.Value{}, err
	}
	for {
		v, ok, drained := ch.tryRecv()
		if ok {
			return v, nil
		}
		if drained {
			return types.Value{}, nil
		}
		s.release()
		s.acquire()
	}
}
