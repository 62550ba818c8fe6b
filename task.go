package gain

// The scheduler is cooperative and, in the scheduling sense, single
// threaded: tasks are goroutines, but at most one of them (or the scheduler
// itself) runs at any moment, and control moves only at explicit suspension
// points. The channel handoffs below carry the happens-before edges that
// make the otherwise unsynchronized runtime state safe to share.

// task is one suspendable computation.
type task struct {
	rt      *Runtime
	fn      func()
	resume  chan struct{}
	started bool
	queued  bool
	done    bool
}

// wake enqueues the task on the ready queue. A task appears in the queue at
// most once between runs.
func (t *task) wake() {
	if !t.queued && !t.done {
		t.queued = true
		t.rt.sched.ready = append(t.rt.sched.ready, t)
	}
}

type scheduler struct {
	ready   []*task // FIFO
	current *task
	yielded chan struct{}
}

func newScheduler() *scheduler {
	return &scheduler{yielded: make(chan struct{})}
}

func (r *Runtime) newTask(fn func()) *task {
	return &task{rt: r, fn: fn, resume: make(chan struct{})}
}

// step hands control to the task until it parks or finishes. The goroutine
// is launched lazily so that spawned-but-never-run tasks cost nothing.
func (s *scheduler) step(t *task) {
	s.current = t
	if !t.started {
		t.started = true
		go func() {
			<-t.resume
			t.fn()
			t.done = true
			t.rt.sched.yielded <- struct{}{}
		}()
	}
	t.resume <- struct{}{}
	<-s.yielded
	s.current = nil
}

// park suspends the current task until something wakes it. Must be called
// from within a running task.
func (r *Runtime) park() {
	t := r.sched.current
	r.sched.yielded <- struct{}{}
	<-t.resume
}

// currentTask returns the task being run, to be recorded as a waker.
func (r *Runtime) currentTask() *task {
	t := r.sched.current
	if t == nil {
		die("blocking operation invoked outside a running task")
	}
	return t
}

// BlockOn runs fn as the top-level task and blocks until it returns. Ready
// tasks are run in FIFO order; when none are ready, one drive-loop
// iteration is performed.
func (r *Runtime) BlockOn(fn func()) {
	top := r.newTask(fn)
	top.wake()
	for {
		for len(r.sched.ready) > 0 {
			t := r.sched.ready[0]
			r.sched.ready = r.sched.ready[1:]
			t.queued = false
			r.sched.step(t)
		}
		if top.done {
			return
		}
		r.drive()
	}
}

// Spawn schedules fn to run as a new task.
func (r *Runtime) Spawn(fn func()) {
	r.newTask(fn).wake()
}

// SpawnLocal is equivalent to Spawn: every task runs on the runtime's
// single cooperative scheduler.
func (r *Runtime) SpawnLocal(fn func()) {
	r.Spawn(fn)
}

// YieldNow reschedules the current task behind other pending work by
// pushing an empty descriptor through the send queue.
func (r *Runtime) YieldNow() {
	var d sendDesc
	d.reply = replyNotExpected
	d.waker = r.currentTask()
	r.sendList.pushBack(&d)
	r.park()
}

// Event is a one-shot wakeup shared between tasks of one runtime. It backs
// bindings that must wait for a packet handled by another task.
type Event struct {
	rt      *Runtime
	set     bool
	waiters []*task
}

// NewEvent creates an unset event.
func (r *Runtime) NewEvent() *Event {
	return &Event{rt: r}
}

// Set marks the event and wakes all waiters. Setting twice is a no-op.
func (e *Event) Set() {
	if e.set {
		return
	}
	e.set = true
	for _, t := range e.waiters {
		t.wake()
	}
	e.waiters = nil
}

// Wait parks the current task until the event is set.
func (e *Event) Wait() {
	for !e.set {
		e.waiters = append(e.waiters, e.rt.currentTask())
		e.rt.park()
	}
}
