package gain

// A Runtime multiplexes service calls, info packets and credit-controlled
// streams over a single Host, and schedules the tasks that use them. All of
// its state is touched only under the cooperative scheduler, so none of it
// is synchronized.
type Runtime struct {
	host     Host
	sched    *scheduler
	services []*serviceState
	names    map[string]Code
	streams  map[streamKey]*streamState
	sendList sendList
	recv     *recvBuf
}

// New creates a runtime around the given host primitive.
func New(host Host) *Runtime {
	return &Runtime{
		host:    host,
		sched:   newScheduler(),
		names:   make(map[string]Code),
		streams: make(map[streamKey]*streamState),
		recv:    newRecvBuf(),
	}
}

var defaultRuntime *Runtime

// Default returns the process-wide runtime backed by the host's io import.
// It is constructed lazily on first use and lives until process exit. The
// service bindings operate on it.
func Default() *Runtime {
	if defaultRuntime == nil {
		host := defaultHost()
		if host == nil {
			die("no host io function on this platform")
		}
		defaultRuntime = New(host)
	}
	return defaultRuntime
}

// BlockOn runs fn as the top-level task of the default runtime.
func BlockOn(fn func()) { Default().BlockOn(fn) }

// Spawn schedules fn on the default runtime.
func Spawn(fn func()) { Default().Spawn(fn) }

// SpawnLocal schedules fn on the default runtime.
func SpawnLocal(fn func()) { Default().SpawnLocal(fn) }

// YieldNow reschedules the current task of the default runtime.
func YieldNow() { Default().YieldNow() }

// NewEvent creates an event on the default runtime.
func NewEvent() *Event { return Default().NewEvent() }

// Register registers a service on the default runtime or panics.
func Register(name string) *Service { return Default().Register(name) }

// TryRegister registers a service on the default runtime.
func TryRegister(name string) (*Service, error) { return Default().TryRegister(name) }
