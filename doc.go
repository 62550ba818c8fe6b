// Package gain is a guest-side runtime for gate sandboxes. It multiplexes
// a service registry, request/reply calls, info messages and credit-based
// flow-controlled streams over the host's single bidirectional io function,
// and runs application code as cooperative tasks on a single-threaded
// scheduler.
//
// A typical program runs one top-level task:
//
//	func main() {
//		gain.BlockOn(func() {
//			gain.Spawn(concurrentWork)
//			doSomething()
//		})
//	}
//
// Concurrency is achieved by spawning more tasks; the program exits when
// the top-level task returns. Service bindings live in the subpackages
// (origin, identity, catalog, peer, ...); additional bindings can be built
// on Service, Stream and the scheduler operations.
package gain
