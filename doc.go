// Package gloop implements a reusable event-loop core: a context/source/loop
// triplet that multiplexes timers, descriptor readiness, child-process
// termination, signal notifications and user-scheduled callbacks onto one or
// more cooperating threads.
//
// Clients attach Sources to a Context; a Loop drives the Context, repeatedly
// preparing, polling, checking and dispatching ready sources in strict
// priority order (numerically smaller priority runs first). The OS-level
// multiplex primitive is injectable (WithPollFunc); the default wraps
// poll(2)/ppoll(2) via golang.org/x/sys/unix.
package gloop
