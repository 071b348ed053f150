// Package runloop provides a single-goroutine task loop.
//
// All session state (load lifecycle, input capture, indicator updates) is
// touched only from tasks running on one Loop, so handlers never need locks
// between each other. Work reaches the loop three ways:
//
//   - Post: FIFO tasks, e.g. inbound transport messages
//   - ScheduleOnce: coalesced tasks keyed by name; a key scheduled several
//     times before it runs executes once, after the current batch of posted
//     tasks (one "tick")
//   - AfterFunc: cancellable timers whose callbacks run on the loop
//
// Example Usage:
//
//	loop := runloop.New(logger)
//	loop.Start()
//	defer loop.Stop()
//	loop.ScheduleOnce("navigate", evaluate)
//	loop.ScheduleOnce("navigate", evaluate) // coalesced
package runloop
