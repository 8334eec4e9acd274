// Package observer implements the typed execution event stream a workflow
// run emits: execution:start, node:start, node:complete, node:error,
// execution:error, execution:complete.
//
// # Basic usage
//
//	mgr := observer.NewManager()
//	mgr.Register(observer.NewConsoleObserver())
//	mgr.Notify(ctx, observer.Event{Type: observer.EventExecutionStart, ExecutionID: id})
//
// Manager.Notify dispatches to every registered Observer on its own
// goroutine and recovers a panicking observer so it cannot affect the run
// or other observers.
package observer
