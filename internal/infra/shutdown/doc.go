// Package shutdown coordinates graceful process termination.
//
// A Handler runs registered hooks in reverse order of registration when
// SIGINT or SIGTERM arrives or its context is cancelled:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown("store", store.Close)
//	err := h.Wait(ctx)
//
// Short-lived commands use NotifyContext instead.
package shutdown
