// Package shutdown coordinates process termination.
//
// WithSignals cancels a context on SIGINT or SIGTERM, which one-shot
// commands use to abort a discovery wait. Long-running servers register
// cleanup hooks on a Handler and block in Wait:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown(srv.Shutdown)
//	return h.Wait(ctx)
package shutdown
