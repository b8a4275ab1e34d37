// Package health serves the liveness and readiness probes of the verdict
// scheduler daemon.
//
// Components register named checks; readiness runs all of them concurrently
// with a per-check timeout:
//
//	checker := health.New(2 * time.Second)
//	checker.Register("policy", func(ctx context.Context) error {
//	    if holder.Engine().Len() == 0 {
//	        return errors.New("no rules loaded")
//	    }
//	    return nil
//	})
//
//	mux.Handle("/healthz", checker.LivenessHandler())
//	mux.Handle("/readyz", checker.ReadinessHandler())
//	mux.Handle("/version", health.VersionHandler(version, commit, buildDate))
//
// Readiness answers 503 while any check fails:
//
//	{
//	    "status": "degraded",
//	    "checks": {
//	        "policy": {"status": "ok", "duration_ms": 0},
//	        "last_run": {"status": "unhealthy", "message": "input file missing"}
//	    },
//	    "timestamp": "2026-10-15T03:00:00Z"
//	}
package health
