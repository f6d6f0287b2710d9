// Package audit records admission decisions for later inspection.
//
// The trail is an observability surface, not an enforcement input: nothing
// in the admission path reads it back, and a recorder failure never fails
// the governed operation. Two Recorder implementations are provided, an
// in-memory bounded ring for tests and short-lived processes, and a SQLite
// backed recorder for durable trails. A cron-driven Scheduler prunes old
// entries on a retention schedule, and WithMetrics wraps any Recorder with
// Prometheus counters.
//
// # Usage
//
//	rec, err := audit.NewSQLiteRecorder("admissions.db")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer rec.Close()
//
//	sched, err := audit.NewScheduler(rec, audit.SchedulerConfig{
//		Schedule:  "0 3 * * *",
//		Retention: 30 * 24 * time.Hour,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	sched.Start()
//	defer sched.Stop()
package audit
