// Package cli carries small presentation helpers for the turnstile
// command.
//
// Reporter renders a self-overwriting progress bar for long-running
// operations such as workload simulations:
//
//	progress := cli.NewReporter(nil)
//	progress.Start(total)
//	for i := 0; i < total; i++ {
//		// do work
//		progress.Update(int64(i + 1))
//	}
//	progress.Finish()
package cli
