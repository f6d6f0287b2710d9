// Package config loads, validates, and hot-reloads turnstile configuration.
//
// Configuration is a YAML file with four sections: logging, governor,
// ledger, and audit. Loading follows a fixed pipeline: parse the file,
// apply defaults to unset fields, then validate. Validation collects every
// problem into one ValidationError instead of stopping at the first.
//
// # Usage
//
//	cfg, err := config.Load("turnstile.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	g := governor.New(governor.Config{
//		Limits:  cfg.Governor.Limits.GovernorLimits(),
//		Backoff: cfg.Governor.Backoff.GovernorBackoff(),
//	})
//
// LoadWithEnvOverrides additionally applies TURNSTILE_* environment
// variables on top of the file, for example TURNSTILE_LOG_LEVEL or
// TURNSTILE_GOVERNOR_REQUESTS_PER_MINUTE. Environment values always win
// over file values.
//
// # Hot Reload
//
// Watcher watches the config file with fsnotify and debounces change
// bursts. Each settled change reloads and revalidates the file; a reload
// that fails keeps the previous configuration in effect.
//
//	w, _ := config.NewWatcher(config.WatcherConfig{Path: "turnstile.yaml"})
//	go w.Watch(ctx, func(cfg *config.Config) {
//		g.SetLimits(cfg.Governor.Limits.GovernorLimits())
//		l.UpdateLimits(cfg.Ledger.LimitsUpdate())
//	})
package config
