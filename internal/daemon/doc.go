// Package daemon runs synchronizations in the background.
//
// A Daemon starts one run immediately, then runs again:
//
//   - every Config.Interval, and
//   - Config.Debounce after the last change seen under one of
//     Config.WatchDirs (the directories of a folder remote).
//
// Runs never overlap. Each run is incremental: it passes the date of the
// last fully successful run of the user to the engine and records a new
// date only when no entity failed. Progress, failures and database
// statistics go to the Notifier, usually the dashboard handler.
//
// Example:
//
//	d, err := daemon.New(engine, db, conn, info, &daemon.Config{
//	    Interval:  5 * time.Minute,
//	    Debounce:  2 * time.Second,
//	    UserID:    "alice",
//	    WatchDirs: []string{"/srv/remote/projects", "/srv/remote/objectives"},
//	    Notifier:  handler,
//	})
//	if err != nil {
//	    return err
//	}
//	return d.Start(ctx) // blocks until ctx is cancelled
package daemon
