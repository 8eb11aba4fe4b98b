// Package filemanager manages uploads, downloads, renames and bulk prefix
// moves against a single object-storage bucket.
//
// Long-running work is started with the Start* methods, which validate their
// arguments synchronously, register an operation and return its id before any
// byte moves. Progress is delivered on a bus as optypes.ProgressEvent values:
// for each operation a run of "progress" events followed by exactly one
// "done" or "error" event. A canceled operation emits nothing further.
//
// Example:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mgr, err := filemanager.NewFromConfig(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Close()
//
//	stop := mgr.OnProgress(func(ev optypes.ProgressEvent) {
//	    fmt.Println(ev.OpID, ev.Phase, ev.Percent)
//	})
//	defer stop()
//
//	id, err := mgr.StartUploadLocal(ctx, "/tmp/a.txt", "docs/a.txt", false)
package filemanager
