// Package recorder writes engine decisions to an audit storage backend.
//
// The recorder implements engine.DecisionRecorder. Each decision is turned
// into an audit.Record and queued on a buffered channel; a single background
// goroutine drains the channel into storage, so evaluation never waits on disk.
//
//	rec := recorder.NewRecorder(store, recorder.DefaultConfig(), logger)
//	defer rec.Close()
//
//	eng, _ := engine.New(chain, nil, logger, engine.WithRecorder(rec))
//
// When the buffer stays full for WriteTimeout the record is dropped and
// counted through the configured DropCounter. Close drains whatever is still
// queued before returning.
package recorder
