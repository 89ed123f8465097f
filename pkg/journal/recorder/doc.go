// Package recorder writes journal entries asynchronously.
//
// A Recorder is registered as a pipeline observer and as a circuit breaker
// observer. Both callbacks run on hot paths, so entries are placed on a
// bounded queue and persisted by a single worker. When the queue is full
// the entry is dropped and counted; a warning is logged at most once every
// ten seconds.
//
//	rec := recorder.NewRecorder(store, &recorder.Config{Buffer: 1024})
//	defer rec.Close()
//
//	registry := breaker.NewRegistry(settings, services, breaker.WithObserver(rec))
//	pipeline, _ := proxy.NewPipeline(proxy.PipelineConfig{
//	    // ...
//	    Observers: []proxy.EventObserver{rec},
//	})
//
// Close drains whatever is queued before returning.
package recorder
