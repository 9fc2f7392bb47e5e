// Package speaker loads the speaker embedding model and hands it out to
// request handlers.
//
// A Manager performs a single load attempt during startup through a
// registered backend:
//
//   - onnx runs an exported ECAPA-TDNN graph in process with ONNX Runtime
//   - remote calls an HTTP inference sidecar
//
// Backends register themselves from init; import them for side effects:
//
//	import _ "github.com/kbukum/speakerembed/speaker/onnx"
//
//	mgr := speaker.NewManager(cfg.Model, log)
//	app.RegisterComponent(mgr) // Start calls Load
//	if model, ok := mgr.Model(); ok {
//	    t, err := model.Embed(ctx, samples, 16000)
//	}
package speaker
