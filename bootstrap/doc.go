// Package bootstrap runs the service lifecycle.
//
// An App owns the typed config, the logger and the component registry.
// Run starts components in registration order, runs configure callbacks and
// hooks, prints a startup summary, blocks until a signal, and shuts down in
// reverse order. RunTask does the same around a finite task, which the CLI
// uses for offline extraction.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(modelManager)
//	app.RegisterComponent(httpServer)
//	err = app.Run(ctx)
package bootstrap
