// Package tempfile manages the per-request files produced while decoding
// uploads. Every file belongs to a Scope; releasing the scope removes them.
//
//	scope := mgr.NewScope()
//	defer scope.Release()
//	f, err := scope.Create(".wav")
package tempfile
