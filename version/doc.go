// Package version exposes build information set at link time:
//
//	go build -ldflags "-X github.com/kbukum/speakerembed/version.Version=1.2.0" ./cmd/embedding-service
package version
