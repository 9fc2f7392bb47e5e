// Package process runs external tools such as ffmpeg as subprocesses.
//
// Run captures stdout and stderr, kills the whole process group when the
// context is canceled (SIGTERM first, SIGKILL after the grace period), and
// reports failures with the tail of stderr so decoder errors reach the caller.
package process
