// Package util holds small helpers shared by config and logging code.
package util
