//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package main

// Without termios the prompt is only shown when -i is given.
func isTerminal(uintptr) bool { return false }
