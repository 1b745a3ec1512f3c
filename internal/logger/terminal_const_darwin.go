//go:build darwin

package logger

import "syscall"

// tcgets is the ioctl request for reading terminal attributes on BSD-derived
// systems (macOS uses TIOCGETA, not TCGETS).
const tcgets = syscall.TIOCGETA
