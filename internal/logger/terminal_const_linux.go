//go:build linux

package logger

import "syscall"

// tcgets is the ioctl request for reading terminal attributes on Linux.
const tcgets = syscall.TCGETS
