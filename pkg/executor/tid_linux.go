//go:build linux

package executor

import "golang.org/x/sys/unix"

func currentOSThreadID() int {
	return unix.Gettid()
}
