//go:build !linux

package executor

func currentOSThreadID() int {
	return 0
}
