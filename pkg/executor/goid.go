package executor

import (
	"bytes"
	"fmt"
	"runtime"
	"strings"
)

// curGoroutineID returns the current goroutine id by parsing runtime.Stack output.
// It returns 0 if parsing fails.
func curGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	// Format: "goroutine 123 [running]:\n"
	const prefix = "goroutine "
	if !bytes.HasPrefix(b, []byte(prefix)) {
		return 0
	}
	var id uint64
	for i := len(prefix); i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}

// goroutineStack returns the frames of goroutine id as "function file:line" strings,
// innermost first. It returns nil if the goroutine no longer exists.
func goroutineStack(id uint64) []string {
	buf := make([]byte, 64<<10)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}

	header := []byte(fmt.Sprintf("goroutine %d [", id))
	start := bytes.Index(buf, header)
	if start < 0 {
		return nil
	}
	block := buf[start:]
	if end := bytes.Index(block, []byte("\n\n")); end >= 0 {
		block = block[:end]
	}

	lines := strings.Split(string(block), "\n")[1:]
	frames := make([]string, 0, len(lines)/2)
	for i := 0; i < len(lines); i++ {
		fn := strings.TrimSpace(lines[i])
		if fn == "" || strings.HasPrefix(lines[i], "\t") {
			continue
		}
		if i+1 < len(lines) && strings.HasPrefix(lines[i+1], "\t") {
			loc := strings.TrimSpace(lines[i+1])
			if sp := strings.LastIndex(loc, " +0x"); sp >= 0 {
				loc = loc[:sp]
			}
			fn = fn + " " + loc
			i++
		}
		frames = append(frames, fn)
	}
	return frames
}
