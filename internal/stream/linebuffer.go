package stream

import "bytes"

// lineBuffer accumulates chunk bytes and hands out newline-terminated lines.
// Between calls it holds at most one unterminated line.
type lineBuffer struct {
	buf []byte
	// scanned counts leading bytes of buf already known to hold no '\n'.
	scanned int
}

// write appends chunk and calls fn for each complete line, in order, without
// the trailing '\n'. The slice passed to fn is only valid during the call.
// If fn fails, the lines after the failing one are discarded.
func (b *lineBuffer) write(chunk []byte, fn func(line []byte) error) error {
	b.buf = append(b.buf, chunk...)

	start := 0
	from := b.scanned
	for {
		i := bytes.IndexByte(b.buf[from:], '\n')
		if i < 0 {
			break
		}
		end := from + i
		line := b.buf[start:end]
		start = end + 1
		from = start
		if err := fn(line); err != nil {
			b.reset()
			return err
		}
	}

	n := copy(b.buf, b.buf[start:])
	b.buf = b.buf[:n]
	b.scanned = n
	return nil
}

// pending returns the number of buffered bytes not yet terminated by '\n'.
func (b *lineBuffer) pending() int {
	return len(b.buf)
}

func (b *lineBuffer) reset() {
	b.buf = b.buf[:0]
	b.scanned = 0
}
