package launcher

import "bytes"

// limitedBuffer keeps the first limit bytes written to it and discards the rest,
// still reporting full writes so the writer never blocks.
type limitedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newLimitedBuffer(limit int) *limitedBuffer {
	return &limitedBuffer{limit: limit}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - b.buf.Len()
	if remaining <= 0 {
		if len(p) > 0 {
			b.truncated = true
		}

		return len(p), nil
	}

	if len(p) > remaining {
		b.truncated = true
		b.buf.Write(p[:remaining])

		return len(p), nil
	}

	b.buf.Write(p)

	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
