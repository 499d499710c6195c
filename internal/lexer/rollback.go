package lexer

// Rollback is a transactional frame over a Stream. It captures the
// stream offset, the last consumed token, and the diagnostic sink
// length at creation; discarding restores all three exactly. Frames
// nest, with inner frames resolving before outer ones.
//
// The usual shape is
//
//	rb := stream.Begin()
//	defer rb.Discard()
//	...
//	rb.Commit()
type Rollback struct {
	stream    *Stream
	offset    int
	last      Token
	hasLast   bool
	msgLen    int
	committed bool
}

// Begin opens a rollback frame at the current stream state
func (s *Stream) Begin() *Rollback {
	return &Rollback{
		stream:  s,
		offset:  s.offset,
		last:    s.last,
		hasLast: s.hasLast,
		msgLen:  s.sink.Len(),
	}
}

// Commit keeps everything consumed and logged since Begin. Any later
// Discard is a no-op.
func (rb *Rollback) Commit() {
	rb.committed = true
}

// Discard restores the stream and the diagnostic sink to their state
// at Begin, unless the frame was committed.
func (rb *Rollback) Discard() {
	if rb.committed {
		return
	}
	rb.stream.offset = rb.offset
	rb.stream.last = rb.last
	rb.stream.hasLast = rb.hasLast
	rb.stream.sink.TruncateTo(rb.msgLen)
}

// ClearMessages retracts every message logged since Begin without
// touching the stream position. Probing rules use it when a mismatch
// is a routing decision rather than something to report.
func (rb *Rollback) ClearMessages() {
	rb.stream.sink.TruncateTo(rb.msgLen)
}
