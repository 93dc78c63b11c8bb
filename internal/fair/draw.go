package fair

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// floatBits is how many leading bits of a draw feed one uniform float.
// 52 bits fit a float64 mantissa exactly, so every distinct prefix maps to a
// distinct value in [0,1).
const floatBits = 52

// Stream is the deterministic byte source for one bet. Segment 0 is
// HMAC-SHA256(key=serverSeed, msg=clientSeed":"nonce); when a game needs more
// than one digest (mines shuffles, plinko rows) further segments re-key the
// message with a ":k" suffix instead of reusing bits, so sub-draws stay
// uncorrelated.
type Stream struct {
	key     []byte
	prefix  string
	segment int
	buf     []byte
	off     int
}

func NewStream(serverSeed []byte, clientSeed string, nonce uint64) *Stream {
	return &Stream{
		key:    serverSeed,
		prefix: fmt.Sprintf("%s:%d", clientSeed, nonce),
	}
}

func (s *Stream) nextSegment() {
	msg := s.prefix
	if s.segment > 0 {
		msg = fmt.Sprintf("%s:%d", s.prefix, s.segment)
	}
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(msg))
	s.buf = h.Sum(nil)
	s.off = 0
	s.segment++
}

// Bytes returns the next n bytes of the stream.
func (s *Stream) Bytes(n int) []byte {
	out := make([]byte, 0, n)
	for len(out) < n {
		if s.off >= len(s.buf) {
			s.nextSegment()
		}
		take := n - len(out)
		if rem := len(s.buf) - s.off; take > rem {
			take = rem
		}
		out = append(out, s.buf[s.off:s.off+take]...)
		s.off += take
	}
	return out
}

// Uint64 consumes eight bytes, big-endian.
func (s *Stream) Uint64() uint64 {
	return binary.BigEndian.Uint64(s.Bytes(8))
}

// Uint32 consumes four bytes, big-endian.
func (s *Stream) Uint32() uint32 {
	return binary.BigEndian.Uint32(s.Bytes(4))
}

// Float64 consumes eight bytes and maps their top 52 bits to [0,1).
func (s *Stream) Float64() float64 {
	v := s.Uint64() >> (64 - floatBits)
	return float64(v) / float64(uint64(1)<<floatBits)
}

// IntN consumes four bytes and reduces them modulo n. The modulo bias over a
// 32-bit draw is negligible for the domains used here (n <= 25).
func (s *Stream) IntN(n int) int {
	if n <= 0 {
		panic("fair: IntN called with non-positive n")
	}
	return int(s.Uint32() % uint32(n))
}

// Bit consumes one byte and returns its low bit.
func (s *Stream) Bit() int {
	return int(s.Bytes(1)[0] & 1)
}
