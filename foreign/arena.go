package foreign

// Arena owns byte buffers whose lifetime must span a native call, most
// importantly NUL-terminated text buffers that the native side only holds a
// raw reference to. Releasing the arena drops every buffer at once.
type Arena struct {
	bufs [][]byte
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// CString copies s into a freshly allocated NUL-terminated buffer owned by
// the arena and returns it. The buffer stays alive until Release.
func (a *Arena) CString(s string) []byte {
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	a.bufs = append(a.bufs, buf)
	return buf
}

// Hold registers an externally allocated buffer with the arena.
func (a *Arena) Hold(buf []byte) {
	a.bufs = append(a.bufs, buf)
}

// Release drops all buffer references. Any struct view still pointing at an
// arena buffer must be rebound before further use.
func (a *Arena) Release() {
	a.bufs = nil
}

// Len reports how many buffers the arena currently holds.
func (a *Arena) Len() int { return len(a.bufs) }
