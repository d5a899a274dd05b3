package dkgstore

// Secret wraps an ephemeral byte slice (a marshaled scalar, a polynomial
// coefficient, ...) so it can be explicitly destroyed once consumed,
// satisfying spec.md §5's "secret shares are held only by their owner and
// zeroized on drop" and §9's "all ephemeral scalars must be overwritten
// after use". It copies its input on construction so the caller's own
// buffer is unaffected by a later Destroy.
type Secret struct {
	buf []byte
}

// NewSecret takes ownership of a copy of b.
func NewSecret(b []byte) *Secret {
	return &Secret{buf: append([]byte(nil), b...)}
}

// Bytes exposes the current contents; the returned slice aliases the
// Secret's internal storage and becomes invalid after Destroy.
func (s *Secret) Bytes() []byte {
	return s.buf
}

// Destroy overwrites the backing storage with zeros and releases it. Safe
// to call more than once.
func (s *Secret) Destroy() {
	for i := range s.buf {
		s.buf[i] = 0
	}
	s.buf = nil
}
