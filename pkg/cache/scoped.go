package cache

// ScopedKeyer wraps a Keyer with a prefix so that several deployments can
// share one backend without colliding.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "debsrc:bookworm:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// RecordKey generates a prefixed record key.
func (k *ScopedKeyer) RecordKey(text string, pkg, version string, opts RecordKeyOpts) string {
	return k.prefix + k.inner.RecordKey(text, pkg, version, opts)
}
