package cache

// ScopedKeyer wraps a Keyer with a prefix so several deployments can share
// one cache backend without seeing each other's entries.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "staging:")
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

func (k *ScopedKeyer) MetadataKey(workspace, table string) string {
	return k.prefix + k.inner.MetadataKey(workspace, table)
}

func (k *ScopedKeyer) WorkspacePrefix(workspace string) string {
	return k.prefix + k.inner.WorkspacePrefix(workspace)
}

func (k *ScopedKeyer) Prefix() string {
	return k.prefix + k.inner.Prefix()
}
