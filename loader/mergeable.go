package loader

// MergeableRanksLoader wraps a rank map the caller already has in
// memory — built by a plugin, deserialized from a custom cache format,
// whatever — and hands it back unchanged. This is the identity
// collaborator referenced wherever a vocab descriptor is constructed
// directly from a `map[string]uint32` of mergeable ranks rather than a
// file.
type MergeableRanksLoader struct {
	Ranks Ranks
}

func (l *MergeableRanksLoader) Load() (Ranks, error) {
	return l.Ranks, nil
}
