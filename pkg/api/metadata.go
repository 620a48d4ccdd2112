package api

// Metadata contains free-form descriptive attributes of an action
type Metadata map[string]any

// Apply will merge the keys/values of the other metadata set into this one
func (m Metadata) Apply(other Metadata) Metadata {
	if len(other) == 0 {
		return m
	}
	res := make(Metadata, len(m)+len(other))
	for k, v := range m {
		res[k] = v
	}
	for k, v := range other {
		res[k] = v
	}
	return res
}
