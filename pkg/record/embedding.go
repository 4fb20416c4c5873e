package record

// EmbeddingConfig identifies the provider and model that produced a
// record's vectors. Dimensionality and provider are stored per record so a
// corpus can hold vectors from heterogeneous providers over its lifetime;
// the retrieval engine only ever compares vectors with matching configs.
type EmbeddingConfig struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// Matches reports whether two configs describe comparable vector spaces.
func (c EmbeddingConfig) Matches(other EmbeddingConfig) bool {
	return c.Provider == other.Provider &&
		c.Model == other.Model &&
		c.Dimensions == other.Dimensions
}

// Embedding is one vector over a named textual attribute of a record
// (e.g. "summary", "details").
type Embedding struct {
	Field  string    `json:"field"`
	Vector []float32 `json:"vector"`
}
