package models

// BulkMutation is a validated bulk request ready to be applied.
type BulkMutation struct {
	Entity *EntityDefinition
	IDs    []int64
	Field  string
	Value  interface{}
}

// BulkResult reports the outcome of a bulk mutation. Every requested id is
// either counted in UpdatedCount or listed in FailedIDs, never both.
type BulkResult struct {
	UpdatedCount int     `json:"updated_count"`
	FailedIDs    []int64 `json:"failed_ids"`
	Message      string  `json:"message"`
}
