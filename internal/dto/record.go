package dto

// BulkUpdateRequest sets one writable field to the same value on every listed record.
type BulkUpdateRequest struct {
	Entity string      `json:"entity" validate:"required"`
	IDs    []int64     `json:"ids" validate:"required,dive,gte=1"`
	Field  string      `json:"field" validate:"required"`
	Value  interface{} `json:"value"`
}

// DeleteRecordRequest is the optional body of a delete call.
type DeleteRecordRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}
