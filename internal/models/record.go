package models

import (
	"math"
	"time"
)

// Record is a single row of an entity as exposed by the persistence capability.
// Version is the store's last-modified marker and increases on every write.
type Record struct {
	ID        int64                  `json:"id"`
	Fields    map[string]interface{} `json:"fields"`
	Version   int64                  `json:"-"`
	UpdatedAt time.Time              `json:"-"`
}

// Clone returns a deep enough copy for callers that mutate the field map.
func (r Record) Clone() Record {
	fields := make(map[string]interface{}, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	r.Fields = fields
	return r
}

// Project keeps only the named fields. The primary key is always kept.
func (r Record) Project(names []string) map[string]interface{} {
	if len(names) == 0 {
		return r.Fields
	}
	out := make(map[string]interface{}, len(names)+1)
	out[PrimaryKey] = r.ID
	for _, name := range names {
		if v, ok := r.Fields[name]; ok {
			out[name] = v
		}
	}
	return out
}

// SortDirection is either ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortKey orders by a single field.
type SortKey struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// FilterClause is an equality predicate on a filterable field with an already typed value.
type FilterClause struct {
	Field string      `json:"field"`
	Value interface{} `json:"value"`
}

// QueryPlan is the validated, deterministic fetch plan handed to the store.
// Sort always ends with the primary key tie-break.
type QueryPlan struct {
	Entity       *EntityDefinition `json:"-"`
	Filters      []FilterClause    `json:"filters"`
	Search       string            `json:"search,omitempty"`
	SearchFields []string          `json:"search_fields,omitempty"`
	Sort         []SortKey         `json:"sort"`
	Fields       []string          `json:"fields,omitempty"`
	Page         int               `json:"page"`
	PageSize     int               `json:"page_size"`
}

// Limit returns the page window size.
func (p QueryPlan) Limit() int { return p.PageSize }

// Offset returns the number of rows skipped before the page window.
func (p QueryPlan) Offset() int { return (p.Page - 1) * p.PageSize }

// ListMeta is the pagination metadata of a list result.
type ListMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewListMeta computes total_pages as ceil(total / page_size).
func NewListMeta(total, page, pageSize int) ListMeta {
	totalPages := 0
	if total > 0 && pageSize > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	return ListMeta{Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages}
}

// ListLinks are navigation links for a list result.
type ListLinks struct {
	Self  string `json:"self"`
	First string `json:"first"`
	Last  string `json:"last"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
}

// ListResult is an ordered page of (possibly projected) records.
type ListResult struct {
	Records []map[string]interface{} `json:"data"`
	Meta    ListMeta                 `json:"meta"`
}

// DetailResult is a single record with its version metadata.
type DetailResult struct {
	Record       map[string]interface{} `json:"data"`
	Version      string                 `json:"version"`
	LastModified time.Time              `json:"last_modified"`
}

// DetailMeta is the body metadata attached to a detail response.
type DetailMeta struct {
	Version      string    `json:"version"`
	LastModified time.Time `json:"last_modified"`
}

// Meta returns the detail metadata block.
func (d DetailResult) Meta() DetailMeta {
	return DetailMeta{Version: d.Version, LastModified: d.LastModified}
}
