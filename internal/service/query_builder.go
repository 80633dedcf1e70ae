package service

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/tutor-admin-api/internal/models"
	appErrors "github.com/noah-isme/tutor-admin-api/pkg/errors"
)

const (
	filterParamPrefix = "filter_"
	maxSearchLength   = 200
	// maxOffset caps (page-1)*page_size.
	maxOffset = math.MaxInt32
)

// QueryBuilderConfig bounds pagination.
type QueryBuilderConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// QueryBuilder turns raw list parameters into a validated QueryPlan.
type QueryBuilder struct {
	validator *validator.Validate
	cfg       QueryBuilderConfig
}

// NewQueryBuilder constructs a QueryBuilder.
func NewQueryBuilder(validate *validator.Validate, cfg QueryBuilderConfig) *QueryBuilder {
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.DefaultPageSize <= 0 || cfg.DefaultPageSize > cfg.MaxPageSize {
		cfg.DefaultPageSize = min(20, cfg.MaxPageSize)
	}
	return &QueryBuilder{validator: validate, cfg: cfg}
}

// Build validates params for def. Unknown non-filter parameters are ignored.
func (b *QueryBuilder) Build(def *models.EntityDefinition, params url.Values) (models.QueryPlan, error) {
	plan := models.QueryPlan{Entity: def, Page: 1, PageSize: b.cfg.DefaultPageSize}

	if raw := params.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return plan, appErrors.Clone(appErrors.ErrValidation, "page must be a positive integer")
		}
		plan.Page = page
	}
	if raw := params.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return plan, appErrors.Clone(appErrors.ErrValidation, "page_size must be a positive integer")
		}
		plan.PageSize = min(size, b.cfg.MaxPageSize)
	}
	if plan.Page-1 > maxOffset/plan.PageSize {
		return plan, appErrors.Clonef(appErrors.ErrValidation, "page must be at most %d for page_size %d", maxOffset/plan.PageSize+1, plan.PageSize)
	}

	if search := strings.TrimSpace(params.Get("search")); search != "" && len(def.Searchable) > 0 {
		if utf8.RuneCountInString(search) > maxSearchLength {
			return plan, appErrors.Clonef(appErrors.ErrValidation, "search must be at most %d characters", maxSearchLength)
		}
		plan.Search = search
		plan.SearchFields = append([]string(nil), def.Searchable...)
	}

	filters, err := b.filters(def, params)
	if err != nil {
		return plan, err
	}
	plan.Filters = filters

	sortKeys, err := buildSort(def, params.Get("sort"))
	if err != nil {
		return plan, err
	}
	plan.Sort = sortKeys

	fields, err := buildProjection(def, params.Get("fields"))
	if err != nil {
		return plan, err
	}
	plan.Fields = fields

	return plan, nil
}

// Meta computes list metadata for a plan and the store's total count.
func (b *QueryBuilder) Meta(plan models.QueryPlan, total int) models.ListMeta {
	return models.NewListMeta(total, plan.Page, plan.PageSize)
}

func (b *QueryBuilder) filters(def *models.EntityDefinition, params url.Values) ([]models.FilterClause, error) {
	names := make([]string, 0)
	for key := range params {
		if strings.HasPrefix(key, filterParamPrefix) {
			names = append(names, key)
		}
	}
	sort.Strings(names)

	clauses := make([]models.FilterClause, 0, len(names))
	for _, key := range names {
		name := strings.TrimPrefix(key, filterParamPrefix)
		if !def.IsFilterable(name) {
			return nil, appErrors.Clonef(appErrors.ErrValidation, "%s is not filterable on %s", name, def.Type)
		}
		values := params[key]
		if len(values) != 1 {
			return nil, appErrors.Clonef(appErrors.ErrValidation, "%s must be given once", key)
		}
		field, _ := def.Field(name)
		value, err := parseFilterValue(b.validator, field, values[0])
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		clauses = append(clauses, models.FilterClause{Field: name, Value: value})
	}
	return clauses, nil
}

// buildSort parses "field[:asc|desc]" and appends the id tie-break in the same direction.
func buildSort(def *models.EntityDefinition, raw string) ([]models.SortKey, error) {
	key := models.SortKey{Field: def.DefaultSort, Direction: models.SortAsc}
	if raw = strings.TrimSpace(raw); raw != "" {
		field, direction, hasDirection := strings.Cut(raw, ":")
		if !def.IsSortable(field) {
			return nil, appErrors.Clonef(appErrors.ErrValidation, "%s is not sortable on %s", field, def.Type)
		}
		key.Field = field
		if hasDirection {
			switch models.SortDirection(strings.ToLower(direction)) {
			case models.SortAsc:
			case models.SortDesc:
				key.Direction = models.SortDesc
			default:
				return nil, appErrors.Clonef(appErrors.ErrValidation, "sort direction %q must be asc or desc", direction)
			}
		}
	}
	keys := []models.SortKey{key}
	if key.Field != models.PrimaryKey {
		keys = append(keys, models.SortKey{Field: models.PrimaryKey, Direction: key.Direction})
	}
	return keys, nil
}

func buildProjection(def *models.EntityDefinition, raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	seen := make(map[string]struct{})
	fields := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if !def.IsVisible(name) {
			return nil, appErrors.Clonef(appErrors.ErrValidation, "unknown field %s on %s", name, def.Type)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		fields = append(fields, name)
	}
	return fields, nil
}
