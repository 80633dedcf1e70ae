package models

import "fmt"

// EntityType identifies one of the admin-managed record collections.
type EntityType string

const (
	EntityAccounts           EntityType = "accounts"
	EntityInstructorProfiles EntityType = "instructor-profiles"
	EntityStudentProfiles    EntityType = "student-profiles"
	EntityBookings           EntityType = "bookings"
	EntityReviews            EntityType = "reviews"
	EntitySchedules          EntityType = "schedules"
)

// FieldType declares how values of a field are validated and compared.
type FieldType string

const (
	FieldInt    FieldType = "int"
	FieldNumber FieldType = "number"
	FieldString FieldType = "string"
	FieldEmail  FieldType = "email"
	FieldBool   FieldType = "bool"
	FieldTime   FieldType = "time"
	FieldEnum   FieldType = "enum"
)

// Field describes a visible column of an entity. Rule is an optional
// go-playground/validator tag applied to string values.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Enum     []string  `json:"enum,omitempty"`
	Nullable bool      `json:"nullable,omitempty"`
	Rule     string    `json:"-"`
}

// AllowsEnum reports whether value is one of the declared enum members.
func (f Field) AllowsEnum(value string) bool {
	for _, allowed := range f.Enum {
		if allowed == value {
			return true
		}
	}
	return false
}

// DeletePolicy tells the persistence layer how a delete is carried out.
// Soft deletes set StatusField to StatusValue; hard deletes remove the row.
type DeletePolicy struct {
	Soft        bool
	StatusField string
	StatusValue string
}

// EntityDefinition is the build-time allow-list for an entity type.
type EntityDefinition struct {
	Type            EntityType
	Table           string
	Fields          []Field
	Filterable      []string
	Searchable      []string
	Sortable        []string
	Writable        []string
	DefaultSort     string
	RequiresVersion bool
	Delete          DeletePolicy

	fields     map[string]Field
	filterable map[string]struct{}
	searchable map[string]struct{}
	sortable   map[string]struct{}
	writable   map[string]struct{}
}

// PrimaryKey is the id column shared by every entity; it is also the pagination tie-break.
const PrimaryKey = "id"

func newEntityDefinition(def EntityDefinition) *EntityDefinition {
	def.fields = make(map[string]Field, len(def.Fields))
	for _, f := range def.Fields {
		def.fields[f.Name] = f
	}
	if _, ok := def.fields[PrimaryKey]; !ok {
		panic(fmt.Sprintf("entity %s: missing %s field", def.Type, PrimaryKey))
	}
	def.filterable = def.index("filterable", def.Filterable)
	def.searchable = def.index("searchable", def.Searchable)
	def.sortable = def.index("sortable", def.Sortable)
	def.writable = def.index("writable", def.Writable)
	if _, ok := def.writable[PrimaryKey]; ok {
		panic(fmt.Sprintf("entity %s: %s cannot be writable", def.Type, PrimaryKey))
	}
	if _, ok := def.sortable[def.DefaultSort]; !ok {
		panic(fmt.Sprintf("entity %s: default sort %q is not sortable", def.Type, def.DefaultSort))
	}
	if def.Delete.Soft {
		if _, ok := def.fields[def.Delete.StatusField]; !ok {
			panic(fmt.Sprintf("entity %s: soft delete field %q unknown", def.Type, def.Delete.StatusField))
		}
	}
	return &def
}

func (d *EntityDefinition) index(kind string, names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := d.fields[name]; !ok {
			panic(fmt.Sprintf("entity %s: %s field %q is not visible", d.Type, kind, name))
		}
		set[name] = struct{}{}
	}
	return set
}

// Field returns the declaration of a visible field.
func (d *EntityDefinition) Field(name string) (Field, bool) {
	f, ok := d.fields[name]
	return f, ok
}

// IsVisible reports whether name is a visible field.
func (d *EntityDefinition) IsVisible(name string) bool {
	_, ok := d.fields[name]
	return ok
}

func (d *EntityDefinition) IsFilterable(name string) bool {
	_, ok := d.filterable[name]
	return ok
}

func (d *EntityDefinition) IsSearchable(name string) bool {
	_, ok := d.searchable[name]
	return ok
}

func (d *EntityDefinition) IsSortable(name string) bool {
	_, ok := d.sortable[name]
	return ok
}

func (d *EntityDefinition) IsWritable(name string) bool {
	_, ok := d.writable[name]
	return ok
}

// FieldNames returns visible field names in declaration order.
func (d *EntityDefinition) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// EntityDescription is the public view of a definition served by the catalog endpoint.
type EntityDescription struct {
	Entity          EntityType `json:"entity"`
	Fields          []Field    `json:"fields"`
	Filterable      []string   `json:"filterable"`
	Searchable      []string   `json:"searchable"`
	Sortable        []string   `json:"sortable"`
	Writable        []string   `json:"writable"`
	DefaultSort     string     `json:"default_sort"`
	RequiresVersion bool       `json:"requires_version"`
}

// Describe builds the public description of the definition.
func (d *EntityDefinition) Describe() EntityDescription {
	return EntityDescription{
		Entity:          d.Type,
		Fields:          append([]Field(nil), d.Fields...),
		Filterable:      append([]string{}, d.Filterable...),
		Searchable:      append([]string{}, d.Searchable...),
		Sortable:        append([]string{}, d.Sortable...),
		Writable:        append([]string{}, d.Writable...),
		DefaultSort:     d.DefaultSort,
		RequiresVersion: d.RequiresVersion,
	}
}
