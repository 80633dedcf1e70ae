package models

var (
	accountRoles     = []string{"ADMIN", "INSTRUCTOR", "STUDENT", "SUPPORT"}
	accountStatuses  = []string{"ACTIVE", "PENDING", "SUSPENDED"}
	profileStatuses  = []string{"ACTIVE", "INACTIVE", "PENDING_REVIEW"}
	gradeLevels      = []string{"ELEMENTARY", "MIDDLE", "HIGH", "UNIVERSITY", "ADULT"}
	bookingStatuses  = []string{"PENDING", "CONFIRMED", "COMPLETED", "CANCELLED"}
	reviewStatuses   = []string{"PUBLISHED", "FLAGGED", "HIDDEN"}
	reviewRatings    = []string{"1", "2", "3", "4", "5"}
	daysOfWeek       = []string{"MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}
	timestampsFields = []Field{
		{Name: "created_at", Type: FieldTime},
		{Name: "updated_at", Type: FieldTime},
	}
)

func withTimestamps(fields ...Field) []Field {
	return append(fields, timestampsFields...)
}

var entityOrder = []EntityType{
	EntityAccounts,
	EntityInstructorProfiles,
	EntityStudentProfiles,
	EntityBookings,
	EntityReviews,
	EntitySchedules,
}

var entityCatalog = map[EntityType]*EntityDefinition{
	EntityAccounts: newEntityDefinition(EntityDefinition{
		Type:  EntityAccounts,
		Table: "accounts",
		Fields: withTimestamps(
			Field{Name: "id", Type: FieldInt},
			Field{Name: "email", Type: FieldEmail},
			Field{Name: "full_name", Type: FieldString, Rule: "min=1,max=120"},
			Field{Name: "phone", Type: FieldString, Nullable: true, Rule: "e164"},
			Field{Name: "role", Type: FieldEnum, Enum: accountRoles},
			Field{Name: "status", Type: FieldEnum, Enum: accountStatuses},
		),
		Filterable:      []string{"role", "status", "email"},
		Searchable:      []string{"email", "full_name"},
		Sortable:        []string{"id", "email", "full_name", "status", "created_at", "updated_at"},
		Writable:        []string{"full_name", "phone", "status"},
		DefaultSort:     "id",
		RequiresVersion: true,
		Delete:          DeletePolicy{Soft: true, StatusField: "status", StatusValue: "SUSPENDED"},
	}),
	EntityInstructorProfiles: newEntityDefinition(EntityDefinition{
		Type:  EntityInstructorProfiles,
		Table: "instructor_profiles",
		Fields: withTimestamps(
			Field{Name: "id", Type: FieldInt},
			Field{Name: "account_id", Type: FieldInt},
			Field{Name: "display_name", Type: FieldString, Rule: "min=1,max=120"},
			Field{Name: "bio", Type: FieldString, Nullable: true},
			Field{Name: "subjects", Type: FieldString},
			Field{Name: "hourly_rate", Type: FieldNumber},
			Field{Name: "rating", Type: FieldNumber, Nullable: true},
			Field{Name: "verified", Type: FieldBool},
			Field{Name: "status", Type: FieldEnum, Enum: profileStatuses},
		),
		Filterable:      []string{"status", "verified", "account_id"},
		Searchable:      []string{"display_name", "subjects"},
		Sortable:        []string{"id", "display_name", "hourly_rate", "rating", "created_at", "updated_at"},
		Writable:        []string{"display_name", "bio", "subjects", "hourly_rate", "verified", "status"},
		DefaultSort:     "id",
		RequiresVersion: true,
		Delete:          DeletePolicy{Soft: true, StatusField: "status", StatusValue: "INACTIVE"},
	}),
	EntityStudentProfiles: newEntityDefinition(EntityDefinition{
		Type:  EntityStudentProfiles,
		Table: "student_profiles",
		Fields: withTimestamps(
			Field{Name: "id", Type: FieldInt},
			Field{Name: "account_id", Type: FieldInt},
			Field{Name: "display_name", Type: FieldString, Rule: "min=1,max=120"},
			Field{Name: "grade_level", Type: FieldEnum, Enum: gradeLevels},
			Field{Name: "school_name", Type: FieldString, Nullable: true},
			Field{Name: "guardian_email", Type: FieldEmail, Nullable: true},
			Field{Name: "status", Type: FieldEnum, Enum: profileStatuses},
		),
		Filterable:      []string{"status", "grade_level", "account_id"},
		Searchable:      []string{"display_name", "school_name"},
		Sortable:        []string{"id", "display_name", "grade_level", "created_at", "updated_at"},
		Writable:        []string{"display_name", "grade_level", "school_name", "guardian_email", "status"},
		DefaultSort:     "id",
		RequiresVersion: true,
		Delete:          DeletePolicy{Soft: true, StatusField: "status", StatusValue: "INACTIVE"},
	}),
	EntityBookings: newEntityDefinition(EntityDefinition{
		Type:  EntityBookings,
		Table: "bookings",
		Fields: withTimestamps(
			Field{Name: "id", Type: FieldInt},
			Field{Name: "student_id", Type: FieldInt},
			Field{Name: "instructor_id", Type: FieldInt},
			Field{Name: "schedule_id", Type: FieldInt},
			Field{Name: "starts_at", Type: FieldTime},
			Field{Name: "price", Type: FieldNumber},
			Field{Name: "status", Type: FieldEnum, Enum: bookingStatuses},
			Field{Name: "notes", Type: FieldString, Nullable: true, Rule: "max=2000"},
		),
		Filterable:      []string{"status", "student_id", "instructor_id", "schedule_id"},
		Searchable:      []string{"notes"},
		Sortable:        []string{"id", "starts_at", "price", "status", "created_at", "updated_at"},
		Writable:        []string{"status", "notes"},
		DefaultSort:     "id",
		RequiresVersion: true,
		Delete:          DeletePolicy{Soft: true, StatusField: "status", StatusValue: "CANCELLED"},
	}),
	EntityReviews: newEntityDefinition(EntityDefinition{
		Type:  EntityReviews,
		Table: "reviews",
		Fields: withTimestamps(
			Field{Name: "id", Type: FieldInt},
			Field{Name: "booking_id", Type: FieldInt},
			Field{Name: "student_id", Type: FieldInt},
			Field{Name: "instructor_id", Type: FieldInt},
			Field{Name: "rating", Type: FieldInt, Enum: reviewRatings},
			Field{Name: "comment", Type: FieldString, Nullable: true, Rule: "max=2000"},
			Field{Name: "status", Type: FieldEnum, Enum: reviewStatuses},
		),
		Filterable:      []string{"status", "rating", "instructor_id", "student_id"},
		Searchable:      []string{"comment"},
		Sortable:        []string{"id", "rating", "created_at", "updated_at"},
		Writable:        []string{"comment", "status"},
		DefaultSort:     "id",
		RequiresVersion: true,
		Delete:          DeletePolicy{Soft: true, StatusField: "status", StatusValue: "HIDDEN"},
	}),
	EntitySchedules: newEntityDefinition(EntityDefinition{
		Type:  EntitySchedules,
		Table: "schedules",
		Fields: withTimestamps(
			Field{Name: "id", Type: FieldInt},
			Field{Name: "instructor_id", Type: FieldInt},
			Field{Name: "day_of_week", Type: FieldEnum, Enum: daysOfWeek},
			Field{Name: "start_time", Type: FieldString, Rule: "datetime=15:04"},
			Field{Name: "end_time", Type: FieldString, Rule: "datetime=15:04"},
			Field{Name: "capacity", Type: FieldInt},
			Field{Name: "active", Type: FieldBool},
		),
		Filterable:      []string{"instructor_id", "day_of_week", "active"},
		Sortable:        []string{"id", "day_of_week", "start_time", "capacity", "created_at", "updated_at"},
		Writable:        []string{"day_of_week", "start_time", "end_time", "capacity", "active"},
		DefaultSort:     "id",
		RequiresVersion: true,
		Delete:          DeletePolicy{},
	}),
}

// LookupEntity resolves an entity key such as "instructor-profiles".
func LookupEntity(key string) (*EntityDefinition, bool) {
	def, ok := entityCatalog[EntityType(key)]
	return def, ok
}

// EntityDefinitions returns every definition in a stable order.
func EntityDefinitions() []*EntityDefinition {
	defs := make([]*EntityDefinition, 0, len(entityOrder))
	for _, t := range entityOrder {
		defs = append(defs, entityCatalog[t])
	}
	return defs
}
