package domain

import "strings"

// EntityType identifies one importable entity category.
type EntityType string

const (
	EntityClient           EntityType = "client"
	EntityContact          EntityType = "contact"
	EntityCase             EntityType = "case"
	EntitySubject          EntityType = "subject"
	EntityUpdate           EntityType = "update"
	EntityActivity         EntityType = "activity"
	EntityTimeEntry        EntityType = "time_entry"
	EntityExpense          EntityType = "expense"
	EntityBudgetAdjustment EntityType = "budget_adjustment"

	// EntityBudget is a pseudo-entity: it updates budget columns on an
	// existing case row instead of inserting a new row.
	EntityBudget EntityType = "budget"
)

// entityAliases maps every accepted spelling (source-parser plurals,
// legacy names) to the canonical entity type. All lookups are
// lower-cased and trimmed first.
var entityAliases = map[string]EntityType{
	"client":   EntityClient,
	"clients":  EntityClient,
	"account":  EntityClient,
	"accounts": EntityClient,

	"contact":  EntityContact,
	"contacts": EntityContact,

	"case":  EntityCase,
	"cases": EntityCase,

	"subject":  EntitySubject,
	"subjects": EntitySubject,

	"update":       EntityUpdate,
	"updates":      EntityUpdate,
	"case_update":  EntityUpdate,
	"case_updates": EntityUpdate,

	"activity":   EntityActivity,
	"activities": EntityActivity,
	"event":      EntityActivity,
	"events":     EntityActivity,

	"time_entry":   EntityTimeEntry,
	"time_entries": EntityTimeEntry,
	"timeentry":    EntityTimeEntry,
	"timeentries":  EntityTimeEntry,

	"expense":  EntityExpense,
	"expenses": EntityExpense,

	"budget_adjustment":  EntityBudgetAdjustment,
	"budget_adjustments": EntityBudgetAdjustment,

	"budget":  EntityBudget,
	"budgets": EntityBudget,
}

// CanonicalEntityType resolves an external entity type spelling to its
// canonical form. It is the single adapter between source-parser naming
// and the engine; nothing else in the engine consults alias tables.
func CanonicalEntityType(s string) (EntityType, bool) {
	e, ok := entityAliases[strings.ToLower(strings.TrimSpace(s))]
	return e, ok
}

// ImportOrder is the fixed dependency order for entity processing. Every
// cross-entity reference must point at an earlier slot (or at rows
// committed before the batch). Budget comes last: it mutates case rows
// after all budget adjustments have been applied.
var ImportOrder = []EntityType{
	EntityClient,
	EntityContact,
	EntityCase,
	EntitySubject,
	EntityUpdate,
	EntityActivity,
	EntityTimeEntry,
	EntityExpense,
	EntityBudgetAdjustment,
	EntityBudget,
}

// EntitySpec describes where one entity category persists and which
// columns the resolver may populate.
type EntitySpec struct {
	Table   string
	Columns []string
}

// Catalog is the immutable entity configuration handed to the
// coordinator: processing order plus per-entity table and column sets.
type Catalog struct {
	order []EntityType
	specs map[EntityType]EntitySpec
}

// DefaultCatalog builds the engine's entity catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		order: ImportOrder,
		specs: map[EntityType]EntitySpec{
			EntityClient: {
				Table: "clients",
				Columns: []string{
					"name", "address", "city", "state", "zip",
					"phone", "email", "notes",
				},
			},
			EntityContact: {
				Table: "contacts",
				Columns: []string{
					"client_id", "first_name", "last_name", "title",
					"phone", "email", "notes",
				},
			},
			EntityCase: {
				Table: "cases",
				Columns: []string{
					"client_id", "contact_id", "parent_case_id",
					"case_manager_id", "investigator_ids",
					"case_number", "title", "case_type", "status",
					"description", "opened_at", "closed_at",
					"budget_amount", "budget_hours",
				},
			},
			EntitySubject: {
				Table: "subjects",
				Columns: []string{
					"case_id", "first_name", "last_name", "subject_type",
					"date_of_birth", "address", "city", "state", "zip",
					"notes",
				},
			},
			EntityUpdate: {
				Table: "case_updates",
				Columns: []string{
					"case_id", "subject_id", "update_type", "title",
					"body", "created_by_id", "occurred_at",
				},
			},
			EntityActivity: {
				Table: "activities",
				Columns: []string{
					"case_id", "subject_id", "activity_type", "title",
					"description", "assigned_to_id", "created_by_id",
					"scheduled_at", "completed_at",
				},
			},
			EntityTimeEntry: {
				Table: "time_entries",
				Columns: []string{
					"case_id", "activity_id", "user_id", "hours",
					"rate", "description", "entered_at",
				},
			},
			EntityExpense: {
				Table: "expenses",
				Columns: []string{
					"case_id", "activity_id", "user_id", "amount",
					"category", "description", "incurred_at",
				},
			},
			EntityBudgetAdjustment: {
				Table: "budget_adjustments",
				Columns: []string{
					"case_id", "amount", "hours", "reason",
					"created_by_id", "effective_at",
				},
			},
			// The budget pseudo-entity writes to the cases table.
			EntityBudget: {
				Table: "cases",
				Columns: []string{
					"case_id", "budget_amount", "budget_hours",
				},
			},
		},
	}
}

// Order returns the processing order. Callers must not modify it.
func (c *Catalog) Order() []EntityType {
	return c.order
}

// Spec returns the table/column spec for an entity type.
func (c *Catalog) Spec(e EntityType) (EntitySpec, bool) {
	s, ok := c.specs[e]
	return s, ok
}

// Table returns the table name for an entity type, or "" if unknown.
func (c *Catalog) Table(e EntityType) string {
	return c.specs[e].Table
}

// AllowsColumn reports whether the resolver may populate a column for
// the given entity type.
func (s EntitySpec) AllowsColumn(name string) bool {
	for _, col := range s.Columns {
		if col == name {
			return true
		}
	}
	return false
}
