package models

import (
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Table is an ordered grid of cell values. Row 0 is the header, remaining
// rows are data rows. Rows may be ragged until width-normalized.
type Table [][]string

// Header returns the header row, or nil for an empty table.
func (t Table) Header() []string {
	if len(t) == 0 {
		return nil
	}
	return t[0]
}

// DataRows returns every row after the header.
func (t Table) DataRows() [][]string {
	if len(t) < 2 {
		return nil
	}
	return t[1:]
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for i, row := range t {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// File represents a Drive file or folder.
type File struct {
	ID       string
	Name     string
	MimeType string
	IsFolder bool
}

// SheetInfo represents one tab of a spreadsheet.
type SheetInfo struct {
	SheetID int64
	Title   string
}
