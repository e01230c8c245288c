package store

import "go.ngs.io/spherediff/internal/domain"

// FieldLoader is the interface for loading gridded fields from a dataset.
type FieldLoader interface {
	// LoadField reads a variable as a (time, depth, lat, lon) field with its grid and mask.
	LoadField(name string) (*domain.Variable, error)

	// DescribeField returns a variable's dimensions without reading its values.
	DescribeField(name string) (*domain.VariableInfo, error)
}

// FieldWriter is the interface for persisting computed fields.
type FieldWriter interface {
	// WriteFields writes outputs sharing one grid and mask to path.
	WriteFields(path string, grid *domain.Grid, mask domain.Mask, outputs []domain.Output) error
}
