package domain

// Variable is a field loaded from a dataset together with its grid and mask.
type Variable struct {
	Name   string
	Units  string
	Grid   *Grid
	Mask   Mask
	Values Field
}

// VariableInfo describes a dataset variable without its values.
type VariableInfo struct {
	Name       string   `json:"name"`
	Units      string   `json:"units,omitempty"`
	Dimensions []string `json:"dimensions"`
	Shape      []int    `json:"shape"`
}

// Output is a computed field ready to be persisted.
type Output struct {
	Name     string
	LongName string
	Units    string
	Values   Field
}
