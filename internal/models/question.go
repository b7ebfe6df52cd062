package models

// Category distinguishes the two benchmark tracks.
type Category string

const (
	CategorySolvable   Category = "solvable"
	CategoryUnsolvable Category = "unsolvable"
)

// Question is one dataset record. Payload interpretation is category specific
// and happens when the question is consumed.
type Question struct {
	ID      string         `json:"id"`
	Payload map[string]any `json:"payload"`
}

// SolvableFields are the fields a solvable question must carry.
type SolvableFields struct {
	Question   string `mapstructure:"question"`
	TrueAnswer string `mapstructure:"answer"`
}

// UnsolvableFields are the fields an unsolvable question must carry.
type UnsolvableFields struct {
	Question string `mapstructure:"question"`
}
