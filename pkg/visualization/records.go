package visualization

// EntityRef is one endpoint of a relation record as delivered by the
// upstream data source.
type EntityRef struct {
	ID       string `json:"id" yaml:"id" validate:"required,max=128"`
	Name     string `json:"name" yaml:"name" validate:"max=256"`
	Status   string `json:"status" yaml:"status" validate:"max=64"`
	Category string `json:"category,omitempty" yaml:"category,omitempty" validate:"max=128"`
}

// RelationRecord is a single directed relationship between two entities.
type RelationRecord struct {
	ID          string    `json:"id" yaml:"id" validate:"max=128"`
	Kind        string    `json:"relationKind" yaml:"relationKind" validate:"required,max=64"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty" validate:"max=1024"`
	Source      EntityRef `json:"source" yaml:"source"`
	Target      EntityRef `json:"target" yaml:"target"`
}
