package enums

type Category string

// Labels carry their chapter number as a prefix, so sorting them as strings
// yields chapter order.
const (
	CategoryTransition Category = "Chapter 1: The Transition (Student to Engineer)"
	CategoryReality    Category = "Chapter 2: Expectations vs. Reality"
	CategoryStrategy   Category = "Chapter 3: Career Strategy & Growth"
	CategoryWorkplace  Category = "Chapter 4: Workplace Dynamics & Ethics"

	// CategoryGeneral is assigned when no keyword set matches.
	CategoryGeneral Category = "Chapter 5: General Discussions & Advice"
)

// Categories lists every label in declared order.
var Categories = []Category{
	CategoryTransition,
	CategoryReality,
	CategoryStrategy,
	CategoryWorkplace,
	CategoryGeneral,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
