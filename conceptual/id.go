package conceptual

// ExperienceID identifies one unit of AR content.
// It is the stable key shared by route data, anchors, and resolved placements.
type ExperienceID string

func (e ExperienceID) String() string {
	return string(e)
}

func (e ExperienceID) IsEmpty() bool {
	return e == ""
}
