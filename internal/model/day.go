package model

// Day is one calendar bucket.
type Day struct {
	Date  string  `json:"date"`
	Tasks []*Task `json:"tasks"`
	Notes string  `json:"notes,omitempty"`
}

// OrganiserData is the aggregate root owned by one session.
type OrganiserData struct {
	Days         map[string]*Day `json:"days"`
	Groups       []*Group        `json:"groups"`
	LastModified string          `json:"lastModified,omitempty"`
}

// NewOrganiserData returns an empty aggregate.
func NewOrganiserData() *OrganiserData {
	return &OrganiserData{Days: map[string]*Day{}}
}

// Bucket returns the day for date, creating it when absent.
func (d *OrganiserData) Bucket(date string) *Day {
	if d.Days == nil {
		d.Days = map[string]*Day{}
	}
	day, ok := d.Days[date]
	if !ok {
		day = &Day{Date: date}
		d.Days[date] = day
	}
	return day
}

// FindGroup returns the group with id or nil.
func (d *OrganiserData) FindGroup(id string) *Group {
	for _, g := range d.Groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}
