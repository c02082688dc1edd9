package model

// Group is a node in the group forest.
type Group struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Color               string  `json:"color,omitempty"`
	Icon                string  `json:"icon,omitempty"`
	ParentID            *string `json:"parentId,omitempty"`
	ShareSubgroups      bool    `json:"shareSubgroups,omitempty"`
	HideTasksFromParent bool    `json:"hideTasksFromParent,omitempty"`
	CreatedAt           string  `json:"createdAt,omitempty"`
}

// Parent returns the parent id or "" for a root.
func (g *Group) Parent() string {
	if g == nil || g.ParentID == nil {
		return ""
	}
	return *g.ParentID
}
