package service

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"

	"day-organiser/internal/model"
)

const groupIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GroupInput represents data required to create a group. Empty optional
// fields are left out of the stored group.
type GroupInput struct {
	Name                string
	Color               string
	Icon                string
	ParentID            string
	ShareSubgroups      bool
	HideTasksFromParent bool
}

// GroupPatch lists group fields to merge. ParentID pointing at "" makes the group a root.
type GroupPatch struct {
	Name                *string
	Color               *string
	Icon                *string
	ParentID            *string
	ShareSubgroups      *bool
	HideTasksFromParent *bool
}

// DeleteGroupResult reports what a group delete touched.
type DeleteGroupResult struct {
	GroupHasTasks bool
}

// GroupNode is one node of the group tree.
type GroupNode struct {
	Group    *model.Group
	Children []*GroupNode
}

// GroupService manages the group forest of an organiser.
type GroupService struct {
	data   *model.OrganiserData
	now    func() time.Time
	random func(n int) string
}

func NewGroupService(data *model.OrganiserData) *GroupService {
	return &GroupService{data: data, now: time.Now, random: randomSuffix}
}

// AddGroup appends a new group.
func (s *GroupService) AddGroup(input GroupInput) *model.Group {
	now := s.now()
	g := &model.Group{
		ID:                  s.groupID(input.Name, now),
		Name:                input.Name,
		Color:               input.Color,
		Icon:                input.Icon,
		ShareSubgroups:      input.ShareSubgroups,
		HideTasksFromParent: input.HideTasksFromParent,
		CreatedAt:           now.UTC().Format(isoLayout),
	}
	if input.ParentID != "" {
		parent := input.ParentID
		g.ParentID = &parent
	}
	s.data.Groups = append(s.data.Groups, g)
	return g
}

// Resolve matches a group by id first, then by case-insensitive name.
func (s *GroupService) Resolve(ref string) *model.Group {
	ref = strings.TrimSpace(ref)
	if g := s.data.FindGroup(ref); g != nil {
		return g
	}
	for _, g := range s.data.Groups {
		if strings.EqualFold(strings.TrimSpace(g.Name), ref) {
			return g
		}
	}
	return nil
}

// groupID is the lowercase initials of the name, six random characters and DDMMYY.
func (s *GroupService) groupID(name string, now time.Time) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r := []rune(word)[0]
		b.WriteRune(unicode.ToLower(r))
	}
	b.WriteString(s.random(6))
	b.WriteString(now.Format("020106"))
	return b.String()
}

func randomSuffix(n int) string {
	out := make([]byte, n)
	limit := big.NewInt(int64(len(groupIDAlphabet)))
	for i := range out {
		v, err := rand.Int(rand.Reader, limit)
		if err != nil {
			out[i] = groupIDAlphabet[i%len(groupIDAlphabet)]
			continue
		}
		out[i] = groupIDAlphabet[v.Int64()]
	}
	return string(out)
}

// UpdateGroup merges patch into the group with id.
func (s *GroupService) UpdateGroup(id string, patch GroupPatch) (*model.Group, error) {
	g := s.data.FindGroup(id)
	if g == nil {
		return nil, errors.Wrapf(ErrGroupNotFound, "update group %s", id)
	}
	if patch.ParentID != nil && *patch.ParentID != "" && s.wouldCycle(id, *patch.ParentID) {
		return nil, errors.Errorf("update group %s: parent %s is inside its subtree", id, *patch.ParentID)
	}

	if patch.Name != nil {
		g.Name = *patch.Name
	}
	if patch.Color != nil {
		g.Color = *patch.Color
	}
	if patch.Icon != nil {
		g.Icon = *patch.Icon
	}
	if patch.ParentID != nil {
		if *patch.ParentID == "" {
			g.ParentID = nil
		} else {
			parent := *patch.ParentID
			g.ParentID = &parent
		}
	}
	if patch.ShareSubgroups != nil {
		g.ShareSubgroups = *patch.ShareSubgroups
	}
	if patch.HideTasksFromParent != nil {
		g.HideTasksFromParent = *patch.HideTasksFromParent
	}
	return g, nil
}

// wouldCycle reports whether parenting id under parent creates a loop.
func (s *GroupService) wouldCycle(id, parent string) bool {
	seen := map[string]bool{}
	for cur := parent; cur != ""; {
		if cur == id || seen[cur] {
			return true
		}
		seen[cur] = true
		g := s.data.FindGroup(cur)
		if g == nil {
			return false
		}
		cur = g.Parent()
	}
	return false
}

// DeleteGroup removes a group, strips it from every task and moves its
// children up to its own parent.
func (s *GroupService) DeleteGroup(id string) (DeleteGroupResult, error) {
	target := s.data.FindGroup(id)
	if target == nil {
		return DeleteGroupResult{}, errors.Wrapf(ErrGroupNotFound, "delete group %s", id)
	}

	var res DeleteGroupResult
	for _, day := range s.data.Days {
		for _, t := range day.Tasks {
			if t.GroupID == id {
				res.GroupHasTasks = true
				t.GroupID = ""
			}
		}
	}

	kept := s.data.Groups[:0]
	for _, g := range s.data.Groups {
		if g.ID != id {
			kept = append(kept, g)
		}
	}
	s.data.Groups = kept

	for _, g := range s.data.Groups {
		if g.Parent() != id {
			continue
		}
		if target.ParentID == nil {
			g.ParentID = nil
		} else {
			parent := *target.ParentID
			g.ParentID = &parent
		}
	}
	return res, nil
}

// BuildGroupTree links the flat group list into a forest. Groups whose parent is
// missing, or whose ancestry loops back to themselves, become roots.
func BuildGroupTree(groups []*model.Group) []*GroupNode {
	nodes := make(map[string]*GroupNode, len(groups))
	byID := make(map[string]*model.Group, len(groups))
	for _, g := range groups {
		nodes[g.ID] = &GroupNode{Group: g}
		byID[g.ID] = g
	}

	var roots []*GroupNode
	for _, g := range groups {
		node := nodes[g.ID]
		parent := g.Parent()
		pn, ok := nodes[parent]
		if parent == "" || !ok || loopsBack(byID, g.ID) {
			roots = append(roots, node)
			continue
		}
		pn.Children = append(pn.Children, node)
	}
	return roots
}

func loopsBack(byID map[string]*model.Group, id string) bool {
	seen := map[string]bool{id: true}
	cur := byID[id].Parent()
	for cur != "" {
		if seen[cur] {
			return cur == id
		}
		seen[cur] = true
		g, ok := byID[cur]
		if !ok {
			return false
		}
		cur = g.Parent()
	}
	return false
}

// Descendants returns the ids of every group below id.
func Descendants(groups []*model.Group, id string) []string {
	children := map[string][]string{}
	for _, g := range groups {
		if p := g.Parent(); p != "" {
			children[p] = append(children[p], g.ID)
		}
	}
	var out []string
	seen := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range children[cur] {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}

// IsVisibleForActive decides whether tasks of candidate show while active is
// selected. An empty active means all groups. The walk goes from candidate up:
// at each step the child's hideTasksFromParent is checked before the parent's
// shareSubgroups.
func IsVisibleForActive(groups []*model.Group, active, candidate string) bool {
	return NewGroupVisibility(groups, active).Visible(candidate)
}

// GroupVisibility applies IsVisibleForActive to many candidates against one
// group list, indexing the groups once.
type GroupVisibility struct {
	active string
	byID   map[string]*model.Group
}

func NewGroupVisibility(groups []*model.Group, active string) GroupVisibility {
	v := GroupVisibility{active: active}
	if active == "" {
		return v
	}
	v.byID = make(map[string]*model.Group, len(groups))
	for _, g := range groups {
		v.byID[g.ID] = g
	}
	return v
}

// Visible reports whether tasks of candidate show under the active group.
func (v GroupVisibility) Visible(candidate string) bool {
	if v.active == "" || candidate == v.active {
		return true
	}
	if candidate == "" {
		return false
	}

	seen := map[string]bool{}
	for cur := candidate; !seen[cur]; {
		seen[cur] = true
		g, ok := v.byID[cur]
		if !ok {
			return false
		}
		parent := g.Parent()
		if parent == "" || g.HideTasksFromParent {
			return false
		}
		if parent == v.active {
			return true
		}
		pg, ok := v.byID[parent]
		if !ok || !pg.ShareSubgroups {
			return false
		}
		cur = parent
	}
	return false
}
