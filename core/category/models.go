package category

import (
	"sort"
	"time"

	"github.com/udemo/academy/core"
)

type Category struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	ParentID        *int64    `json:"parent_id"`
	CourseCount     int       `json:"course_count"`
	EnrollmentCount int       `json:"enrollment_count"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

func (c Category) IsRoot() bool { return c.ParentID == nil }

// Node is a root category with its direct children.
type Node struct {
	Category
	Children []Category `json:"children"`
}

type NewCategory struct {
	Name     string `json:"name" form:"name" validate:"required,notblank,max=100"`
	ParentID *int64 `json:"parent_id" form:"parent_id"`
}

func (nc *NewCategory) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	if nc.ParentID != nil && *nc.ParentID == 0 {
		nc.ParentID = nil
	}
	return core.Validate.Struct(nc)
}

type UpdateCategory = NewCategory

// ExpandIDs expands each requested id to itself plus its direct children.
// Grandchildren are not included. Unknown ids are kept as-is and duplicates
// are dropped, preserving the order of first appearance.
func ExpandIDs(requested []int64, all []Category) []int64 {
	if len(requested) == 0 {
		return nil
	}

	children := make(map[int64][]int64)
	for _, c := range all {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}

	seen := make(map[int64]bool, len(requested))
	ids := make([]int64, 0, len(requested))
	add := func(id int64) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, id := range requested {
		add(id)
		for _, child := range children[id] {
			add(child)
		}
	}
	return ids
}

// BuildTree groups categories under their roots. Both levels are sorted by name;
// children of unknown parents are dropped.
func BuildTree(all []Category) []Node {
	idx := make(map[int64]int)
	nodes := make([]Node, 0)
	for _, c := range all {
		if c.IsRoot() {
			idx[c.ID] = len(nodes)
			nodes = append(nodes, Node{Category: c, Children: []Category{}})
		}
	}
	for _, c := range all {
		if c.IsRoot() {
			continue
		}
		if i, ok := idx[*c.ParentID]; ok {
			nodes[i].Children = append(nodes[i].Children, c)
		}
	}

	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	for _, n := range nodes {
		children := n.Children
		sort.SliceStable(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	}
	return nodes
}
