package web

import (
	"github.com/metalagman/neuroplan/internal/task"
)

// Node is one task in the node-link view.
type Node struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	IsCentral   bool   `json:"isCentral"`
	Val         int    `json:"val"`
	ParentID    string `json:"parent_id,omitempty"`
}

// Link is one parent edge; source is the child, target the parent.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Graph is the snapshot consumed by the browser view.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// BuildGraph derives the node-link structure from a task snapshot. Edges
// are emitted only when the parent is present in the snapshot.
func BuildGraph(tasks []task.Task, centralID string) Graph {
	present := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		present[t.ID] = true
	}

	graph := Graph{Nodes: []Node{}, Links: []Link{}}
	for _, t := range tasks {
		node := Node{
			ID:          t.ID,
			Title:       t.Title,
			Author:      t.Author,
			Description: t.Description,
			Status:      string(t.Status),
			CreatedAt:   t.CreatedAt.Format("2006-01-02 15:04"),
			IsCentral:   t.ID == centralID,
			Val:         15,
			ParentID:    t.ParentID,
		}
		if node.Author == "" {
			node.Author = "Unknown"
		}
		if node.Description == "" {
			node.Description = "No description available."
		}
		if node.IsCentral {
			node.Val = 50
		}
		graph.Nodes = append(graph.Nodes, node)

		if t.ParentID != "" && present[t.ParentID] {
			graph.Links = append(graph.Links, Link{Source: t.ID, Target: t.ParentID, Type: "parent"})
		}
	}
	return graph
}
