package services

import (
	"context"

	"shopfront/internal/domain"
)

type CategoryLister interface {
	List(ctx context.Context) ([]domain.Category, error)
}

type CategoryService struct {
	Cats CategoryLister
}

func NewCategoryService(cats CategoryLister) *CategoryService {
	return &CategoryService{Cats: cats}
}

// Forest returns the root categories with their subtrees attached.
func (s *CategoryService) Forest(ctx context.Context) ([]*domain.Category, error) {
	rows, err := s.Cats.List(ctx)
	if err != nil {
		return nil, err
	}
	f := buildForest(rows)
	return f.roots, nil
}

// Get returns the category with its descendants, ok=false when absent.
func (s *CategoryService) Get(ctx context.Context, id int64) (*domain.Category, bool, error) {
	rows, err := s.Cats.List(ctx)
	if err != nil {
		return nil, false, err
	}
	f := buildForest(rows)
	i, ok := f.index[id]
	if !ok {
		return nil, false, nil
	}
	return &f.nodes[i], true, nil
}

type forest struct {
	nodes []domain.Category // arena, never resized after build
	index map[int64]int     // id -> arena slot
	roots []*domain.Category
}

// buildForest links flat rows into trees without recursion. A row whose
// parent is missing (or is itself) becomes a root. Nodes caught in a cycle
// that no root reaches are promoted to roots at the first member in row
// order, so every row appears exactly once.
func buildForest(rows []domain.Category) forest {
	f := forest{
		nodes: make([]domain.Category, len(rows)),
		index: make(map[int64]int, len(rows)),
		roots: []*domain.Category{},
	}
	for i, r := range rows {
		r.Children = []*domain.Category{}
		f.nodes[i] = r
		f.index[r.ID] = i
	}

	children := make(map[int64][]int, len(rows))
	var roots []int
	for i, n := range f.nodes {
		if n.ParentID == nil || *n.ParentID == n.ID {
			roots = append(roots, i)
			continue
		}
		if _, ok := f.index[*n.ParentID]; !ok {
			roots = append(roots, i)
			continue
		}
		children[*n.ParentID] = append(children[*n.ParentID], i)
	}

	visited := make([]bool, len(f.nodes))
	walk := func(root int) {
		visited[root] = true
		f.roots = append(f.roots, &f.nodes[root])
		stack := []int{root}
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			parent := &f.nodes[i]
			for _, c := range children[parent.ID] {
				if visited[c] {
					continue
				}
				visited[c] = true
				parent.Children = append(parent.Children, &f.nodes[c])
				stack = append(stack, c)
			}
		}
	}
	for _, r := range roots {
		if !visited[r] {
			walk(r)
		}
	}
	for i := range f.nodes {
		if !visited[i] {
			walk(i)
		}
	}
	return f
}
