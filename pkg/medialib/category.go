package medialib

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

func (s *service) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ParentID != nil {
		if _, err := s.repo.GetCategory(ctx, *req.ParentID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	cat := &Category{
		Name:        req.Name,
		NameAlt:     req.NameAlt,
		Slug:        req.Slug,
		Description: req.Description,
		Icon:        req.Icon,
		ParentID:    req.ParentID,
		OrderIndex:  req.OrderIndex,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if cat.NameAlt == "" {
		cat.NameAlt = cat.Name
	}
	if err := s.repo.CreateCategory(ctx, cat); err != nil {
		return nil, err
	}
	slog.Info("Category created", "category_id", cat.ID, "slug", cat.Slug)
	return cat, nil
}

func (s *service) GetCategory(ctx context.Context, id int64) (*Category, error) {
	return s.repo.GetCategory(ctx, id)
}

func (s *service) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	return s.repo.GetCategoryBySlug(ctx, slug)
}

func (s *service) ListCategories(ctx context.Context) ([]*Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *service) UpdateCategory(ctx context.Context, id int64, req UpdateCategoryRequest) (*Category, error) {
	cat, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, &ValidationError{Field: "name", Reason: "cannot be empty"}
		}
		cat.Name = *req.Name
	}
	if req.NameAlt != nil {
		cat.NameAlt = *req.NameAlt
	}
	if req.Slug != nil {
		if *req.Slug == "" {
			return nil, &ValidationError{Field: "slug", Reason: "cannot be empty"}
		}
		cat.Slug = *req.Slug
	}
	if req.Description != nil {
		cat.Description = *req.Description
	}
	if req.Icon != nil {
		cat.Icon = *req.Icon
	}
	if req.ParentID != nil {
		if err := s.checkParent(ctx, id, *req.ParentID); err != nil {
			return nil, err
		}
		cat.ParentID = *req.ParentID
	}
	if req.OrderIndex != nil {
		cat.OrderIndex = *req.OrderIndex
	}
	cat.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateCategory(ctx, cat); err != nil {
		return nil, err
	}
	slog.Info("Category updated", "category_id", id)
	return cat, nil
}

// checkParent rejects a re-parent that would make the hierarchy cyclic by
// walking the proposed parent's ancestor chain. Rejecting here keeps the
// stored hierarchy acyclic so readers only need a defensive guard.
func (s *service) checkParent(ctx context.Context, id int64, parentID *int64) error {
	if parentID == nil {
		return nil
	}
	seen := map[int64]bool{id: true}
	cur := parentID
	for cur != nil {
		if seen[*cur] {
			return ErrCategoryCycle
		}
		seen[*cur] = true
		parent, err := s.repo.GetCategory(ctx, *cur)
		if err != nil {
			return err
		}
		cur = parent.ParentID
	}
	return nil
}

func (s *service) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.repo.GetCategory(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	slog.Info("Category deleted", "category_id", id)
	return nil
}

// CategoryTree materializes the hierarchy in two passes: index every node,
// then attach children to parents. Nodes whose parent chain loops (possible
// only if bad data predates the write-time check) surface ErrCategoryCycle
// instead of hanging or silently dropping subtrees.
func (s *service) CategoryTree(ctx context.Context) ([]*CategoryNode, error) {
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	nodes := make(map[int64]*CategoryNode, len(cats))
	for _, c := range cats {
		nodes[c.ID] = &CategoryNode{Category: *c, Children: []*CategoryNode{}}
	}

	var roots []*CategoryNode
	for _, c := range cats {
		node := nodes[c.ID]
		if c.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*c.ParentID]
		if !ok {
			// Orphan (parent row gone); promote to root rather than hide it.
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	// Every node must be reachable from a root; a shortfall means a cycle
	// detached some subtree from the forest.
	if countNodes(roots) != len(cats) {
		return nil, ErrCategoryCycle
	}

	sortNodes(roots)
	return roots, nil
}

func countNodes(nodes []*CategoryNode) int {
	n := 0
	for _, node := range nodes {
		n += 1 + countNodes(node.Children)
	}
	return n
}

func sortNodes(nodes []*CategoryNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].OrderIndex != nodes[j].OrderIndex {
			return nodes[i].OrderIndex < nodes[j].OrderIndex
		}
		return nodes[i].Name < nodes[j].Name
	})
	for _, node := range nodes {
		sortNodes(node.Children)
	}
}
