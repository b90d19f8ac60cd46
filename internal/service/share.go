package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskshare/taskshare/internal/model"
	"github.com/taskshare/taskshare/internal/repository"
)

// Grant shares a list with another user, or changes the edit flag of an
// existing share. Only the owner may grant. Checks run in this order:
// list exists, actor owns it, grantee is not the owner, grantee exists.
func (s *TaskListService) Grant(ctx context.Context, owner *model.User, listID, granteeID string, canEdit bool) (*model.Share, error) {
	if owner == nil {
		return nil, ErrUnauthenticated
	}
	if granteeID == "" {
		return nil, invalid("user_id", "The user id field is required.")
	}

	list, err := s.load(ctx, listID)
	if err != nil {
		return nil, err
	}
	if !list.IsOwnedBy(owner.ID) {
		s.metrics.IncAccessDenied("share")
		return nil, ErrForbidden
	}
	if granteeID == list.OwnerID {
		return nil, ErrInvalidGrantee
	}
	if _, err := s.store.GetUserByID(ctx, granteeID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load grantee: %w", err)
	}

	ts := now()
	share := &model.Share{
		ID:         newID(),
		TaskListID: list.ID,
		UserID:     granteeID,
		CanEdit:    canEdit,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	if err := s.store.UpsertShare(ctx, share); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrTaskListNotFound):
			return nil, ErrTaskListNotFound
		}
		return nil, fmt.Errorf("upsert share: %w", err)
	}

	s.metrics.IncShareGranted()
	return share, nil
}

// Revoke removes the share of granteeID on a list. Only the owner may revoke.
func (s *TaskListService) Revoke(ctx context.Context, owner *model.User, listID, granteeID string) error {
	if owner == nil {
		return ErrUnauthenticated
	}

	list, err := s.load(ctx, listID)
	if err != nil {
		return err
	}
	if !list.IsOwnedBy(owner.ID) {
		s.metrics.IncAccessDenied("share")
		return ErrForbidden
	}

	if err := s.store.DeleteShare(ctx, list.ID, granteeID); err != nil {
		if errors.Is(err, repository.ErrShareNotFound) {
			return ErrShareNotFound
		}
		return fmt.Errorf("delete share: %w", err)
	}

	s.metrics.IncShareRevoked()
	return nil
}

// ListGrantees returns who a list is shared with, in grant order. Anyone
// who may view the list may see its grantees.
func (s *TaskListService) ListGrantees(ctx context.Context, user *model.User, listID string) ([]*model.Grantee, error) {
	list, err := s.Get(ctx, user, listID)
	if err != nil {
		return nil, err
	}

	shares, err := s.store.ListSharesForTaskList(ctx, list.ID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}

	ids := make([]string, 0, len(shares))
	for _, sh := range shares {
		ids = append(ids, sh.UserID)
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load grantees: %w", err)
	}

	out := make([]*model.Grantee, 0, len(shares))
	for _, sh := range shares {
		u, ok := users[sh.UserID]
		if !ok {
			continue
		}
		out = append(out, &model.Grantee{User: u.Public(), CanEdit: sh.CanEdit})
	}
	return out, nil
}

// ListSharedWithMe returns the lists shared with user, with the edit flag
// and the owner, in the order they were first shared. An empty result is
// not an error.
func (s *TaskListService) ListSharedWithMe(ctx context.Context, user *model.User) ([]*model.SharedTaskList, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}

	shares, err := s.store.ListSharesForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	if len(shares) == 0 {
		return []*model.SharedTaskList{}, nil
	}

	listIDs := make([]string, 0, len(shares))
	for _, sh := range shares {
		listIDs = append(listIDs, sh.TaskListID)
	}
	lists, err := s.store.GetTaskListsByIDs(ctx, listIDs)
	if err != nil {
		return nil, fmt.Errorf("load shared lists: %w", err)
	}

	ownerIDs := make([]string, 0, len(lists))
	seen := make(map[string]bool, len(lists))
	for _, l := range lists {
		if !seen[l.OwnerID] {
			seen[l.OwnerID] = true
			ownerIDs = append(ownerIDs, l.OwnerID)
		}
	}
	owners, err := s.store.GetUsersByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("load owners: %w", err)
	}

	out := make([]*model.SharedTaskList, 0, len(shares))
	for _, sh := range shares {
		// A list deleted between the two reads drops out.
		l, ok := lists[sh.TaskListID]
		if !ok {
			continue
		}
		out = append(out, &model.SharedTaskList{
			TaskList: *l,
			CanEdit:  sh.CanEdit,
			Owner:    owners[l.OwnerID].Public(),
		})
	}
	return out, nil
}
