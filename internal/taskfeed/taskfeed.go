// Package taskfeed projects documents into each principal's actionable
// queue (spec.md §4.7, C9). Priority is derived from current version state
// on every call; nothing here is denormalized or stored.
package taskfeed

import (
	"context"
	"fmt"

	"github.com/pharmadocs/dmsd/internal/store"
)

// Priority is the urgency a task surfaces with.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// TaskType names the action a Task represents.
type TaskType string

const (
	TaskReview      TaskType = "review"      // move Under Review forward
	TaskApprove     TaskType = "approve"     // move Pending Approval forward
	TaskPublish     TaskType = "publish"     // publish an Approved version
	TaskAddressedBy TaskType = "address"     // Author should act on a returned Draft
)

// Task is one actionable entry in a principal's feed.
type Task struct {
	Document string // document id
	Version  string // version id
	Type     TaskType
	Priority Priority
}

// Service computes task feeds, backed by a Store.
type Service struct {
	store store.Store
}

func New(s store.Store) *Service {
	return &Service{store: s}
}

// For returns the documents requiring principal's action (spec.md §4.7):
//   - Draft with unresolved comments outstanding from the latest review
//     cycle, surfaced to its owning Author as high priority (low otherwise).
//   - Under Review surfaces to every Reviewer as high.
//   - Pending Approval surfaces to every Approver as high.
//   - Approved surfaces to every DMS_Admin as medium (ready to publish).
func (s *Service) For(ctx context.Context, principal *store.Principal) ([]Task, error) {
	var tasks []Task

	if principal.HasRole(store.RoleAuthor) || principal.HasRole(store.RoleAdmin) {
		drafts, err := s.store.ListDocumentsByStatus(ctx, store.StatusDraft)
		if err != nil {
			return nil, fmt.Errorf("list drafts: %w", err)
		}
		for _, v := range drafts {
			doc, err := s.store.GetDocument(ctx, v.DocumentID)
			if err != nil {
				return nil, fmt.Errorf("load document %s: %w", v.DocumentID, err)
			}
			if doc.OwnerID != principal.ID {
				continue
			}
			priority := PriorityLow
			// The latest review cycle began at the latest submission.
			if v.SubmittedAt != nil {
				unresolved, err := s.store.CountUnresolvedSince(ctx, v.ID, *v.SubmittedAt)
				if err != nil {
					return nil, fmt.Errorf("count unresolved comments for %s: %w", v.ID, err)
				}
				if unresolved > 0 {
					priority = PriorityHigh
				}
			}
			tasks = append(tasks, Task{Document: doc.ID, Version: v.ID, Type: TaskAddressedBy, Priority: priority})
		}
	}

	if principal.HasRole(store.RoleReviewer) || principal.HasRole(store.RoleAdmin) {
		versions, err := s.store.ListDocumentsByStatus(ctx, store.StatusUnderReview)
		if err != nil {
			return nil, fmt.Errorf("list under review: %w", err)
		}
		for _, v := range versions {
			tasks = append(tasks, Task{Document: v.DocumentID, Version: v.ID, Type: TaskReview, Priority: PriorityHigh})
		}
	}

	if principal.HasRole(store.RoleApprover) || principal.HasRole(store.RoleAdmin) {
		versions, err := s.store.ListDocumentsByStatus(ctx, store.StatusPendingApproval)
		if err != nil {
			return nil, fmt.Errorf("list pending approval: %w", err)
		}
		for _, v := range versions {
			tasks = append(tasks, Task{Document: v.DocumentID, Version: v.ID, Type: TaskApprove, Priority: PriorityHigh})
		}
	}

	if principal.HasRole(store.RoleAdmin) {
		versions, err := s.store.ListDocumentsByStatus(ctx, store.StatusApproved)
		if err != nil {
			return nil, fmt.Errorf("list approved: %w", err)
		}
		for _, v := range versions {
			tasks = append(tasks, Task{Document: v.DocumentID, Version: v.ID, Type: TaskPublish, Priority: PriorityMedium})
		}
	}

	return tasks, nil
}
