// Package rbac answers capability questions ("canPublish", "canComment",
// ...) instead of letting callers inspect role names directly (spec.md §9:
// "introduce a capability layer that answers boolean questions ... handlers
// call these and never inspect role names directly"). DMS_Admin is a
// superset capability: every can* function treats it as an automatic yes.
package rbac

import "github.com/pharmadocs/dmsd/internal/store"

func isAdmin(p *store.Principal) bool {
	return p.HasRole(store.RoleAdmin)
}

// CanSubmit reports whether p may submit doc's owning draft for review.
// Requires Author ownership or Admin.
func CanSubmit(p *store.Principal, doc *store.Document) bool {
	if isAdmin(p) {
		return true
	}
	return p.HasRole(store.RoleAuthor) && p.ID == doc.OwnerID
}

// CanApproveReview reports whether p may move a version from Under Review
// to Pending Approval, or send it back to Draft via RequestChanges.
// Requires Reviewer or Admin; ownership is irrelevant for review capability.
func CanApproveReview(p *store.Principal) bool {
	return isAdmin(p) || p.HasRole(store.RoleReviewer)
}

// CanApprove reports whether p may move a version from Pending Approval to
// Approved, or reject it back to Draft. Requires Approver or Admin.
func CanApprove(p *store.Principal) bool {
	return isAdmin(p) || p.HasRole(store.RoleApprover)
}

// CanPublish reports whether p may move an Approved version to Effective.
// Admin only.
func CanPublish(p *store.Principal) bool {
	return isAdmin(p)
}

// CanArchive reports whether p may move an Effective or Obsolete version to
// Archived. Admin only.
func CanArchive(p *store.Principal) bool {
	return isAdmin(p)
}

// CanEditDraft reports whether p may acquire the edit lock or edit draft
// metadata on doc. Requires Author ownership or Admin.
func CanEditDraft(p *store.Principal, doc *store.Document) bool {
	if isAdmin(p) {
		return true
	}
	return p.HasRole(store.RoleAuthor) && p.ID == doc.OwnerID
}

// CanComment reports whether p may add a comment on a non-Draft version.
// True iff p holds Reviewer, Approver, or DMS_Admin, regardless of whether
// the version is currently in that role's stage.
func CanComment(p *store.Principal) bool {
	return isAdmin(p) || p.HasRole(store.RoleReviewer) || p.HasRole(store.RoleApprover)
}

// CanCommentOnDraft reports whether p may comment on a Draft version they
// are editing. Only an Admin editing their own draft may; a Reviewer may
// not comment on a Draft at all.
func CanCommentOnDraft(p *store.Principal, doc *store.Document) bool {
	return isAdmin(p) && p.ID == doc.OwnerID
}

// CanEditComment reports whether p may edit or delete an existing comment.
// The comment's author and any DMS_Admin may.
func CanEditComment(p *store.Principal, commentAuthorID string) bool {
	return isAdmin(p) || p.ID == commentAuthorID
}

// CanResolveComment reports whether p may resolve or unresolve a comment.
// Any commenting-capable principal may.
func CanResolveComment(p *store.Principal) bool {
	return CanComment(p)
}

// CanCreateDocument reports whether p may create a new document. Any
// Author or Admin may; Reviewer/Approver-only principals may not originate
// documents.
func CanCreateDocument(p *store.Principal) bool {
	return isAdmin(p) || p.HasRole(store.RoleAuthor)
}

// CanManagePrincipals reports whether p may create, deactivate, or
// reassign roles on other principals. Admin only.
func CanManagePrincipals(p *store.Principal) bool {
	return isAdmin(p)
}
