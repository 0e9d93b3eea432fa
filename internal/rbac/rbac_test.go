package rbac_test

import (
	"testing"

	"github.com/pharmadocs/dmsd/internal/rbac"
	"github.com/pharmadocs/dmsd/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestCanSubmit(t *testing.T) {
	owner := &store.Principal{ID: "p1", Roles: []store.Role{store.RoleAuthor}}
	other := &store.Principal{ID: "p2", Roles: []store.Role{store.RoleAuthor}}
	admin := &store.Principal{ID: "p3", Roles: []store.Role{store.RoleAdmin}}
	doc := &store.Document{OwnerID: "p1"}

	assert.True(t, rbac.CanSubmit(owner, doc))
	assert.False(t, rbac.CanSubmit(other, doc))
	assert.True(t, rbac.CanSubmit(admin, doc))
}

func TestCanComment(t *testing.T) {
	reviewer := &store.Principal{Roles: []store.Role{store.RoleReviewer}}
	approver := &store.Principal{Roles: []store.Role{store.RoleApprover}}
	author := &store.Principal{Roles: []store.Role{store.RoleAuthor}}
	admin := &store.Principal{Roles: []store.Role{store.RoleAdmin}}

	assert.True(t, rbac.CanComment(reviewer))
	assert.True(t, rbac.CanComment(approver))
	assert.False(t, rbac.CanComment(author))
	assert.True(t, rbac.CanComment(admin))
}

func TestCanCommentOnDraft(t *testing.T) {
	owner := "p1"
	doc := &store.Document{OwnerID: owner}
	adminOwner := &store.Principal{ID: "p1", Roles: []store.Role{store.RoleAdmin}}
	adminOther := &store.Principal{ID: "p9", Roles: []store.Role{store.RoleAdmin}}
	reviewer := &store.Principal{ID: "p1", Roles: []store.Role{store.RoleReviewer}}

	assert.True(t, rbac.CanCommentOnDraft(adminOwner, doc))
	assert.False(t, rbac.CanCommentOnDraft(adminOther, doc))
	assert.False(t, rbac.CanCommentOnDraft(reviewer, doc))
}

func TestCanPublishAndArchiveAreAdminOnly(t *testing.T) {
	admin := &store.Principal{Roles: []store.Role{store.RoleAdmin}}
	approver := &store.Principal{Roles: []store.Role{store.RoleApprover}}

	assert.True(t, rbac.CanPublish(admin))
	assert.False(t, rbac.CanPublish(approver))
	assert.True(t, rbac.CanArchive(admin))
	assert.False(t, rbac.CanArchive(approver))
}

func TestCanEditComment(t *testing.T) {
	admin := &store.Principal{ID: "p3", Roles: []store.Role{store.RoleAdmin}}
	author := &store.Principal{ID: "p1", Roles: []store.Role{store.RoleReviewer}}
	other := &store.Principal{ID: "p2", Roles: []store.Role{store.RoleReviewer}}

	assert.True(t, rbac.CanEditComment(author, "p1"))
	assert.False(t, rbac.CanEditComment(other, "p1"))
	assert.True(t, rbac.CanEditComment(admin, "p1"))
}
