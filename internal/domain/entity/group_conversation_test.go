package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialdm/pkg/errors"
)

func newGroup(t *testing.T, members ...string) *GroupConversation {
	t.Helper()
	g, err := NewGroupConversation("g1", profile("creator"), "Weekend plans", members, t0)
	require.NoError(t, err)
	return g
}

func TestNewGroupConversationSeedsCreator(t *testing.T) {
	g, err := NewGroupConversation("g1", profile("creator"), "  Weekend  ", []string{"d", "creator", "d", ""}, t0)
	require.NoError(t, err)

	assert.Equal(t, "Weekend", g.GroupName)
	assert.Equal(t, []string{"creator", "d"}, g.Participants)
	assert.Equal(t, []string{"creator"}, g.Admins)
	assert.True(t, g.ParticipantDetails["creator"].IsAdmin)
	assert.Equal(t, "User creator", g.ParticipantDetails["creator"].DisplayName)
	assert.Empty(t, g.ParticipantDetails["d"].DisplayName)
	assert.Equal(t, 0, g.UnreadCount["d"])
	require.NoError(t, g.CheckGroupInvariants())
}

func TestNewGroupConversationRequiresName(t *testing.T) {
	_, err := NewGroupConversation("g1", profile("creator"), "   ", nil, t0)
	assert.True(t, errors.Is(err, errors.CodeBadRequest))
}

func TestAddParticipantDirect(t *testing.T) {
	g := newGroup(t, "member")

	pending, err := g.AddParticipant("member", profile("new"), t0)
	require.NoError(t, err)
	assert.False(t, pending)
	assert.True(t, g.HasParticipant("new"))
	assert.Equal(t, 0, g.UnreadCount["new"])
	require.NoError(t, g.CheckGroupInvariants())

	_, err = g.AddParticipant("member", profile("new"), t0)
	assert.True(t, errors.Is(err, errors.CodeInvalidState))

	_, err = g.AddParticipant("outsider", profile("other"), t0)
	assert.True(t, errors.Is(err, errors.CodeForbidden))
}

func TestApprovalWorkflow(t *testing.T) {
	g := newGroup(t, "member")
	require.NoError(t, g.SetRequireApproval("creator", true))

	pending, err := g.AddParticipant("member", profile("f"), t0)
	require.NoError(t, err)
	assert.True(t, pending)
	assert.False(t, g.HasParticipant("f"))
	require.Len(t, g.PendingRequests, 1)
	assert.Equal(t, "f", g.PendingRequests[0].UserID)

	_, err = g.AddParticipant("member", profile("f"), t0)
	assert.True(t, errors.Is(err, errors.CodeInvalidState))

	err = g.ApproveJoinRequest("member", "f", t0)
	assert.True(t, errors.Is(err, errors.CodeForbidden))
	assert.Len(t, g.PendingRequests, 1)

	require.NoError(t, g.ApproveJoinRequest("creator", "f", t0))
	assert.True(t, g.HasParticipant("f"))
	assert.Empty(t, g.PendingRequests)
	assert.Equal(t, "User f", g.ParticipantDetails["f"].DisplayName)
	require.NoError(t, g.CheckGroupInvariants())

	err = g.ApproveJoinRequest("creator", "f", t0)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestAdminAddBypassesApproval(t *testing.T) {
	g := newGroup(t)
	require.NoError(t, g.SetRequireApproval("creator", true))

	pending, err := g.AddParticipant("creator", profile("x"), t0)
	require.NoError(t, err)
	assert.False(t, pending)
	assert.True(t, g.HasParticipant("x"))
}

func TestAdminAddConsumesPendingRequest(t *testing.T) {
	g := newGroup(t, "member")
	require.NoError(t, g.SetRequireApproval("creator", true))

	pending, err := g.AddParticipant("member", profile("carol"), t0)
	require.NoError(t, err)
	require.True(t, pending)

	pending, err = g.AddParticipant("creator", profile("carol"), t0)
	require.NoError(t, err)
	assert.False(t, pending)
	assert.True(t, g.HasParticipant("carol"))
	assert.Empty(t, g.PendingRequests)
	require.NoError(t, g.CheckGroupInvariants())
}

func TestAddWithoutApprovalConsumesPendingRequest(t *testing.T) {
	g := newGroup(t, "member")
	require.NoError(t, g.SetRequireApproval("creator", true))
	_, err := g.AddParticipant("member", profile("carol"), t0)
	require.NoError(t, err)
	require.NoError(t, g.SetRequireApproval("creator", false))

	pending, err := g.AddParticipant("member", profile("carol"), t0)
	require.NoError(t, err)
	assert.False(t, pending)
	assert.True(t, g.HasParticipant("carol"))
	assert.Empty(t, g.PendingRequests)
}

func TestRejectJoinRequest(t *testing.T) {
	g := newGroup(t, "member")
	g.RequireApproval = true
	_, err := g.AddParticipant("member", profile("x"), t0)
	require.NoError(t, err)

	require.NoError(t, g.RejectJoinRequest("creator", "x"))
	assert.Empty(t, g.PendingRequests)
	assert.False(t, g.HasParticipant("x"))
}

func TestRequestJoinViaInvite(t *testing.T) {
	g := newGroup(t)

	pending, err := g.RequestJoin(profile("open"), t0)
	require.NoError(t, err)
	assert.False(t, pending)
	assert.True(t, g.HasParticipant("open"))

	g.RequireApproval = true
	pending, err = g.RequestJoin(profile("gated"), t0)
	require.NoError(t, err)
	assert.True(t, pending)
	assert.False(t, g.HasParticipant("gated"))

	_, err = g.RequestJoin(profile("open"), t0)
	assert.True(t, errors.Is(err, errors.CodeInvalidState))
}

func TestToggleApprovalKeepsPendingRequests(t *testing.T) {
	g := newGroup(t, "member")
	g.RequireApproval = true
	_, err := g.AddParticipant("member", profile("x"), t0)
	require.NoError(t, err)

	require.NoError(t, g.SetRequireApproval("creator", false))
	assert.Len(t, g.PendingRequests, 1)
}

func TestCreatorImmutability(t *testing.T) {
	g := newGroup(t, "admin2")
	require.NoError(t, g.MakeAdmin("creator", "admin2"))

	err := g.RemoveParticipant("admin2", "creator")
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	err = g.Leave("creator")
	assert.True(t, errors.Is(err, errors.CodeInvalidState))

	err = g.RemoveAdmin("creator", "creator")
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	assert.True(t, g.HasParticipant("creator"))
	assert.True(t, g.IsAdmin("creator"))
}

func TestAdminGatingLeavesGroupUnchanged(t *testing.T) {
	g := newGroup(t, "member", "other")
	before := g.Document()

	assert.True(t, errors.Is(g.MakeAdmin("member", "other"), errors.CodeForbidden))
	assert.True(t, errors.Is(g.RemoveAdmin("member", "other"), errors.CodeForbidden))
	assert.True(t, errors.Is(g.RemoveParticipant("member", "other"), errors.CodeForbidden))
	assert.True(t, errors.Is(g.SetRequireApproval("member", true), errors.CodeForbidden))
	name := "Hijacked"
	assert.True(t, errors.Is(g.UpdateDetails("member", &name, nil), errors.CodeForbidden))

	assert.Equal(t, before, g.Document())
}

func TestRemoveParticipantDropsAdminRole(t *testing.T) {
	g := newGroup(t, "admin2")
	require.NoError(t, g.MakeAdmin("creator", "admin2"))
	assert.True(t, g.ParticipantDetails["admin2"].IsAdmin)

	require.NoError(t, g.RemoveParticipant("creator", "admin2"))
	assert.False(t, g.HasParticipant("admin2"))
	assert.False(t, g.IsAdmin("admin2"))
	require.NoError(t, g.CheckGroupInvariants())

	err := g.RemoveParticipant("creator", "admin2")
	assert.True(t, errors.Is(err, errors.CodeInvalidState))
}

func TestLeave(t *testing.T) {
	g := newGroup(t, "member")
	g.SetArchived("member", true)

	require.NoError(t, g.Leave("member"))
	assert.False(t, g.HasParticipant("member"))
	assert.False(t, g.IsArchivedBy("member"))
	require.NoError(t, g.CheckGroupInvariants())

	assert.True(t, errors.Is(g.Leave("member"), errors.CodeInvalidState))
}

func TestMakeAndRemoveAdmin(t *testing.T) {
	g := newGroup(t, "member")

	assert.True(t, errors.Is(g.MakeAdmin("creator", "ghost"), errors.CodeInvalidState))
	require.NoError(t, g.MakeAdmin("creator", "member"))
	assert.True(t, errors.Is(g.MakeAdmin("creator", "member"), errors.CodeInvalidState))

	g2 := newGroup(t, "member", "other")
	require.NoError(t, g2.MakeAdmin("creator", "member"))
	require.NoError(t, g2.MakeAdmin("member", "other"))

	// only the creator demotes
	assert.True(t, errors.Is(g2.RemoveAdmin("member", "other"), errors.CodeForbidden))
	require.NoError(t, g2.RemoveAdmin("creator", "other"))
	assert.False(t, g2.IsAdmin("other"))
	assert.False(t, g2.ParticipantDetails["other"].IsAdmin)
	assert.True(t, errors.Is(g2.RemoveAdmin("creator", "other"), errors.CodeInvalidState))
}

func TestUpdateDetails(t *testing.T) {
	g := newGroup(t)
	name, photo := " Renamed ", "https://cdn.example.com/g.png"

	require.NoError(t, g.UpdateDetails("creator", &name, &photo))
	assert.Equal(t, "Renamed", g.GroupName)
	assert.Equal(t, photo, g.GroupPhoto)

	empty := ""
	assert.True(t, errors.Is(g.UpdateDetails("creator", &empty, nil), errors.CodeBadRequest))
	assert.Equal(t, "Renamed", g.GroupName)
}
