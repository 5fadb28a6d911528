package entity

import (
	"strings"
	"time"

	"socialdm/pkg/errors"
)

// JoinRequest is a membership application waiting for an admin decision.
type JoinRequest struct {
	UserID      string    `json:"user_id" firestore:"userId"`
	DisplayName string    `json:"display_name" firestore:"displayName"`
	PhotoURL    string    `json:"photo_url" firestore:"photoURL"`
	Username    string    `json:"username" firestore:"username"`
	RequestedAt time.Time `json:"requested_at" firestore:"requestedAt"`
}

func (r JoinRequest) profile() UserProfile {
	return UserProfile{
		UserID:      r.UserID,
		DisplayName: r.DisplayName,
		PhotoURL:    r.PhotoURL,
		Username:    r.Username,
	}
}

// GroupConversation is a named conversation with admins. All membership
// transitions go through its methods; each checks its guard before touching
// any field, so a failed call leaves the group unchanged.
type GroupConversation struct {
	ConversationBase
	GroupName       string
	GroupPhoto      string
	CreatedBy       string
	Admins          []string
	RequireApproval bool
	PendingRequests []JoinRequest
}

func (g *GroupConversation) Base() *ConversationBase { return &g.ConversationBase }
func (g *GroupConversation) IsGroupChat() bool        { return true }

const MaxGroupNameLength = 100

// NewGroupConversation seeds a group with the creator as its only admin.
// Other members get placeholder details until their profile snapshot is
// refreshed.
func NewGroupConversation(id string, creator UserProfile, groupName string, participantIDs []string, now time.Time) (*GroupConversation, error) {
	name := strings.TrimSpace(groupName)
	if name == "" {
		return nil, errors.BadRequest("Group name is required", nil)
	}
	if len(name) > MaxGroupNameLength {
		return nil, errors.BadRequest("Group name is too long", nil)
	}
	if creator.UserID == "" {
		return nil, errors.BadRequest("Group creator is required", nil)
	}

	g := &GroupConversation{
		ConversationBase: ConversationBase{
			ID:                 id,
			Participants:       []string{},
			ParticipantDetails: map[string]ParticipantDetails{},
			UnreadCount:        map[string]int{},
			ArchivedBy:         []string{},
			CreatedAt:          now,
			UpdatedAt:          now,
		},
		GroupName:       name,
		CreatedBy:       creator.UserID,
		Admins:          []string{creator.UserID},
		PendingRequests: []JoinRequest{},
	}

	g.addMember(creator.UserID, NewParticipantDetails(creator, true, now))
	for _, id := range participantIDs {
		id = strings.TrimSpace(id)
		if id == "" || g.HasParticipant(id) {
			continue
		}
		g.addMember(id, ParticipantDetails{JoinedAt: now})
	}

	return g, nil
}

func (g *GroupConversation) IsAdmin(userID string) bool {
	return containsString(g.Admins, userID)
}

func (g *GroupConversation) HasPendingRequest(userID string) bool {
	return g.pendingIndex(userID) >= 0
}

func (g *GroupConversation) pendingIndex(userID string) int {
	for i, r := range g.PendingRequests {
		if r.UserID == userID {
			return i
		}
	}
	return -1
}

func (g *GroupConversation) takePending(userID string) (JoinRequest, bool) {
	i := g.pendingIndex(userID)
	if i < 0 {
		return JoinRequest{}, false
	}
	req := g.PendingRequests[i]
	g.PendingRequests = append(g.PendingRequests[:i:i], g.PendingRequests[i+1:]...)
	return req, true
}

func (g *GroupConversation) checkJoinable(userID string) error {
	if g.HasParticipant(userID) {
		return errors.InvalidState("User is already a participant")
	}
	if g.HasPendingRequest(userID) {
		return errors.InvalidState("User already has a pending join request")
	}
	return nil
}

// AddParticipant adds target on behalf of actor. When approval is required
// and the actor is not an admin, a join request is queued instead and
// pending is true. A direct add consumes any pending request of target.
func (g *GroupConversation) AddParticipant(actor string, target UserProfile, now time.Time) (pending bool, err error) {
	if !g.HasParticipant(actor) {
		return false, errors.Forbidden("Only participants can add members to this group", nil)
	}
	if g.HasParticipant(target.UserID) {
		return false, errors.InvalidState("User is already a participant")
	}

	if g.RequireApproval && !g.IsAdmin(actor) {
		if g.HasPendingRequest(target.UserID) {
			return false, errors.InvalidState("User already has a pending join request")
		}
		g.queueRequest(target, now)
		return true, nil
	}

	g.takePending(target.UserID)
	g.addMember(target.UserID, NewParticipantDetails(target, false, now))
	return false, nil
}

// RequestJoin handles a self-initiated join through an invite link.
func (g *GroupConversation) RequestJoin(actor UserProfile, now time.Time) (pending bool, err error) {
	if err := g.checkJoinable(actor.UserID); err != nil {
		return false, err
	}

	if g.RequireApproval {
		g.queueRequest(actor, now)
		return true, nil
	}

	g.addMember(actor.UserID, NewParticipantDetails(actor, false, now))
	return false, nil
}

func (g *GroupConversation) queueRequest(p UserProfile, now time.Time) {
	g.PendingRequests = append(g.PendingRequests, JoinRequest{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		PhotoURL:    p.PhotoURL,
		Username:    p.Username,
		RequestedAt: now,
	})
}

func (g *GroupConversation) ApproveJoinRequest(actor, userID string, now time.Time) error {
	if !g.IsAdmin(actor) {
		return errors.Forbidden("Only admins can approve join requests", nil)
	}
	req, ok := g.takePending(userID)
	if !ok {
		return errors.NotFound("Join request", nil)
	}
	if !g.HasParticipant(userID) {
		g.addMember(userID, NewParticipantDetails(req.profile(), false, now))
	}
	return nil
}

func (g *GroupConversation) RejectJoinRequest(actor, userID string) error {
	if !g.IsAdmin(actor) {
		return errors.Forbidden("Only admins can reject join requests", nil)
	}
	if _, ok := g.takePending(userID); !ok {
		return errors.NotFound("Join request", nil)
	}
	return nil
}

func (g *GroupConversation) RemoveParticipant(actor, userID string) error {
	if !g.IsAdmin(actor) {
		return errors.Forbidden("Only admins can remove participants", nil)
	}
	if userID == g.CreatedBy {
		return errors.Forbidden("The group creator cannot be removed", nil)
	}
	if !g.HasParticipant(userID) {
		return errors.InvalidState("User is not a participant")
	}
	g.dropMember(userID)
	return nil
}

func (g *GroupConversation) Leave(actor string) error {
	if actor == g.CreatedBy {
		return errors.InvalidState("The group creator cannot leave the group; delete it instead")
	}
	if !g.HasParticipant(actor) {
		return errors.InvalidState("You are not a participant of this group")
	}
	g.dropMember(actor)
	return nil
}

func (g *GroupConversation) dropMember(userID string) {
	g.removeMember(userID)
	g.Admins = removeString(g.Admins, userID)
}

func (g *GroupConversation) MakeAdmin(actor, userID string) error {
	if !g.IsAdmin(actor) {
		return errors.Forbidden("Only admins can promote members", nil)
	}
	if !g.HasParticipant(userID) {
		return errors.InvalidState("User is not a participant")
	}
	if g.IsAdmin(userID) {
		return errors.InvalidState("User is already an admin")
	}
	g.Admins = append(g.Admins, userID)
	details := g.ParticipantDetails[userID]
	details.IsAdmin = true
	g.ParticipantDetails[userID] = details
	return nil
}

func (g *GroupConversation) RemoveAdmin(actor, userID string) error {
	if actor != g.CreatedBy {
		return errors.Forbidden("Only the group creator can remove admins", nil)
	}
	if userID == g.CreatedBy {
		return errors.Forbidden("The group creator cannot be demoted", nil)
	}
	if !g.IsAdmin(userID) {
		return errors.InvalidState("User is not an admin")
	}
	g.Admins = removeString(g.Admins, userID)
	if details, ok := g.ParticipantDetails[userID]; ok {
		details.IsAdmin = false
		g.ParticipantDetails[userID] = details
	}
	return nil
}

// SetRequireApproval does not touch requests that are already pending.
func (g *GroupConversation) SetRequireApproval(actor string, value bool) error {
	if !g.IsAdmin(actor) {
		return errors.Forbidden("Only admins can change approval settings", nil)
	}
	g.RequireApproval = value
	return nil
}

func (g *GroupConversation) UpdateDetails(actor string, name, photo *string) error {
	if !g.IsAdmin(actor) {
		return errors.Forbidden("Only admins can edit group details", nil)
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return errors.BadRequest("Group name cannot be empty", nil)
		}
		if len(trimmed) > MaxGroupNameLength {
			return errors.BadRequest("Group name is too long", nil)
		}
		g.GroupName = trimmed
	}
	if photo != nil {
		g.GroupPhoto = *photo
	}
	return nil
}

// CheckGroupInvariants extends CheckInvariants with the role constraints.
func (g *GroupConversation) CheckGroupInvariants() error {
	if err := g.CheckInvariants(); err != nil {
		return err
	}
	if !g.HasParticipant(g.CreatedBy) {
		return errors.Internal("creator is not a participant", nil)
	}
	for _, admin := range g.Admins {
		if !g.HasParticipant(admin) {
			return errors.Internal("admin "+admin+" is not a participant", nil)
		}
	}
	return nil
}
