package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Conversation is either a *DirectConversation or a *GroupConversation.
type Conversation interface {
	Base() *ConversationBase
	IsGroupChat() bool
	Document() *ConversationDocument
}

type ParticipantDetails struct {
	DisplayName string    `json:"display_name" firestore:"displayName"`
	PhotoURL    string    `json:"photo_url" firestore:"photoURL"`
	Username    string    `json:"username" firestore:"username"`
	IsAdmin     bool      `json:"is_admin" firestore:"isAdmin"`
	JoinedAt    time.Time `json:"joined_at" firestore:"joinedAt"`
}

func NewParticipantDetails(p UserProfile, isAdmin bool, joinedAt time.Time) ParticipantDetails {
	return ParticipantDetails{
		DisplayName: p.DisplayName,
		PhotoURL:    p.PhotoURL,
		Username:    p.Username,
		IsAdmin:     isAdmin,
		JoinedAt:    joinedAt,
	}
}

// LastMessage is the denormalized summary of the newest message. Only the
// message log writes it.
type LastMessage struct {
	Text       string      `json:"text" firestore:"text"`
	SenderID   string      `json:"sender_id" firestore:"senderId"`
	SenderName string      `json:"sender_name" firestore:"senderName"`
	Timestamp  time.Time   `json:"timestamp" firestore:"timestamp"`
	Type       MessageType `json:"type" firestore:"type"`
	ImageURL   string      `json:"image_url,omitempty" firestore:"imageUrl,omitempty"`
}

// ConversationBase holds the fields both conversation variants share.
type ConversationBase struct {
	ID                 string
	Participants       []string
	ParticipantDetails map[string]ParticipantDetails
	LastMessage        *LastMessage
	UnreadCount        map[string]int
	ArchivedBy         []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (b *ConversationBase) HasParticipant(userID string) bool {
	return containsString(b.Participants, userID)
}

func (b *ConversationBase) IsArchivedBy(userID string) bool {
	return containsString(b.ArchivedBy, userID)
}

// SetArchived toggles the conversation's visibility for one user only.
func (b *ConversationBase) SetArchived(userID string, archived bool) {
	if archived {
		if !b.IsArchivedBy(userID) {
			b.ArchivedBy = append(b.ArchivedBy, userID)
		}
		return
	}
	b.ArchivedBy = removeString(b.ArchivedBy, userID)
}

func (b *ConversationBase) addMember(userID string, details ParticipantDetails) {
	if !b.HasParticipant(userID) {
		b.Participants = append(b.Participants, userID)
	}
	b.ParticipantDetails[userID] = details
	b.UnreadCount[userID] = 0
}

func (b *ConversationBase) removeMember(userID string) {
	b.Participants = removeString(b.Participants, userID)
	delete(b.ParticipantDetails, userID)
	delete(b.UnreadCount, userID)
	b.ArchivedBy = removeString(b.ArchivedBy, userID)
}

// UpdateProfile rewrites the display fields of a participant's snapshot,
// keeping role and join time.
func (b *ConversationBase) UpdateProfile(p UserProfile) bool {
	details, ok := b.ParticipantDetails[p.UserID]
	if !ok {
		return false
	}
	details.DisplayName = p.DisplayName
	details.PhotoURL = p.PhotoURL
	details.Username = p.Username
	b.ParticipantDetails[p.UserID] = details
	return true
}

// SenderName resolves the display name used in message summaries.
func (b *ConversationBase) SenderName(userID string) string {
	if details, ok := b.ParticipantDetails[userID]; ok && details.DisplayName != "" {
		return details.DisplayName
	}
	if details, ok := b.ParticipantDetails[userID]; ok && details.Username != "" {
		return details.Username
	}
	return userID
}

// CheckInvariants reports the first violated structural invariant: unread
// counters and participant details are keyed exactly by the participant set.
func (b *ConversationBase) CheckInvariants() error {
	seen := make(map[string]bool, len(b.Participants))
	for _, id := range b.Participants {
		if seen[id] {
			return fmt.Errorf("duplicate participant %s", id)
		}
		seen[id] = true
		if _, ok := b.ParticipantDetails[id]; !ok {
			return fmt.Errorf("participant %s has no details", id)
		}
		count, ok := b.UnreadCount[id]
		if !ok {
			return fmt.Errorf("participant %s has no unread counter", id)
		}
		if count < 0 {
			return fmt.Errorf("participant %s has negative unread counter", id)
		}
	}
	if len(b.ParticipantDetails) != len(seen) {
		return fmt.Errorf("participant details contain non-participants")
	}
	if len(b.UnreadCount) != len(seen) {
		return fmt.Errorf("unread counters contain non-participants")
	}
	return nil
}

type DirectConversation struct {
	ConversationBase
}

func (c *DirectConversation) Base() *ConversationBase { return &c.ConversationBase }
func (c *DirectConversation) IsGroupChat() bool        { return false }

// OtherParticipant returns the participant that is not userID.
func (c *DirectConversation) OtherParticipant(userID string) string {
	for _, id := range c.Participants {
		if id != userID {
			return id
		}
	}
	return ""
}

// DirectConversationID derives the id of the 1:1 conversation between two
// users. The pair is unordered, so (a, b) and (b, a) map to the same id.
func DirectConversationID(userA, userB string) string {
	ids := []string{userA, userB}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

func NewDirectConversation(a, b UserProfile, now time.Time) *DirectConversation {
	return &DirectConversation{
		ConversationBase: ConversationBase{
			ID:           DirectConversationID(a.UserID, b.UserID),
			Participants: []string{a.UserID, b.UserID},
			ParticipantDetails: map[string]ParticipantDetails{
				a.UserID: NewParticipantDetails(a, false, now),
				b.UserID: NewParticipantDetails(b, false, now),
			},
			UnreadCount: map[string]int{a.UserID: 0, b.UserID: 0},
			ArchivedBy:  []string{},
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

// UnreadRecipients lists whose unread counter a new message increments.
// Direct messages count for the receiver only; group messages for every
// participant except the sender.
func UnreadRecipients(conv Conversation, msg *Message) []string {
	base := conv.Base()
	if !conv.IsGroupChat() {
		if msg.ReceiverID == "" || msg.ReceiverID == msg.SenderID || !base.HasParticipant(msg.ReceiverID) {
			return nil
		}
		return []string{msg.ReceiverID}
	}

	recipients := make([]string, 0, len(base.Participants))
	for _, id := range base.Participants {
		if id != msg.SenderID {
			recipients = append(recipients, id)
		}
	}
	return recipients
}

// SortByUpdatedAtDesc orders a conversation list newest-first; ties keep a
// stable order by id.
func SortByUpdatedAtDesc(convs []Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		a, b := convs[i].Base(), convs[j].Base()
		if a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.ID < b.ID
		}
		return a.UpdatedAt.After(b.UpdatedAt)
	})
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func removeString(slice []string, item string) []string {
	out := make([]string, 0, len(slice))
	for _, s := range slice {
		if s != item {
			out = append(out, s)
		}
	}
	return out
}
