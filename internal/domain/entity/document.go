package entity

import "time"

// ConversationDocument is the persisted and wire shape of a conversation:
// one flat record tagged by IsGroupChat. Group-only fields stay empty for
// direct conversations.
type ConversationDocument struct {
	ID                 string                        `json:"id" firestore:"id"`
	Participants       []string                      `json:"participants" firestore:"participants"`
	ParticipantDetails map[string]ParticipantDetails `json:"participant_details" firestore:"participantDetails"`
	IsGroupChat        bool                          `json:"is_group_chat" firestore:"isGroupChat"`

	GroupName       string        `json:"group_name,omitempty" firestore:"groupName,omitempty"`
	GroupPhoto      string        `json:"group_photo,omitempty" firestore:"groupPhoto,omitempty"`
	CreatedBy       string        `json:"created_by,omitempty" firestore:"createdBy,omitempty"`
	Admins          []string      `json:"admins,omitempty" firestore:"admins,omitempty"`
	RequireApproval bool          `json:"require_approval,omitempty" firestore:"requireApproval,omitempty"`
	PendingRequests []JoinRequest `json:"pending_requests,omitempty" firestore:"pendingRequests,omitempty"`

	LastMessage *LastMessage   `json:"last_message" firestore:"lastMessage"`
	UnreadCount map[string]int `json:"unread_count" firestore:"unreadCount"`
	ArchivedBy  []string       `json:"archived_by" firestore:"archivedBy"`
	CreatedAt   time.Time      `json:"created_at" firestore:"createdAt,serverTimestamp"`
	UpdatedAt   time.Time      `json:"updated_at" firestore:"updatedAt,serverTimestamp"`
}

func (c *DirectConversation) Document() *ConversationDocument {
	return baseDocument(&c.ConversationBase)
}

func (c *GroupConversation) Document() *ConversationDocument {
	doc := baseDocument(&c.ConversationBase)
	doc.IsGroupChat = true
	doc.GroupName = c.GroupName
	doc.GroupPhoto = c.GroupPhoto
	doc.CreatedBy = c.CreatedBy
	doc.Admins = append([]string{}, c.Admins...)
	doc.RequireApproval = c.RequireApproval
	doc.PendingRequests = append([]JoinRequest{}, c.PendingRequests...)
	return doc
}

func baseDocument(b *ConversationBase) *ConversationDocument {
	doc := &ConversationDocument{
		ID:                 b.ID,
		Participants:       append([]string{}, b.Participants...),
		ParticipantDetails: make(map[string]ParticipantDetails, len(b.ParticipantDetails)),
		UnreadCount:        make(map[string]int, len(b.UnreadCount)),
		ArchivedBy:         append([]string{}, b.ArchivedBy...),
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
	for k, v := range b.ParticipantDetails {
		doc.ParticipantDetails[k] = v
	}
	for k, v := range b.UnreadCount {
		doc.UnreadCount[k] = v
	}
	if b.LastMessage != nil {
		lm := *b.LastMessage
		doc.LastMessage = &lm
	}
	return doc
}

// FromDocument decodes a stored document into its variant. The returned
// value owns its maps and slices.
func FromDocument(doc *ConversationDocument) Conversation {
	base := ConversationBase{
		ID:                 doc.ID,
		Participants:       append([]string{}, doc.Participants...),
		ParticipantDetails: make(map[string]ParticipantDetails, len(doc.ParticipantDetails)),
		UnreadCount:        make(map[string]int, len(doc.UnreadCount)),
		ArchivedBy:         append([]string{}, doc.ArchivedBy...),
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}
	for k, v := range doc.ParticipantDetails {
		base.ParticipantDetails[k] = v
	}
	for k, v := range doc.UnreadCount {
		base.UnreadCount[k] = v
	}
	if doc.LastMessage != nil {
		lm := *doc.LastMessage
		base.LastMessage = &lm
	}

	if !doc.IsGroupChat {
		return &DirectConversation{ConversationBase: base}
	}

	return &GroupConversation{
		ConversationBase: base,
		GroupName:        doc.GroupName,
		GroupPhoto:       doc.GroupPhoto,
		CreatedBy:        doc.CreatedBy,
		Admins:           append([]string{}, doc.Admins...),
		RequireApproval:  doc.RequireApproval,
		PendingRequests:  append([]JoinRequest{}, doc.PendingRequests...),
	}
}

// Clone returns a deep copy of conv.
func Clone(conv Conversation) Conversation {
	return FromDocument(conv.Document())
}
