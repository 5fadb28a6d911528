package entity

// UserProfile is the display snapshot the identity store supplies for a
// user. Conversations keep a denormalized copy of it per participant.
type UserProfile struct {
	UserID      string `json:"user_id" firestore:"-"`
	DisplayName string `json:"display_name" firestore:"displayName"`
	PhotoURL    string `json:"photo_url,omitempty" firestore:"photoURL"`
	Username    string `json:"username" firestore:"username"`
}
