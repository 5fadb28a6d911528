package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"socialdm/internal/domain/entity"
	"socialdm/internal/domain/repository"
	"socialdm/pkg/errors"
)

const usersCollection = "users"

type firestoreProfileRepository struct {
	client *firestore.Client
}

// NewFirestoreProfileRepository reads display snapshots from users/{id},
// the collection owned by the identity service.
func NewFirestoreProfileRepository(client *firestore.Client) repository.ProfileProvider {
	return &firestoreProfileRepository{
		client: client,
	}
}

func (r *firestoreProfileRepository) GetProfile(ctx context.Context, userID string) (*entity.UserProfile, error) {
	doc, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.FromStore("Failed to get user profile", err)
	}

	var profile entity.UserProfile
	if err := doc.DataTo(&profile); err != nil {
		return nil, errors.Internal("Failed to parse user profile", err)
	}
	profile.UserID = doc.Ref.ID

	return &profile, nil
}
