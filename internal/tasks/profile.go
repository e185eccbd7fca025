package tasks

import (
	"context"

	"github.com/desertthunder/aura/internal/models"
)

// GetUserProfile returns the owner's profile fields.
func (e *ListEngine) GetUserProfile(ctx context.Context, owner string) (*models.Profile, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}

	var profile *models.Profile
	err := e.withTx(ctx, "get profile", func(s store) error {
		var err error
		profile, err = s.profiles.Get(ctx, owner)
		return err
	})
	return profile, err
}

// UpdateUserProfile merges fields into the owner's profile. Empty values remove keys.
func (e *ListEngine) UpdateUserProfile(ctx context.Context, owner string, fields map[string]string) (*models.Profile, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}

	var profile *models.Profile
	err := e.withTx(ctx, "update profile", func(s store) error {
		var err error
		profile, err = s.profiles.Merge(ctx, owner, fields)
		return err
	})
	if err == nil {
		e.log(owner).Info("updated profile", "fields", len(profile.Fields))
	}
	return profile, err
}
