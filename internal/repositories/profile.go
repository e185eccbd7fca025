package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/aura/internal/models"
)

// ProfileRepository stores each owner's [models.Profile] as the JSON content of a
// single user_profile entity.
type ProfileRepository struct {
	entities *EntityRepository
}

// NewProfileRepository creates a new [ProfileRepository] with the given connection or transaction.
func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{entities: NewEntityRepository(db)}
}

// WithTx returns a repository bound to tx.
func (r *ProfileRepository) WithTx(tx *sql.Tx) *ProfileRepository {
	return &ProfileRepository{entities: r.entities.WithTx(tx)}
}

// WithClock returns a copy of r whose writes are stamped from now.
func (r *ProfileRepository) WithClock(now func() time.Time) *ProfileRepository {
	return &ProfileRepository{entities: r.entities.WithClock(now)}
}

// Get returns the owner's profile. An owner without a profile gets an empty one.
func (r *ProfileRepository) Get(ctx context.Context, owner string) (*models.Profile, error) {
	e, err := r.find(ctx, owner)
	if errors.Is(err, ErrNotFound) {
		return &models.Profile{Owner: owner, Fields: map[string]string{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeProfile(e)
}

// Merge applies fields to the owner's profile, creating it on first use.
// Keys with an empty value are removed.
func (r *ProfileRepository) Merge(ctx context.Context, owner string, fields map[string]string) (*models.Profile, error) {
	e, err := r.find(ctx, owner)
	created := false
	if errors.Is(err, ErrNotFound) {
		e = models.NewEntity(owner, models.KindUserProfile, "user_"+owner)
		e.CreatedAt = r.entities.now().UTC()
		e.UpdatedAt = e.CreatedAt
		created = true
	} else if err != nil {
		return nil, err
	}

	profile, err := decodeProfile(e)
	if err != nil {
		return nil, err
	}

	for k, v := range fields {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if v = strings.TrimSpace(v); v == "" {
			delete(profile.Fields, k)
			continue
		}
		profile.Fields[k] = v
	}

	content, err := json.Marshal(profile.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}
	e.Content = string(content)

	if created {
		err = r.entities.Create(ctx, e)
	} else {
		err = r.entities.Update(ctx, e)
	}
	if err != nil {
		return nil, err
	}

	profile.UpdatedAt = e.UpdatedAt
	return profile, nil
}

func (r *ProfileRepository) find(ctx context.Context, owner string) (*models.Entity, error) {
	found, err := r.entities.List(ctx, Filter{
		Owner: owner,
		Kinds: []models.Kind{models.KindUserProfile},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return found[0], nil
}

func decodeProfile(e *models.Entity) (*models.Profile, error) {
	fields := map[string]string{}
	if e.Content != "" {
		var raw map[string]any
		if err := json.Unmarshal([]byte(e.Content), &raw); err != nil {
			return nil, fmt.Errorf("failed to decode profile: %w", err)
		}
		for k, v := range raw {
			if v == nil {
				continue
			}
			fields[k] = fmt.Sprint(v)
		}
	}

	return &models.Profile{Owner: e.Owner, Fields: fields, UpdatedAt: e.UpdatedAt}, nil
}
