package events

import (
	"time"

	"github.com/Widerk/shapesbonding/domain/core/entities"
)

const (
	TypeProfileSaved   = "profile.saved"
	TypeProfileDeleted = "profile.deleted"
)

// ProfileSaved is raised after a profile upsert was accepted by the store
type ProfileSaved struct {
	BaseEvent
	ProfileID string                 `json:"profile_id"`
	Record    entities.ProfileRecord `json:"record"`
}

// NewProfileSaved creates a ProfileSaved event
func NewProfileSaved(profile *entities.Profile, timestamp time.Time) ProfileSaved {
	return ProfileSaved{
		BaseEvent: newBaseEvent(profile.ID().String(), TypeProfileSaved, timestamp),
		ProfileID: profile.ID().String(),
		Record:    profile.ToRecord(),
	}
}

// ProfileDeleted is raised after a delete was accepted by the store
type ProfileDeleted struct {
	BaseEvent
	ProfileID string `json:"profile_id"`
	DeletedBy string `json:"deleted_by"`
}

// NewProfileDeleted creates a ProfileDeleted event
func NewProfileDeleted(profileID, deletedBy string, timestamp time.Time) ProfileDeleted {
	return ProfileDeleted{
		BaseEvent: newBaseEvent(profileID, TypeProfileDeleted, timestamp),
		ProfileID: profileID,
		DeletedBy: deletedBy,
	}
}
