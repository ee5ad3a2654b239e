package entities

import (
	"strings"
	"time"

	"github.com/Widerk/shapesbonding/domain/core/valueobjects"
	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

// Profile is a named snapshot of a ParameterSet kept in the shared history.
// Once built it is never changed; a later save under a colliding name
// replaces it wholesale.
type Profile struct {
	id           valueobjects.ProfileID
	name         string
	params       valueobjects.ParameterSet
	areaSnapshot string
	createdAt    time.Time
	owner        string
}

// ProfileRecord is the stored shape of a profile. Field names are shared
// with every client of the collection and must not change.
type ProfileRecord struct {
	Name        string            `json:"name" dynamodbav:"name"`
	Params      map[string]string `json:"params" dynamodbav:"params"`
	Area        string            `json:"area" dynamodbav:"area"`
	Timestamp   string            `json:"timestamp" dynamodbav:"timestamp"`
	TimestampMs int64             `json:"timestampMs" dynamodbav:"timestampMs"`
	CreatedBy   string            `json:"createdBy" dynamodbav:"createdBy"`
}

// NewProfile builds a profile whose ID is derived from name
func NewProfile(name string, params valueobjects.ParameterSet, areaSnapshot, owner string, createdAt time.Time) (*Profile, error) {
	if strings.TrimSpace(name) == "" {
		return nil, pkgerrors.NewValidationError("profile name cannot be empty")
	}
	if owner == "" {
		return nil, pkgerrors.NewValidationError("profile owner cannot be empty")
	}

	return &Profile{
		id:           valueobjects.IdentityFor(name),
		name:         name,
		params:       params,
		areaSnapshot: areaSnapshot,
		createdAt:    createdAt,
		owner:        owner,
	}, nil
}

// ProfileFromRecord rebuilds a profile read back from the collection. The ID
// is the document key and is not re-derived from the name.
func ProfileFromRecord(id string, rec ProfileRecord) (*Profile, error) {
	pid, err := valueobjects.NewProfileIDFromString(id)
	if err != nil {
		return nil, err
	}
	return &Profile{
		id:           pid,
		name:         rec.Name,
		params:       valueobjects.NewParameterSet(rec.Params),
		areaSnapshot: rec.Area,
		createdAt:    time.UnixMilli(rec.TimestampMs),
		owner:        rec.CreatedBy,
	}, nil
}

func (p *Profile) ID() valueobjects.ProfileID        { return p.id }
func (p *Profile) Name() string                      { return p.name }
func (p *Profile) Params() valueobjects.ParameterSet { return p.params }
func (p *Profile) AreaSnapshot() string              { return p.areaSnapshot }
func (p *Profile) CreatedAt() time.Time              { return p.createdAt }
func (p *Profile) CreatedAtMs() int64                { return p.createdAt.UnixMilli() }
func (p *Profile) Owner() string                     { return p.owner }

// ToRecord returns the stored shape of the profile. The timestamp text is
// the local hour and minute, for display only.
func (p *Profile) ToRecord() ProfileRecord {
	return ProfileRecord{
		Name:        p.name,
		Params:      p.params.TextView(),
		Area:        p.areaSnapshot,
		Timestamp:   p.createdAt.Local().Format("15:04"),
		TimestampMs: p.createdAt.UnixMilli(),
		CreatedBy:   p.owner,
	}
}
