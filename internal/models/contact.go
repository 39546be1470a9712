package models

import (
	"time"
)

// PipelineStage is a contact's position in the sales pipeline.
type PipelineStage string

const (
	StageContact       PipelineStage = "contact"
	StageQualification PipelineStage = "qualification"
	StageProposal      PipelineStage = "proposal"
	StageClosed        PipelineStage = "closed"
	StageLost          PipelineStage = "lost"
)

// ValidStage reports whether s is one of the pipeline stages.
func ValidStage(s PipelineStage) bool {
	switch s {
	case StageContact, StageQualification, StageProposal, StageClosed, StageLost:
		return true
	}
	return false
}

// Temperature is a coarse lead-interest rating.
type Temperature string

const (
	TemperatureHot  Temperature = "hot"
	TemperatureWarm Temperature = "warm"
	TemperatureCold Temperature = "cold"
)

// TagAutoCreated marks contacts provisioned by the reconciler rather than
// entered by a person.
const TagAutoCreated = "auto-created"

// Contact is the CRM/sales-pipeline record for an external party. Its ID is
// the external-party identifier (phone/handle) used by its conversation.
type Contact struct {
	ID          string        `json:"id" gorm:"primaryKey"`
	Name        string        `json:"name"`
	AvatarURL   string        `json:"avatar_url"`
	Tags        []string      `json:"tags" gorm:"serializer:json"`
	Stage       PipelineStage `json:"stage" gorm:"default:contact"`
	OwnerID     string        `json:"owner_id" gorm:"index"`
	Value       float64       `json:"value"`
	Temperature Temperature   `json:"temperature" gorm:"default:warm"`
	NextAction  time.Time     `json:"next_action"`
	LeadSource  string        `json:"lead_source"`
	Activities  []Activity    `json:"activities,omitempty" gorm:"foreignKey:ContactID"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// HasTag reports whether the contact carries the given tag.
func (c *Contact) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ActivityKind classifies entries in a contact's activity log.
type ActivityKind string

const (
	ActivityNote  ActivityKind = "note"
	ActivityEmail ActivityKind = "email"
	ActivityStage ActivityKind = "stage"
)

// Activity is one entry in a contact's ordered activity log.
type Activity struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	ContactID string       `json:"contact_id" gorm:"index;not null"`
	Kind      ActivityKind `json:"kind"`
	Content   string       `json:"content"`
	AuthorID  string       `json:"author_id"`
	CreatedAt time.Time    `json:"created_at"`
}

// UpdateContactRequest is the request body for editing pipeline fields.
type UpdateContactRequest struct {
	Name        string        `json:"name"`
	Stage       PipelineStage `json:"stage"`
	OwnerID     string        `json:"owner_id"`
	Value       *float64      `json:"value"`
	Temperature Temperature   `json:"temperature"`
	NextAction  *time.Time    `json:"next_action"`
	LeadSource  string        `json:"lead_source"`
	Tags        []string      `json:"tags"`
}

// AddActivityRequest is the request body for appending to the activity log.
type AddActivityRequest struct {
	Kind    ActivityKind `json:"kind" binding:"required"`
	Content string       `json:"content" binding:"required"`
}
