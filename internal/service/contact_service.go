package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm-inbox-demo/backend/internal/models"
	"crm-inbox-demo/backend/internal/repository"
	"crm-inbox-demo/backend/pkg/jwt"
	"crm-inbox-demo/backend/pkg/logger"
)

var (
	ErrElevatedOnly = errors.New("operation requires the manager role")
	ErrInvalidStage = errors.New("invalid pipeline stage")
)

// ContactService manages the CRM records around the routing engine:
// pipeline edits, the activity log, and the elevated-only deletion cascade.
type ContactService struct {
	contacts repository.ContactRepository
	convs    repository.ConversationRepository
	events   EventPublisher
	log      *logger.Logger
}

func NewContactService(
	contacts repository.ContactRepository,
	convs repository.ConversationRepository,
	events EventPublisher,
	log *logger.Logger,
) *ContactService {
	if events == nil {
		events = NopPublisher{}
	}
	if log == nil {
		log = logger.GetGlobal()
	}
	return &ContactService{
		contacts: contacts,
		convs:    convs,
		events:   events,
		log:      log,
	}
}

// ListContacts returns the CRM registry filtered to the viewer.
func (s *ContactService) ListContacts(ctx context.Context, viewer Viewer) ([]models.Contact, error) {
	contacts, err := s.contacts.List(ctx)
	if err != nil {
		return nil, err
	}
	return VisibleContacts(contacts, viewer), nil
}

// GetContact returns one CRM record, honoring viewer visibility.
func (s *ContactService) GetContact(ctx context.Context, id string, viewer Viewer) (*models.Contact, error) {
	contact, err := s.contacts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}
	if !VisibleContact(contact, viewer) {
		// Hidden records read as absent rather than forbidden.
		return nil, ErrContactNotFound
	}
	return contact, nil
}

// UpdateContact edits pipeline fields. Stage changes are appended to the
// activity log.
func (s *ContactService) UpdateContact(ctx context.Context, id string, req models.UpdateContactRequest, editorID string) (*models.Contact, error) {
	contact, err := s.contacts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}

	prevStage := contact.Stage

	if req.Name != "" {
		contact.Name = req.Name
	}
	if req.Stage != "" {
		if !models.ValidStage(req.Stage) {
			return nil, ErrInvalidStage
		}
		contact.Stage = req.Stage
	}
	if req.OwnerID != "" {
		contact.OwnerID = req.OwnerID
	}
	if req.Value != nil {
		contact.Value = *req.Value
	}
	if req.Temperature != "" {
		contact.Temperature = req.Temperature
	}
	if req.NextAction != nil {
		contact.NextAction = *req.NextAction
	}
	if req.LeadSource != "" {
		contact.LeadSource = req.LeadSource
	}
	if req.Tags != nil {
		contact.Tags = req.Tags
	}

	if err := s.contacts.Update(ctx, contact); err != nil {
		return nil, err
	}

	if req.Stage != "" && req.Stage != prevStage {
		activity := &models.Activity{
			ContactID: contact.ID,
			Kind:      models.ActivityStage,
			Content:   fmt.Sprintf("stage changed from %s to %s", prevStage, contact.Stage),
			AuthorID:  editorID,
			CreatedAt: time.Now(),
		}
		if err := s.contacts.AddActivity(ctx, activity); err != nil {
			s.log.LogError(err, "failed to record stage change", "contact_id", contact.ID)
		}
	}

	s.events.Publish(Event{Type: EventContactUpdated, Payload: contact})
	return contact, nil
}

// AddActivity appends a note or email entry to the contact's log.
func (s *ContactService) AddActivity(ctx context.Context, contactID string, req models.AddActivityRequest, authorID string) (*models.Activity, error) {
	if _, err := s.contacts.GetByID(ctx, contactID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}

	activity := &models.Activity{
		ContactID: contactID,
		Kind:      req.Kind,
		Content:   req.Content,
		AuthorID:  authorID,
		CreatedAt: time.Now(),
	}
	if err := s.contacts.AddActivity(ctx, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

// ListActivities returns the contact's ordered activity log.
func (s *ContactService) ListActivities(ctx context.Context, contactID string) ([]models.Activity, error) {
	return s.contacts.ListActivities(ctx, contactID)
}

// DeleteContact removes the CRM record and cascades to its conversations.
// Permitted only for elevated callers; rejected synchronously with no
// mutation otherwise.
func (s *ContactService) DeleteContact(ctx context.Context, id string, caller *jwt.JWTClaims) error {
	if caller == nil || !caller.Elevated() {
		return ErrElevatedOnly
	}

	if err := s.contacts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrContactNotFound
		}
		return err
	}

	if err := s.convs.DeleteByContactID(ctx, id); err != nil {
		return err
	}

	s.log.Info("contact deleted with conversation cascade",
		"contact_id", id,
		"deleted_by", caller.UserID,
	)
	s.events.Publish(Event{Type: EventContactDeleted, Payload: map[string]string{"id": id}})
	return nil
}
