package service

import (
	"context"
	"errors"
	"time"

	"crm-inbox-demo/backend/internal/models"
	"crm-inbox-demo/backend/internal/repository"
	"crm-inbox-demo/backend/pkg/logger"
)

// ProvisionGuard is an optional cross-instance dedupe guard: only the caller
// that acquires the key provisions the contact. The database unique key is
// the real invariant; the guard just avoids redundant insert attempts when
// several instances reconcile at once.
type ProvisionGuard interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// ProvisionerConfig carries the defaults stamped onto auto-created contacts.
type ProvisionerConfig struct {
	// DefaultOwnerID owns auto-created contacts. Resolved against the team
	// registry; falls back to any manager when unset.
	DefaultOwnerID string
	// NextActionOffset is added to the creation time to produce the contact's
	// next-action date.
	NextActionOffset time.Duration
	// Debounce collapses bursts of mutation nudges into one reconcile pass.
	Debounce time.Duration
	// LeadSource is recorded on auto-created contacts.
	LeadSource string
}

// Provisioner keeps the one-contact-per-external-party invariant: every
// conversation's counterpart gets a CRM record, created automatically and
// exactly once. Safe to run redundantly; it takes no conversation locks.
type Provisioner struct {
	convs    repository.ConversationRepository
	contacts repository.ContactRepository
	team     *UserService
	guard    ProvisionGuard
	events   EventPublisher
	metrics  *Metrics
	cfg      ProvisionerConfig
	log      *logger.Logger

	nudge chan struct{}
}

// NewProvisioner creates a contact reconciler. guard may be nil.
func NewProvisioner(
	convs repository.ConversationRepository,
	contacts repository.ContactRepository,
	team *UserService,
	guard ProvisionGuard,
	events EventPublisher,
	metrics *Metrics,
	cfg ProvisionerConfig,
	log *logger.Logger,
) *Provisioner {
	if cfg.NextActionOffset <= 0 {
		cfg.NextActionOffset = 72 * time.Hour
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 250 * time.Millisecond
	}
	if cfg.LeadSource == "" {
		cfg.LeadSource = "chat"
	}
	if events == nil {
		events = NopPublisher{}
	}
	if log == nil {
		log = logger.GetGlobal()
	}

	return &Provisioner{
		convs:    convs,
		contacts: contacts,
		team:     team,
		guard:    guard,
		events:   events,
		metrics:  metrics,
		cfg:      cfg,
		log:      log,
		nudge:    make(chan struct{}, 1),
	}
}

// Nudge schedules a reconcile pass. Non-blocking; bursts collapse into one
// pass.
func (p *Provisioner) Nudge() {
	select {
	case p.nudge <- struct{}{}:
	default:
	}
}

// Run processes nudges until the context is cancelled. Each nudge is
// debounced so a burst of registry mutations triggers a single pass.
func (p *Provisioner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.nudge:
		}

		timer := time.NewTimer(p.cfg.Debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := p.Reconcile(ctx); err != nil {
			p.log.LogError(err, "contact reconciliation failed")
		}
	}
}

// Reconcile creates a contact for every conversation whose external-party id
// has none. Idempotent: the generated record is a pure function of the
// conversation and the creation time, and inserts dedupe on identifier.
func (p *Provisioner) Reconcile(ctx context.Context) error {
	convs, err := p.convs.List(ctx)
	if err != nil {
		return err
	}

	for i := range convs {
		if err := p.provision(ctx, &convs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) provision(ctx context.Context, conv *models.Conversation) error {
	_, err := p.contacts.GetByID(ctx, conv.ContactID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if p.guard != nil {
		acquired, guardErr := p.guard.TryAcquire(ctx, "provision:"+conv.ContactID, time.Minute)
		if guardErr != nil {
			p.log.Warn("provision guard unavailable, relying on insert dedupe", "error", guardErr.Error())
		} else if !acquired {
			return nil // another instance is provisioning this id
		}
	}

	now := time.Now()
	contact := &models.Contact{
		ID:          conv.ContactID,
		Name:        conv.Name,
		AvatarURL:   conv.AvatarURL,
		Tags:        []string{models.TagAutoCreated},
		Stage:       models.StageContact,
		OwnerID:     p.team.ResolveAssignee(ctx, p.cfg.DefaultOwnerID),
		Value:       0,
		Temperature: models.TemperatureWarm,
		NextAction:  now.Add(p.cfg.NextActionOffset),
		LeadSource:  p.cfg.LeadSource,
		CreatedAt:   now,
	}

	created, err := p.contacts.CreateIfAbsent(ctx, contact)
	if err != nil {
		return err
	}
	if !created {
		return nil // lost the race; exactly one contact exists either way
	}

	if p.metrics != nil {
		p.metrics.AutoProvisioned.Inc()
	}
	p.log.Info("contact auto-provisioned",
		"contact_id", contact.ID,
		"owner_id", contact.OwnerID,
	)
	p.events.Publish(Event{Type: EventContactCreated, Payload: contact})
	return nil
}
