package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"crm-inbox-demo/backend/internal/models"
	"crm-inbox-demo/backend/internal/repository"
	"crm-inbox-demo/backend/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// denyGuard refuses every acquisition, simulating another instance holding
// the provisioning lock.
type denyGuard struct{}

func (denyGuard) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return false, nil
}

func newTestProvisioner(t *testing.T, store *repository.MemoryStore, guard ProvisionGuard, cfg ProvisionerConfig) *Provisioner {
	t.Helper()
	team := NewUserService(store.Users(), jwt.NewService("test-secret", time.Hour))
	return NewProvisioner(
		store.Conversations(),
		store.Contacts(),
		team,
		guard,
		nil,
		nil,
		cfg,
		quietLogger(),
	)
}

func seedConversation(t *testing.T, store *repository.MemoryStore, contactID, name string) {
	t.Helper()
	err := store.Conversations().Create(context.Background(), &models.Conversation{
		ID:        "conv-" + contactID,
		ContactID: contactID,
		Name:      name,
		HandledBy: models.HandledByBot,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
}

func TestReconcileCreatesContactWithDefaults(t *testing.T) {
	store := repository.NewMemoryStore()
	seedUser(t, store, "mgr-1", "manager")
	seedConversation(t, store, "cust-1", "Maria")

	p := newTestProvisioner(t, store, nil, ProvisionerConfig{
		NextActionOffset: 72 * time.Hour,
		LeadSource:       "chat",
	})
	require.NoError(t, p.Reconcile(context.Background()))

	contact, err := store.Contacts().GetByID(context.Background(), "cust-1")
	require.NoError(t, err)

	assert.Equal(t, "Maria", contact.Name)
	assert.Equal(t, models.StageContact, contact.Stage)
	assert.Equal(t, models.TemperatureWarm, contact.Temperature)
	assert.True(t, contact.HasTag(models.TagAutoCreated))
	assert.Equal(t, float64(0), contact.Value)
	assert.Equal(t, "chat", contact.LeadSource)
	assert.Equal(t, "mgr-1", contact.OwnerID)
	assert.WithinDuration(t, time.Now().Add(72*time.Hour), contact.NextAction, time.Minute)
}

func TestReconcileIsIdempotent(t *testing.T) {
	store := repository.NewMemoryStore()
	seedUser(t, store, "mgr-1", "manager")
	seedConversation(t, store, "cust-1", "Maria")

	p := newTestProvisioner(t, store, nil, ProvisionerConfig{})
	require.NoError(t, p.Reconcile(context.Background()))

	// Agent edits survive a second pass.
	contact, err := store.Contacts().GetByID(context.Background(), "cust-1")
	require.NoError(t, err)
	contact.Stage = models.StageProposal
	contact.Value = 1500
	require.NoError(t, store.Contacts().Update(context.Background(), contact))

	require.NoError(t, p.Reconcile(context.Background()))

	after, err := store.Contacts().GetByID(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageProposal, after.Stage)
	assert.Equal(t, float64(1500), after.Value)

	contacts, err := store.Contacts().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, contacts, 1)
}

func TestReconcileSkipsWhenGuardDenied(t *testing.T) {
	store := repository.NewMemoryStore()
	seedUser(t, store, "mgr-1", "manager")
	seedConversation(t, store, "cust-1", "Maria")

	p := newTestProvisioner(t, store, denyGuard{}, ProvisionerConfig{})
	require.NoError(t, p.Reconcile(context.Background()))

	_, err := store.Contacts().GetByID(context.Background(), "cust-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConcurrentReconcilesCreateExactlyOneContact(t *testing.T) {
	store := repository.NewMemoryStore()
	seedUser(t, store, "mgr-1", "manager")
	seedConversation(t, store, "cust-1", "Maria")

	p := newTestProvisioner(t, store, nil, ProvisionerConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Reconcile(context.Background()))
		}()
	}
	wg.Wait()

	contacts, err := store.Contacts().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, contacts, 1)
}

func TestRunDebouncesNudgeBursts(t *testing.T) {
	store := repository.NewMemoryStore()
	seedUser(t, store, "mgr-1", "manager")
	seedConversation(t, store, "cust-1", "Maria")

	p := newTestProvisioner(t, store, nil, ProvisionerConfig{Debounce: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	for i := 0; i < 5; i++ {
		p.Nudge()
	}

	assert.Eventually(t, func() bool {
		_, err := store.Contacts().GetByID(context.Background(), "cust-1")
		return err == nil
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop on context cancellation")
	}
}

func TestRunDrainsNudgeIssuedBeforeStart(t *testing.T) {
	store := repository.NewMemoryStore()
	seedUser(t, store, "mgr-1", "manager")
	seedConversation(t, store, "cust-1", "Maria")

	p := newTestProvisioner(t, store, nil, ProvisionerConfig{Debounce: 10 * time.Millisecond})

	// A boot-time nudge lands before the loop starts; the buffered channel
	// must hold it so the orphaned conversation is reconciled anyway.
	p.Nudge()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	assert.Eventually(t, func() bool {
		_, err := store.Contacts().GetByID(context.Background(), "cust-1")
		return err == nil
	}, time.Second, 10*time.Millisecond)
}
