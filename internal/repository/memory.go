package repository

import (
	"context"
	"sort"
	"sync"

	"crm-inbox-demo/backend/internal/models"
)

// MemoryStore is an in-memory implementation of every repository interface,
// backed by a single mutex so a message append and its conversation summary
// update are one atomic step, matching the transactional GORM behavior.
// Used by tests and by the local development mode.
type MemoryStore struct {
	mu             sync.Mutex
	conversations  map[string]models.Conversation
	messages       map[string][]models.Message // keyed by conversation id
	contacts       map[string]models.Contact
	activities     map[string][]models.Activity // keyed by contact id
	users          map[string]models.User
	userOrder      []string
	knowledge      []models.KnowledgeEntry
	nextKnowledge  uint
	nextActivityID uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]models.Conversation),
		messages:      make(map[string][]models.Message),
		contacts:      make(map[string]models.Contact),
		activities:    make(map[string][]models.Activity),
		users:         make(map[string]models.User),
		nextKnowledge: 1,
	}
}

// --- ConversationRepository ---

func (s *MemoryStore) Create(ctx context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// One conversation per contact, mirroring the unique index on
	// conversations.contact_id.
	for _, existing := range s.conversations {
		if existing.ContactID == conv.ContactID {
			return ErrDuplicate
		}
	}
	s.conversations[conv.ID] = *conv
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &conv, nil
}

func (s *MemoryStore) GetByContactID(ctx context.Context, contactID string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conv := range s.conversations {
		if conv.ContactID == contactID {
			c := conv
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) List(ctx context.Context) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	convs := make([]models.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		convs = append(convs, conv)
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].LastAt.After(convs[j].LastAt) })
	return convs, nil
}

func (s *MemoryStore) SetHandledBy(ctx context.Context, id, handledBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.HandledBy = handledBy
	s.conversations[id] = conv
	return nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, msg *models.Message, opts AppendOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[msg.ConversationID]
	if !ok {
		return ErrNotFound
	}

	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], *msg)

	if opts.CacheLast {
		conv.LastMessage = msg.Content
		conv.LastAt = msg.Timestamp
	}
	if opts.IncrementUnread {
		conv.Unread++
	}
	if opts.HandledBy != nil {
		conv.HandledBy = *opts.HandledBy
	}
	s.conversations[msg.ConversationID] = conv
	return nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.Unread = 0
	s.conversations[id] = conv

	msgs := s.messages[id]
	for i := range msgs {
		if msgs[i].Sender == conv.ContactID && msgs[i].Type == models.MessageTypeCustomer {
			msgs[i].Status = models.DeliveryRead
		}
	}
	return nil
}

func (s *MemoryStore) DeleteByContactID(ctx context.Context, contactID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, conv := range s.conversations {
		if conv.ContactID == contactID {
			delete(s.conversations, id)
			delete(s.messages, id)
		}
	}
	return nil
}

// --- MessageRepository ---

func (s *MemoryStore) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[conversationID]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) CountBySender(ctx context.Context, conversationID, sender string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, msg := range s.messages[conversationID] {
		if msg.Sender == sender {
			count++
		}
	}
	return count, nil
}

// --- ContactRepository ---

func (s *MemoryStore) CreateIfAbsent(ctx context.Context, contact *models.Contact) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.contacts[contact.ID]; exists {
		return false, nil
	}
	s.contacts[contact.ID] = *contact
	return true, nil
}

func (s *MemoryStore) GetContact(ctx context.Context, id string) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contact, ok := s.contacts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &contact, nil
}

func (s *MemoryStore) ListContacts(ctx context.Context) ([]models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contacts := make([]models.Contact, 0, len(s.contacts))
	for _, contact := range s.contacts {
		contacts = append(contacts, contact)
	}
	sort.Slice(contacts, func(i, j int) bool { return contacts[i].ID < contacts[j].ID })
	return contacts, nil
}

func (s *MemoryStore) UpdateContact(ctx context.Context, contact *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[contact.ID]; !ok {
		return ErrNotFound
	}
	s.contacts[contact.ID] = *contact
	return nil
}

func (s *MemoryStore) DeleteContact(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[id]; !ok {
		return ErrNotFound
	}
	delete(s.contacts, id)
	delete(s.activities, id)
	return nil
}

func (s *MemoryStore) AddActivity(ctx context.Context, activity *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextActivityID++
	activity.ID = s.nextActivityID
	s.activities[activity.ContactID] = append(s.activities[activity.ContactID], *activity)
	return nil
}

func (s *MemoryStore) ListActivities(ctx context.Context, contactID string) ([]models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acts := s.activities[contactID]
	out := make([]models.Activity, len(acts))
	copy(out, acts)
	return out, nil
}

// --- UserRepository ---

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = *user
	s.userOrder = append(s.userOrder, user.ID)
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]models.User, 0, len(s.users))
	for _, id := range s.userOrder {
		users = append(users, s.users[id])
	}
	return users, nil
}

func (s *MemoryStore) UpdateUserRole(ctx context.Context, id, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	user.Role = role
	s.users[id] = user
	return nil
}

func (s *MemoryStore) FirstUserByRole(ctx context.Context, role string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.userOrder {
		if s.users[id].Role == role {
			u := s.users[id]
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// --- KnowledgeRepository ---

func (s *MemoryStore) ListKnowledge(ctx context.Context) ([]models.KnowledgeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.KnowledgeEntry, len(s.knowledge))
	copy(out, s.knowledge)
	return out, nil
}

func (s *MemoryStore) CreateKnowledge(ctx context.Context, entry *models.KnowledgeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = s.nextKnowledge
	s.nextKnowledge++
	s.knowledge = append(s.knowledge, *entry)
	return nil
}

func (s *MemoryStore) DeleteKnowledge(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, entry := range s.knowledge {
		if entry.ID == id {
			s.knowledge = append(s.knowledge[:i], s.knowledge[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Typed views so a single MemoryStore can stand in for every repository.

type memoryContacts struct{ *MemoryStore }

func (m memoryContacts) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	return m.GetContact(ctx, id)
}
func (m memoryContacts) List(ctx context.Context) ([]models.Contact, error) {
	return m.ListContacts(ctx)
}
func (m memoryContacts) Update(ctx context.Context, contact *models.Contact) error {
	return m.UpdateContact(ctx, contact)
}
func (m memoryContacts) Delete(ctx context.Context, id string) error {
	return m.DeleteContact(ctx, id)
}

type memoryUsers struct{ *MemoryStore }

func (m memoryUsers) Create(ctx context.Context, user *models.User) error {
	return m.CreateUser(ctx, user)
}
func (m memoryUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.GetUser(ctx, id)
}
func (m memoryUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.GetUserByEmail(ctx, email)
}
func (m memoryUsers) List(ctx context.Context) ([]models.User, error) {
	return m.ListUsers(ctx)
}
func (m memoryUsers) UpdateRole(ctx context.Context, id, role string) error {
	return m.UpdateUserRole(ctx, id, role)
}
func (m memoryUsers) FirstByRole(ctx context.Context, role string) (*models.User, error) {
	return m.FirstUserByRole(ctx, role)
}

type memoryKnowledge struct{ *MemoryStore }

func (m memoryKnowledge) List(ctx context.Context) ([]models.KnowledgeEntry, error) {
	return m.ListKnowledge(ctx)
}
func (m memoryKnowledge) Create(ctx context.Context, entry *models.KnowledgeEntry) error {
	return m.CreateKnowledge(ctx, entry)
}
func (m memoryKnowledge) Delete(ctx context.Context, id uint) error {
	return m.DeleteKnowledge(ctx, id)
}

// Conversations returns the store as a ConversationRepository.
func (s *MemoryStore) Conversations() ConversationRepository { return s }

// Messages returns the store as a MessageRepository.
func (s *MemoryStore) Messages() MessageRepository { return s }

// Contacts returns the store as a ContactRepository.
func (s *MemoryStore) Contacts() ContactRepository { return memoryContacts{s} }

// Users returns the store as a UserRepository.
func (s *MemoryStore) Users() UserRepository { return memoryUsers{s} }

// Knowledge returns the store as a KnowledgeRepository.
func (s *MemoryStore) Knowledge() KnowledgeRepository { return memoryKnowledge{s} }
