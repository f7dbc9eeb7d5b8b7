package memory

import (
	"context"
	"sync"

	"github.com/closeloop/actionpipe/model"
	"github.com/closeloop/actionpipe/persistence"
)

var _ persistence.Store = new(InMemoryStore)

// InMemoryStore backs the memory storage type. Transactions buffer writes and
// apply them under one lock so a failed execution leaves no partial record.
type InMemoryStore struct {
	mu              sync.RWMutex
	opportunities   map[string]model.Opportunity
	contacts        map[string]model.Contact
	contactsByEmail map[string]map[string]string
	activities      map[string]model.Activity
	activityByOpp   map[string][]string
	emails          map[string]model.EmailActivity
	emailByMessage  map[string]string
	threads         map[string][]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		opportunities:   make(map[string]model.Opportunity),
		contacts:        make(map[string]model.Contact),
		contactsByEmail: make(map[string]map[string]string),
		activities:      make(map[string]model.Activity),
		activityByOpp:   make(map[string][]string),
		emails:          make(map[string]model.EmailActivity),
		emailByMessage:  make(map[string]string),
		threads:         make(map[string][]string),
	}
}

func (s *InMemoryStore) GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	opp, ok := s.opportunities[id]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "opportunity", Key: id}
	}
	return &opp, nil
}

func (s *InMemoryStore) SaveOpportunity(ctx context.Context, opp *model.Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opportunities[opp.Id] = *opp
	return nil
}

func (s *InMemoryStore) GetContact(ctx context.Context, id string) (*model.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	contact, ok := s.contacts[id]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "contact", Key: id}
	}
	return &contact, nil
}

func (s *InMemoryStore) GetContactByEmail(ctx context.Context, opportunityId string, email string) (*model.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byEmail := s.contactsByEmail[opportunityId]
	id, ok := byEmail[email]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "contact", Key: email}
	}
	contact := s.contacts[id]
	return &contact, nil
}

func (s *InMemoryStore) SaveContact(ctx context.Context, contact *model.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[contact.Id] = *contact
	if s.contactsByEmail[contact.OpportunityId] == nil {
		s.contactsByEmail[contact.OpportunityId] = make(map[string]string)
	}
	s.contactsByEmail[contact.OpportunityId][contact.Email] = contact.Id
	return nil
}

func (s *InMemoryStore) GetActivity(ctx context.Context, id string) (*model.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	act, ok := s.activities[id]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "activity", Key: id}
	}
	return &act, nil
}

func (s *InMemoryStore) ListActivities(ctx context.Context, opportunityId string) ([]model.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.activityByOpp[opportunityId]
	activities := make([]model.Activity, 0, len(ids))
	for _, id := range ids {
		if act, ok := s.activities[id]; ok {
			activities = append(activities, act)
		}
	}
	return activities, nil
}

func (s *InMemoryStore) GetEmailActivity(ctx context.Context, id string) (*model.EmailActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email, ok := s.emails[id]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "email activity", Key: id}
	}
	return &email, nil
}

func (s *InMemoryStore) GetEmailActivityByMessageId(ctx context.Context, messageId string) (*model.EmailActivity, error) {
	s.mu.RLock()
	id, ok := s.emailByMessage[messageId]
	s.mu.RUnlock()
	if !ok {
		return nil, persistence.NotFoundError{Kind: "email activity", Key: messageId}
	}
	return s.GetEmailActivity(ctx, id)
}

func (s *InMemoryStore) ThreadExists(ctx context.Context, threadId string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.threads[threadId]
	return ok, nil
}

func (s *InMemoryStore) WithTx(ctx context.Context, fn func(tx persistence.Tx) error) error {
	tx := &memoryTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range tx.activities {
		act := tx.activities[i]
		s.activities[act.Id] = act
		s.activityByOpp[act.OpportunityId] = append(s.activityByOpp[act.OpportunityId], act.Id)
	}
	for i := range tx.emails {
		email := tx.emails[i]
		s.emails[email.Id] = email
		s.emailByMessage[email.MessageId] = email.Id
		if email.ThreadId != "" {
			s.threads[email.ThreadId] = append(s.threads[email.ThreadId], email.Id)
		}
	}
	for oppId, stage := range tx.stageUpdates {
		opp := s.opportunities[oppId]
		opp.Stage = stage
		s.opportunities[oppId] = opp
	}
	return nil
}

var _ persistence.Tx = new(memoryTx)

type memoryTx struct {
	store        *InMemoryStore
	activities   []model.Activity
	emails       []model.EmailActivity
	stageUpdates map[string]string
}

func (t *memoryTx) GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error) {
	return t.store.GetOpportunity(ctx, id)
}

func (t *memoryTx) GetContactByEmail(ctx context.Context, opportunityId string, email string) (*model.Contact, error) {
	return t.store.GetContactByEmail(ctx, opportunityId, email)
}

func (t *memoryTx) InsertActivity(ctx context.Context, activity *model.Activity) error {
	t.activities = append(t.activities, *activity)
	return nil
}

func (t *memoryTx) InsertEmailActivity(ctx context.Context, activity *model.EmailActivity) error {
	t.emails = append(t.emails, *activity)
	return nil
}

func (t *memoryTx) UpdateOpportunityStage(ctx context.Context, opportunityId string, stage string) error {
	if _, err := t.store.GetOpportunity(ctx, opportunityId); err != nil {
		return err
	}
	if t.stageUpdates == nil {
		t.stageUpdates = make(map[string]string)
	}
	t.stageUpdates[opportunityId] = stage
	return nil
}
