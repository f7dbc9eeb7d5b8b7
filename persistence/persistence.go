package persistence

import (
	"context"
	"fmt"

	"github.com/closeloop/actionpipe/model"
)

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

type NotFoundError struct {
	Kind string
	Key  string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

func IsNotFound(err error) bool {
	_, ok := err.(NotFoundError)
	return ok
}

// Store is the read/write boundary to the CRM document store. Lookups are by
// id or by secondary key (email address, message identity, thread identity).
type Store interface {
	GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error)
	SaveOpportunity(ctx context.Context, opp *model.Opportunity) error

	GetContact(ctx context.Context, id string) (*model.Contact, error)
	GetContactByEmail(ctx context.Context, opportunityId string, email string) (*model.Contact, error)
	SaveContact(ctx context.Context, contact *model.Contact) error

	GetActivity(ctx context.Context, id string) (*model.Activity, error)
	ListActivities(ctx context.Context, opportunityId string) ([]model.Activity, error)

	GetEmailActivity(ctx context.Context, id string) (*model.EmailActivity, error)
	GetEmailActivityByMessageId(ctx context.Context, messageId string) (*model.EmailActivity, error)
	ThreadExists(ctx context.Context, threadId string) (bool, error)

	// WithTx runs fn inside a transaction scope. Writes queued on the Tx are
	// committed atomically when fn returns nil and discarded when it returns
	// an error. One action's execution maps to exactly one scope.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transaction scope handed to a handler's execute stage. Reads go
// straight to the store; writes are buffered until commit.
type Tx interface {
	GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error)
	GetContactByEmail(ctx context.Context, opportunityId string, email string) (*model.Contact, error)

	InsertActivity(ctx context.Context, activity *model.Activity) error
	InsertEmailActivity(ctx context.Context, activity *model.EmailActivity) error
	UpdateOpportunityStage(ctx context.Context, opportunityId string, stage string) error
}
