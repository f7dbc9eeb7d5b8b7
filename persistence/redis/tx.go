package redis

import (
	"context"

	"github.com/closeloop/actionpipe/model"
	"github.com/closeloop/actionpipe/persistence"
	rd "github.com/go-redis/redis/v9"
)

var _ persistence.Tx = new(redisTx)

// redisTx buffers writes on a TxPipeline; reads pass through to the store so
// execution preconditions can be checked before anything is queued.
type redisTx struct {
	store *redisStore
	pipe  rd.Pipeliner
}

func (t *redisTx) GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error) {
	return t.store.GetOpportunity(ctx, id)
}

func (t *redisTx) GetContactByEmail(ctx context.Context, opportunityId string, email string) (*model.Contact, error) {
	return t.store.GetContactByEmail(ctx, opportunityId, email)
}

func (t *redisTx) InsertActivity(ctx context.Context, activity *model.Activity) error {
	data, err := t.store.activityEncDec.Encode(*activity)
	if err != nil {
		return err
	}
	key := t.store.getNamespaceKey(ACTIVITY, activity.Id)
	t.pipe.Set(ctx, key, data, 0)
	listKey := t.store.getNamespaceKey(ACTIVITY_BY_OPP, activity.OpportunityId)
	t.pipe.RPush(ctx, listKey, activity.Id)
	return nil
}

func (t *redisTx) InsertEmailActivity(ctx context.Context, activity *model.EmailActivity) error {
	data, err := t.store.emailActivityEncDec.Encode(*activity)
	if err != nil {
		return err
	}
	key := t.store.getNamespaceKey(EMAIL_ACTIVITY, activity.Id)
	t.pipe.Set(ctx, key, data, 0)
	msgKey := t.store.getNamespaceKey(EMAIL_MESSAGE, activity.MessageId)
	t.pipe.Set(ctx, msgKey, activity.Id, 0)
	if activity.ThreadId != "" {
		threadKey := t.store.getNamespaceKey(THREAD, activity.ThreadId)
		t.pipe.SAdd(ctx, threadKey, activity.Id)
	}
	return nil
}

func (t *redisTx) UpdateOpportunityStage(ctx context.Context, opportunityId string, stage string) error {
	opp, err := t.store.GetOpportunity(ctx, opportunityId)
	if err != nil {
		return err
	}
	opp.Stage = stage
	data, err := t.store.opportunityEncDec.Encode(*opp)
	if err != nil {
		return err
	}
	key := t.store.getNamespaceKey(OPPORTUNITY, opportunityId)
	t.pipe.Set(ctx, key, data, 0)
	return nil
}
