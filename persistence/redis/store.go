package redis

import (
	"context"

	"github.com/closeloop/actionpipe/logger"
	"github.com/closeloop/actionpipe/model"
	"github.com/closeloop/actionpipe/persistence"
	"github.com/closeloop/actionpipe/util"
	rd "github.com/go-redis/redis/v9"
	"go.uber.org/zap"
)

const OPPORTUNITY string = "OPPORTUNITY"
const CONTACT string = "CONTACT"
const CONTACT_EMAIL string = "CONTACT_EMAIL"
const ACTIVITY string = "ACTIVITY"
const ACTIVITY_BY_OPP string = "ACTIVITY_BY_OPP"
const EMAIL_ACTIVITY string = "EMAIL_ACTIVITY"
const EMAIL_MESSAGE string = "EMAIL_MESSAGE"
const THREAD string = "THREAD"

var _ persistence.Store = new(redisStore)

type redisStore struct {
	*baseDao
	opportunityEncDec   util.EncoderDecoder[model.Opportunity]
	contactEncDec       util.EncoderDecoder[model.Contact]
	activityEncDec      util.EncoderDecoder[model.Activity]
	emailActivityEncDec util.EncoderDecoder[model.EmailActivity]
}

func NewRedisStore(conf Config) *redisStore {
	return &redisStore{
		baseDao:             newBaseDao(conf),
		opportunityEncDec:   util.NewJsonEncoderDecoder[model.Opportunity](),
		contactEncDec:       util.NewJsonEncoderDecoder[model.Contact](),
		activityEncDec:      util.NewJsonEncoderDecoder[model.Activity](),
		emailActivityEncDec: util.NewJsonEncoderDecoder[model.EmailActivity](),
	}
}

func (s *redisStore) GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error) {
	key := s.getNamespaceKey(OPPORTUNITY, id)
	val, err := s.redisClient.Get(ctx, key).Result()
	if err == rd.Nil {
		return nil, persistence.NotFoundError{Kind: "opportunity", Key: id}
	}
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return s.opportunityEncDec.Decode([]byte(val))
}

func (s *redisStore) SaveOpportunity(ctx context.Context, opp *model.Opportunity) error {
	data, err := s.opportunityEncDec.Encode(*opp)
	if err != nil {
		return err
	}
	key := s.getNamespaceKey(OPPORTUNITY, opp.Id)
	if err := s.redisClient.Set(ctx, key, data, 0).Err(); err != nil {
		logger.Error("error in saving opportunity", zap.String("id", opp.Id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (s *redisStore) GetContact(ctx context.Context, id string) (*model.Contact, error) {
	key := s.getNamespaceKey(CONTACT, id)
	val, err := s.redisClient.Get(ctx, key).Result()
	if err == rd.Nil {
		return nil, persistence.NotFoundError{Kind: "contact", Key: id}
	}
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return s.contactEncDec.Decode([]byte(val))
}

func (s *redisStore) GetContactByEmail(ctx context.Context, opportunityId string, email string) (*model.Contact, error) {
	key := s.getNamespaceKey(CONTACT_EMAIL, opportunityId)
	val, err := s.redisClient.HGet(ctx, key, email).Result()
	if err == rd.Nil {
		return nil, persistence.NotFoundError{Kind: "contact", Key: email}
	}
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return s.contactEncDec.Decode([]byte(val))
}

func (s *redisStore) SaveContact(ctx context.Context, contact *model.Contact) error {
	data, err := s.contactEncDec.Encode(*contact)
	if err != nil {
		return err
	}
	key := s.getNamespaceKey(CONTACT, contact.Id)
	if err := s.redisClient.Set(ctx, key, data, 0).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	emailKey := s.getNamespaceKey(CONTACT_EMAIL, contact.OpportunityId)
	if err := s.redisClient.HSet(ctx, emailKey, []string{contact.Email, string(data)}).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (s *redisStore) GetActivity(ctx context.Context, id string) (*model.Activity, error) {
	key := s.getNamespaceKey(ACTIVITY, id)
	val, err := s.redisClient.Get(ctx, key).Result()
	if err == rd.Nil {
		return nil, persistence.NotFoundError{Kind: "activity", Key: id}
	}
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return s.activityEncDec.Decode([]byte(val))
}

func (s *redisStore) ListActivities(ctx context.Context, opportunityId string) ([]model.Activity, error) {
	key := s.getNamespaceKey(ACTIVITY_BY_OPP, opportunityId)
	ids, err := s.redisClient.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	activities := make([]model.Activity, 0, len(ids))
	for _, id := range ids {
		act, err := s.GetActivity(ctx, id)
		if err != nil {
			if persistence.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		activities = append(activities, *act)
	}
	return activities, nil
}

func (s *redisStore) GetEmailActivity(ctx context.Context, id string) (*model.EmailActivity, error) {
	key := s.getNamespaceKey(EMAIL_ACTIVITY, id)
	val, err := s.redisClient.Get(ctx, key).Result()
	if err == rd.Nil {
		return nil, persistence.NotFoundError{Kind: "email activity", Key: id}
	}
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return s.emailActivityEncDec.Decode([]byte(val))
}

func (s *redisStore) GetEmailActivityByMessageId(ctx context.Context, messageId string) (*model.EmailActivity, error) {
	key := s.getNamespaceKey(EMAIL_MESSAGE, messageId)
	id, err := s.redisClient.Get(ctx, key).Result()
	if err == rd.Nil {
		return nil, persistence.NotFoundError{Kind: "email activity", Key: messageId}
	}
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return s.GetEmailActivity(ctx, id)
}

func (s *redisStore) ThreadExists(ctx context.Context, threadId string) (bool, error) {
	key := s.getNamespaceKey(THREAD, threadId)
	count, err := s.redisClient.Exists(ctx, key).Result()
	if err != nil {
		return false, persistence.StorageLayerError{Message: err.Error()}
	}
	return count > 0, nil
}

func (s *redisStore) WithTx(ctx context.Context, fn func(tx persistence.Tx) error) error {
	pipe := s.redisClient.TxPipeline()
	tx := &redisTx{store: s, pipe: pipe}
	if err := fn(tx); err != nil {
		pipe.Discard()
		return err
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("error committing transaction", zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
