package cache

import (
	"time"

	"github.com/closeloop/actionpipe/model"
	c "github.com/patrickmn/go-cache"
)

// EmailLookupCache memoizes reply-reference resolution so repeated actions
// against the same thread do not hit the document store again.
type EmailLookupCache struct {
	cache *c.Cache
}

func NewEmailLookupCache() *EmailLookupCache {
	return &EmailLookupCache{
		cache: c.New(10*time.Minute, 10*time.Minute),
	}
}

func (ch *EmailLookupCache) SaveResolved(messageId string, email *model.EmailActivity) {
	ch.cache.Set(messageId, email, c.DefaultExpiration)
}

func (ch *EmailLookupCache) GetResolved(messageId string) (*model.EmailActivity, bool) {
	val, found := ch.cache.Get(messageId)
	if found {
		return val.(*model.EmailActivity), true
	}
	return nil, false
}
