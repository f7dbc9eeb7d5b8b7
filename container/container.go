package container

import (
	"time"

	"github.com/closeloop/actionpipe/analytics"
	"github.com/closeloop/actionpipe/cache"
	"github.com/closeloop/actionpipe/compose"
	"github.com/closeloop/actionpipe/config"
	"github.com/closeloop/actionpipe/handler"
	"github.com/closeloop/actionpipe/persistence"
	"github.com/closeloop/actionpipe/persistence/memory"
	rd "github.com/closeloop/actionpipe/persistence/redis"
	"github.com/closeloop/actionpipe/registry"
)

type DIContiner struct {
	initialized bool
	store       persistence.Store
	workflow    compose.WorkflowClient
	registry    *registry.Registry
	audit       *analytics.AuditTrail
	emailCache  *cache.EmailLookupCache
}

func (d *DIContiner) setInitialized() {
	d.initialized = true
}

func NewDiContainer() *DIContiner {
	return &DIContiner{
		initialized: false,
	}
}

func (d *DIContiner) Init(conf config.Config) error {
	switch conf.StorageType {
	case config.STORAGE_TYPE_REDIS:
		rdConf := rd.Config{
			Addrs:     conf.RedisConfig.Addrs,
			Namespace: conf.RedisConfig.Namespace,
		}
		d.store = rd.NewRedisStore(rdConf)
	default:
		d.store = memory.NewInMemoryStore()
	}

	// A pipeline without a composition backend cannot produce content for any
	// action; a missing URL is a startup defect, not a runtime condition.
	workflow, err := compose.NewHttpWorkflowClient(conf.WorkflowURL, time.Duration(conf.ComposeTimeoutSeconds)*time.Second)
	if err != nil {
		return err
	}
	d.workflow = workflow

	if conf.AuditFile != "" {
		audit, err := analytics.NewAuditTrail(conf.AuditFile)
		if err != nil {
			return err
		}
		d.audit = audit
	}

	d.emailCache = cache.NewEmailLookupCache()

	deps := handler.Deps{
		Store:      d.store,
		Workflow:   d.workflow,
		Disabled:   conf.DisabledTypeSet(),
		EmailCache: d.emailCache,
	}
	d.registry = registry.New()
	handlers := []handler.Handler{
		handler.NewEmailHandler(deps),
		handler.NewCallHandler(deps),
		handler.NewTaskHandler(deps),
		handler.NewLinkedInMessageHandler(deps),
		handler.NewMeetingHandler(deps),
		handler.NewLookupHandler(deps),
		handler.NewNoActionHandler(deps),
		handler.NewUpdatePipelineStageHandler(deps),
	}
	for _, h := range handlers {
		if err := d.registry.Register(h); err != nil {
			return err
		}
	}

	d.setInitialized()
	return nil
}

func (d *DIContiner) GetStore() persistence.Store {
	if !d.initialized {
		panic("container not initialized")
	}
	return d.store
}

func (d *DIContiner) GetWorkflowClient() compose.WorkflowClient {
	if !d.initialized {
		panic("container not initialized")
	}
	return d.workflow
}

func (d *DIContiner) GetRegistry() *registry.Registry {
	if !d.initialized {
		panic("container not initialized")
	}
	return d.registry
}

func (d *DIContiner) GetAuditTrail() *analytics.AuditTrail {
	if !d.initialized {
		panic("container not initialized")
	}
	return d.audit
}

func (d *DIContiner) GetEmailLookupCache() *cache.EmailLookupCache {
	if !d.initialized {
		panic("container not initialized")
	}
	return d.emailCache
}
