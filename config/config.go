package config

import "github.com/closeloop/actionpipe/model"

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

type Config struct {
	RedisConfig           RedisStorageConfig
	StorageType           StorageType
	HttpPort              int
	WorkflowURL           string
	ComposeTimeoutSeconds int
	StoreTimeoutSeconds   int
	ExecutorCapacity      int
	ExecutorWorkers       int
	// DisabledTypes are feature-flagged off: their execute stage performs no
	// write and reports a disabled outcome.
	DisabledTypes []string
	// HiddenTypes stay executable but are excluded from the offerable-type
	// listing served to upstream callers.
	HiddenTypes []string
	AuditFile   string
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
}

// defaultHiddenTypes are excluded from the offerable listing unless the
// operator configures hidden types explicitly.
var defaultHiddenTypes = []string{
	string(model.ACTION_TYPE_TASK),
	string(model.ACTION_TYPE_LOOKUP),
}

func (c Config) DisabledTypeSet() map[model.ActionType]bool {
	return toTypeSet(c.DisabledTypes)
}

func (c Config) HiddenTypeSet() map[model.ActionType]bool {
	if c.HiddenTypes == nil {
		return toTypeSet(defaultHiddenTypes)
	}
	return toTypeSet(c.HiddenTypes)
}

func toTypeSet(names []string) map[model.ActionType]bool {
	set := make(map[model.ActionType]bool, len(names))
	for _, n := range names {
		t, err := model.ToActionType(n)
		if err != nil {
			continue
		}
		set[t] = true
	}
	return set
}
