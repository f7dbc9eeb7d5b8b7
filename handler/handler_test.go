package handler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/closeloop/actionpipe/cache"
	"github.com/closeloop/actionpipe/compose"
	"github.com/closeloop/actionpipe/model"
	"github.com/closeloop/actionpipe/persistence"
	"github.com/closeloop/actionpipe/persistence/memory"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 10, 30, 45, 0, time.UTC)

type fakeWorkflow struct {
	content  map[string]any
	err      error
	requests []compose.Request
}

func (f *fakeWorkflow) Compose(ctx context.Context, req compose.Request) (map[string]any, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.content, nil
}

type testEnv struct {
	store    *memory.InMemoryStore
	workflow *fakeWorkflow
	deps     Deps
	pctx     *model.PipelineContext
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewInMemoryStore()
	workflow := &fakeWorkflow{content: map[string]any{}}
	opp := &model.Opportunity{
		Id:             "opp-1",
		OrganizationId: "org-1",
		Name:           "Acme renewal",
		Stage:          "qualification",
		Value:          50000,
		Data:           map[string]any{"budget": "approved"},
	}
	require.NoError(t, store.SaveOpportunity(context.Background(), opp))
	contacts := []model.Contact{
		{Id: "c-1", OpportunityId: "opp-1", Name: "Alice", Email: "alice@acme.com", Role: "economic buyer"},
		{Id: "c-2", OpportunityId: "opp-1", Name: "Bob", Email: "bob@acme.com", Role: "champion"},
	}
	for i := range contacts {
		require.NoError(t, store.SaveContact(context.Background(), &contacts[i]))
	}
	return &testEnv{
		store:    store,
		workflow: workflow,
		deps: Deps{
			Store:      store,
			Workflow:   workflow,
			Disabled:   map[model.ActionType]bool{},
			EmailCache: cache.NewEmailLookupCache(),
			Now:        func() time.Time { return testNow },
		},
		pctx: &model.PipelineContext{
			Opportunity: opp,
			Contacts:    contacts,
		},
	}
}

func newAction(t *testing.T, actionType model.ActionType, details any) *model.ProposedAction {
	t.Helper()
	raw, err := json.Marshal(details)
	require.NoError(t, err)
	return &model.ProposedAction{
		Id:            "act-1",
		Type:          actionType,
		OpportunityId: "opp-1",
		Details:       raw,
		Status:        model.STATUS_PROPOSED,
	}
}

func executeInTx(t *testing.T, store persistence.Store, h Handler, action *model.ProposedAction, details model.Details) (*model.ExecutionResult, error) {
	t.Helper()
	var result *model.ExecutionResult
	err := store.WithTx(context.Background(), func(tx persistence.Tx) error {
		var execErr error
		result, execErr = h.Execute(context.Background(), action, details, model.Identity{UserId: "u-1", OrganizationId: "org-1"}, tx)
		return execErr
	})
	return result, err
}
