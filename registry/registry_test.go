package registry

import (
	"context"
	"testing"

	"github.com/closeloop/actionpipe/handler"
	"github.com/closeloop/actionpipe/model"
	"github.com/closeloop/actionpipe/persistence"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	actionType model.ActionType
	tag        string
}

func (s *stubHandler) Type() model.ActionType { return s.actionType }

func (s *stubHandler) Schema() *jsonschema.Schema { return nil }

func (s *stubHandler) ValidateDetails(ctx context.Context, action *model.ProposedAction, pctx *model.PipelineContext) model.Result[model.Details] {
	return model.Skipped[model.Details]("stub")
}

func (s *stubHandler) ComposeContent(ctx context.Context, action *model.ProposedAction, details model.Details, pctx *model.PipelineContext, in *handler.ComposeInput) model.Result[model.Details] {
	return model.Ok(details)
}

func (s *stubHandler) Execute(ctx context.Context, action *model.ProposedAction, details model.Details, identity model.Identity, tx persistence.Tx) (*model.ExecutionResult, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, r *Registry){
		"get returns registered handler":  testRegistryGet,
		"unknown type is not found":       testRegistryNotFound,
		"duplicate registration rejected": testRegistryDuplicate,
		"override replaces handler":       testRegistryOverride,
		"list excludes and sorts":         testRegistryList,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, New())
		})
	}
}

func testRegistryGet(t *testing.T, r *Registry) {
	h := &stubHandler{actionType: model.ACTION_TYPE_EMAIL}
	require.NoError(t, r.Register(h))

	got, err := r.Get(model.ACTION_TYPE_EMAIL)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func testRegistryNotFound(t *testing.T, r *Registry) {
	_, err := r.Get(model.ACTION_TYPE_CALL)
	require.Error(t, err)
	require.True(t, IsNotFound(err))
}

func testRegistryDuplicate(t *testing.T, r *Registry) {
	require.NoError(t, r.Register(&stubHandler{actionType: model.ACTION_TYPE_EMAIL}))
	require.Error(t, r.Register(&stubHandler{actionType: model.ACTION_TYPE_EMAIL}))
}

func testRegistryOverride(t *testing.T, r *Registry) {
	require.NoError(t, r.Register(&stubHandler{actionType: model.ACTION_TYPE_EMAIL, tag: "first"}))
	r.Override(&stubHandler{actionType: model.ACTION_TYPE_EMAIL, tag: "second"})

	got, err := r.Get(model.ACTION_TYPE_EMAIL)
	require.NoError(t, err)
	require.Equal(t, "second", got.(*stubHandler).tag)
}

func testRegistryList(t *testing.T, r *Registry) {
	require.NoError(t, r.Register(&stubHandler{actionType: model.ACTION_TYPE_TASK}))
	require.NoError(t, r.Register(&stubHandler{actionType: model.ACTION_TYPE_CALL}))
	require.NoError(t, r.Register(&stubHandler{actionType: model.ACTION_TYPE_EMAIL}))

	all := r.List(nil)
	require.Len(t, all, 3)
	require.Equal(t, model.ACTION_TYPE_CALL, all[0].Type())

	visible := r.List(map[model.ActionType]bool{model.ACTION_TYPE_CALL: true})
	require.Len(t, visible, 2)
	for _, h := range visible {
		require.NotEqual(t, model.ACTION_TYPE_CALL, h.Type())
	}

	types := r.Types()
	require.Equal(t, []model.ActionType{model.ACTION_TYPE_CALL, model.ACTION_TYPE_EMAIL, model.ACTION_TYPE_TASK}, types)
}
