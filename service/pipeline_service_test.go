package service

import (
	"context"
	"testing"

	"github.com/closeloop/actionpipe/config"
	"github.com/closeloop/actionpipe/handler"
	"github.com/closeloop/actionpipe/model"
	"github.com/closeloop/actionpipe/persistence"
	"github.com/closeloop/actionpipe/registry"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
)

type listedHandler struct {
	actionType model.ActionType
}

func (h *listedHandler) Type() model.ActionType { return h.actionType }

func (h *listedHandler) Schema() *jsonschema.Schema { return nil }

func (h *listedHandler) ValidateDetails(ctx context.Context, action *model.ProposedAction, pctx *model.PipelineContext) model.Result[model.Details] {
	return model.Skipped[model.Details]("not under test")
}

func (h *listedHandler) ComposeContent(ctx context.Context, action *model.ProposedAction, details model.Details, pctx *model.PipelineContext, in *handler.ComposeInput) model.Result[model.Details] {
	return model.Ok(details)
}

func (h *listedHandler) Execute(ctx context.Context, action *model.ProposedAction, details model.Details, identity model.Identity, tx persistence.Tx) (*model.ExecutionResult, error) {
	return nil, nil
}

func serviceWithTypes(t *testing.T, conf config.Config, types ...model.ActionType) *PipelineService {
	t.Helper()
	reg := registry.New()
	for _, at := range types {
		require.NoError(t, reg.Register(&listedHandler{actionType: at}))
	}
	return NewPipelineService(reg, nil, conf)
}

func TestOfferableTypesHidesDefaultSet(t *testing.T) {
	s := serviceWithTypes(t, config.Config{},
		model.ACTION_TYPE_EMAIL,
		model.ACTION_TYPE_CALL,
		model.ACTION_TYPE_TASK,
		model.ACTION_TYPE_LOOKUP,
	)
	require.Equal(t, []model.ActionType{model.ACTION_TYPE_CALL, model.ACTION_TYPE_EMAIL}, s.OfferableTypes())
}

func TestOfferableTypesHonorsConfiguredHiddenSet(t *testing.T) {
	s := serviceWithTypes(t, config.Config{HiddenTypes: []string{"EMAIL"}},
		model.ACTION_TYPE_EMAIL,
		model.ACTION_TYPE_CALL,
		model.ACTION_TYPE_TASK,
	)
	require.Equal(t, []model.ActionType{model.ACTION_TYPE_CALL, model.ACTION_TYPE_TASK}, s.OfferableTypes())
}

func TestProcessActionRejectsMalformedRequests(t *testing.T) {
	s := serviceWithTypes(t, config.Config{}, model.ACTION_TYPE_EMAIL)

	scenarios := map[string]*model.PipelineRequest{
		"nil request": nil,
		"no action":   {Context: &model.PipelineContext{Opportunity: &model.Opportunity{Id: "opp-1"}}},
		"no action id": {
			Action:  &model.ProposedAction{Type: model.ACTION_TYPE_EMAIL},
			Context: &model.PipelineContext{Opportunity: &model.Opportunity{Id: "opp-1"}},
		},
		"no opportunity": {
			Action: &model.ProposedAction{Id: "a-1", Type: model.ACTION_TYPE_EMAIL},
		},
	}
	for name, req := range scenarios {
		t.Run(name, func(t *testing.T) {
			_, err := s.ProcessAction(context.Background(), req)
			require.Error(t, err)
		})
	}
}
