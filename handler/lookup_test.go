package handler

import (
	"context"
	"testing"

	"github.com/closeloop/actionpipe/model"
	"github.com/stretchr/testify/require"
)

func TestLookupValidate(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T, h *LookupHandler, env *testEnv,
	){
		"relative path skips":  testLookupRelativePath,
		"unknown source skips": testLookupUnknownSource,
		"valid query passes":   testLookupValid,
	} {
		t.Run(scenario, func(t *testing.T) {
			env := newTestEnv(t)
			fn(t, NewLookupHandler(env.deps), env)
		})
	}
}

func testLookupRelativePath(t *testing.T, h *LookupHandler, env *testEnv) {
	action := newAction(t, model.ACTION_TYPE_LOOKUP, map[string]any{
		"source": "opportunity",
		"path":   "budget",
	})
	res := h.ValidateDetails(context.Background(), action, env.pctx)
	require.Equal(t, model.OUTCOME_SKIPPED, res.Outcome)
}

func testLookupUnknownSource(t *testing.T, h *LookupHandler, env *testEnv) {
	action := newAction(t, model.ACTION_TYPE_LOOKUP, map[string]any{
		"source": "weather",
		"path":   "$.budget",
	})
	res := h.ValidateDetails(context.Background(), action, env.pctx)
	require.Equal(t, model.OUTCOME_SKIPPED, res.Outcome)
}

func testLookupValid(t *testing.T, h *LookupHandler, env *testEnv) {
	action := newAction(t, model.ACTION_TYPE_LOOKUP, map[string]any{
		"source": "opportunity",
		"path":   "$.budget",
	})
	res := h.ValidateDetails(context.Background(), action, env.pctx)
	require.True(t, res.IsOk())
}

func TestLookupExecute(t *testing.T) {
	env := newTestEnv(t)
	h := NewLookupHandler(env.deps)

	details := &model.LookupDetails{Source: model.LOOKUP_SOURCE_OPPORTUNITY, Path: "$.budget"}
	action := newAction(t, model.ACTION_TYPE_LOOKUP, details)

	result, err := executeInTx(t, env.store, h, action, details)
	require.NoError(t, err)
	require.Equal(t, model.EXEC_CREATED, result.Outcome)
	require.Equal(t, "approved", result.Output)
	require.NotNil(t, details.Answer)
	require.Equal(t, "approved", *details.Answer)

	stored, err := env.store.GetActivity(context.Background(), result.CreatedRecordId)
	require.NoError(t, err)
	require.Equal(t, "approved", stored.Data["answer"])
}

func TestLookupExecuteBadPath(t *testing.T) {
	env := newTestEnv(t)
	h := NewLookupHandler(env.deps)

	details := &model.LookupDetails{Source: model.LOOKUP_SOURCE_OPPORTUNITY, Path: "$.nonexistent"}
	action := newAction(t, model.ACTION_TYPE_LOOKUP, details)

	_, err := executeInTx(t, env.store, h, action, details)
	require.Error(t, err)

	activities, listErr := env.store.ListActivities(context.Background(), "opp-1")
	require.NoError(t, listErr)
	require.Empty(t, activities)
}
