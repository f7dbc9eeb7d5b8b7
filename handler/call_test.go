package handler

import (
	"context"
	"testing"

	"github.com/closeloop/actionpipe/model"
	"github.com/stretchr/testify/require"
)

func TestCallValidate(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T, h *CallHandler, env *testEnv,
	){
		"unknown contact skips":               testCallUnknownContact,
		"missing schedule defaults to now":    testCallDefaultSchedule,
		"past schedule moves to next day":     testCallPastSchedule,
		"future schedule kept":                testCallFutureSchedule,
		"garbage schedule skips":              testCallGarbageSchedule,
		"normalized schedule stays put on re": testCallScheduleIdempotent,
	} {
		t.Run(scenario, func(t *testing.T) {
			env := newTestEnv(t)
			fn(t, NewCallHandler(env.deps), env)
		})
	}
}

func testCallUnknownContact(t *testing.T, h *CallHandler, env *testEnv) {
	action := newAction(t, model.ACTION_TYPE_CALL, map[string]any{
		"contactEmail": "stranger@elsewhere.com",
	})
	res := h.ValidateDetails(context.Background(), action, env.pctx)
	require.Equal(t, model.OUTCOME_SKIPPED, res.Outcome)
}

func testCallDefaultSchedule(t *testing.T, h *CallHandler, env *testEnv) {
	action := newAction(t, model.ACTION_TYPE_CALL, map[string]any{
		"contactEmail": "alice@acme.com",
	})
	res := h.ValidateDetails(context.Background(), action, env.pctx)
	require.True(t, res.IsOk())
	details := res.Value.(*model.CallDetails)
	require.Equal(t, "2026-03-01T10:30:45Z", details.ScheduledFor)
}

func testCallPastSchedule(t *testing.T, h *CallHandler, env *testEnv) {
	action := newAction(t, model.ACTION_TYPE_CALL, map[string]any{
		"contactEmail": "alice@acme.com",
		"scheduledFor": "2026-02-27T09:00:00Z",
	})
	res := h.ValidateDetails(context.Background(), action, env.pctx)
	require.True(t, res.IsOk())
	details := res.Value.(*model.CallDetails)
	require.Equal(t, "2026-03-02T09:00:00Z", details.ScheduledFor)
}

func testCallFutureSchedule(t *testing.T, h *CallHandler, env *testEnv) {
	action := newAction(t, model.ACTION_TYPE_CALL, map[string]any{
		"contactEmail": "alice@acme.com",
		"scheduledFor": "2026-03-10T15:00:00Z",
	})
	res := h.ValidateDetails(context.Background(), action, env.pctx)
	require.True(t, res.IsOk())
	details := res.Value.(*model.CallDetails)
	require.Equal(t, "2026-03-10T15:00:00Z", details.ScheduledFor)
}

func testCallGarbageSchedule(t *testing.T, h *CallHandler, env *testEnv) {
	action := newAction(t, model.ACTION_TYPE_CALL, map[string]any{
		"contactEmail": "alice@acme.com",
		"scheduledFor": "next tuesday",
	})
	res := h.ValidateDetails(context.Background(), action, env.pctx)
	require.Equal(t, model.OUTCOME_SKIPPED, res.Outcome)
}

func testCallScheduleIdempotent(t *testing.T, h *CallHandler, env *testEnv) {
	action := newAction(t, model.ACTION_TYPE_CALL, map[string]any{
		"contactEmail": "alice@acme.com",
		"scheduledFor": "2026-02-27T09:00:00Z",
	})
	first := h.ValidateDetails(context.Background(), action, env.pctx)
	require.True(t, first.IsOk())

	again := newAction(t, model.ACTION_TYPE_CALL, first.Value)
	second := h.ValidateDetails(context.Background(), again, env.pctx)
	require.True(t, second.IsOk())
	require.Equal(t, first.Value, second.Value)
}

func TestCallExecute(t *testing.T) {
	env := newTestEnv(t)
	h := NewCallHandler(env.deps)

	purpose := "Discuss pricing"
	details := &model.CallDetails{
		ContactEmail: "alice@acme.com",
		ScheduledFor: "2026-03-10T15:00:00Z",
		Purpose:      &purpose,
	}
	action := newAction(t, model.ACTION_TYPE_CALL, details)

	result, err := executeInTx(t, env.store, h, action, details)
	require.NoError(t, err)
	require.Equal(t, model.EXEC_CREATED, result.Outcome)
	require.Equal(t, "2026-03-10T15:00:00Z", result.ScheduledFor)

	stored, err := env.store.GetActivity(context.Background(), result.CreatedRecordId)
	require.NoError(t, err)
	require.Equal(t, model.ACTION_TYPE_CALL, stored.Type)
	require.Equal(t, purpose, stored.Summary)
	require.Equal(t, "c-1", stored.Data["contactId"])
}

func TestCallExecuteMissingOpportunity(t *testing.T) {
	env := newTestEnv(t)
	h := NewCallHandler(env.deps)

	purpose := "Discuss pricing"
	details := &model.CallDetails{ContactEmail: "alice@acme.com", Purpose: &purpose}
	action := newAction(t, model.ACTION_TYPE_CALL, details)
	action.OpportunityId = "opp-missing"

	_, err := executeInTx(t, env.store, h, action, details)
	require.Error(t, err)

	activities, listErr := env.store.ListActivities(context.Background(), "opp-1")
	require.NoError(t, listErr)
	require.Empty(t, activities)
}
