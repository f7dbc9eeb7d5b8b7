package handler

import (
	"context"
	"fmt"
	"testing"

	"github.com/closeloop/actionpipe/compose"
	"github.com/closeloop/actionpipe/model"
	"github.com/stretchr/testify/require"
)

func TestEmailCompose(t *testing.T) {
	env := newTestEnv(t)
	env.workflow.content = map[string]any{
		"subject": "Renewal next steps",
		"body":    "Hi Alice, here is the summary.",
	}
	h := NewEmailHandler(env.deps)

	details := &model.EmailDetails{To: []string{"alice@acme.com"}}
	action := newAction(t, model.ACTION_TYPE_EMAIL, details)
	action.Reasoning = "customer asked for a recap"

	res := h.ComposeContent(context.Background(), action, details, env.pctx, &ComposeInput{})
	require.True(t, res.IsOk())
	require.True(t, res.Value.ContentReady())
	require.Equal(t, "Renewal next steps", *res.Value.(*model.EmailDetails).Subject)

	require.Len(t, env.workflow.requests, 1)
	req := env.workflow.requests[0]
	require.Equal(t, compose.MODE_COMPOSITION, req.ActionMode)
	require.Equal(t, "org-1", req.OrganizationId)
	require.Contains(t, req.Prompt, "customer asked for a recap")
}

func TestEmailComposeMissingField(t *testing.T) {
	env := newTestEnv(t)
	env.workflow.content = map[string]any{"subject": "only a subject"}
	h := NewEmailHandler(env.deps)

	details := &model.EmailDetails{To: []string{"alice@acme.com"}}
	action := newAction(t, model.ACTION_TYPE_EMAIL, details)

	res := h.ComposeContent(context.Background(), action, details, env.pctx, &ComposeInput{})
	require.Equal(t, model.OUTCOME_FAILED, res.Outcome)
}

func TestEmailComposeWorkflowDown(t *testing.T) {
	env := newTestEnv(t)
	env.workflow.err = fmt.Errorf("connection refused")
	h := NewEmailHandler(env.deps)

	details := &model.EmailDetails{To: []string{"alice@acme.com"}}
	action := newAction(t, model.ACTION_TYPE_EMAIL, details)

	res := h.ComposeContent(context.Background(), action, details, env.pctx, &ComposeInput{})
	require.Equal(t, model.OUTCOME_FAILED, res.Outcome)
}

func TestComposeLookupModeWithParent(t *testing.T) {
	env := newTestEnv(t)
	env.workflow.content = map[string]any{"purpose": "confirm budget holder"}
	h := NewCallHandler(env.deps)

	details := &model.CallDetails{ContactEmail: "alice@acme.com"}
	action := newAction(t, model.ACTION_TYPE_CALL, details)
	parent := newAction(t, model.ACTION_TYPE_EMAIL, map[string]any{"to": []string{"alice@acme.com"}})
	parent.Id = "act-parent"

	res := h.ComposeContent(context.Background(), action, details, env.pctx, &ComposeInput{Parent: parent})
	require.True(t, res.IsOk())

	require.Len(t, env.workflow.requests, 1)
	require.Equal(t, compose.MODE_LOOKUP, env.workflow.requests[0].ActionMode)
}
