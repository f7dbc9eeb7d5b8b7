package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/closeloop/actionpipe/analytics"
	"github.com/closeloop/actionpipe/compose"
	"github.com/closeloop/actionpipe/handler"
	"github.com/closeloop/actionpipe/logger"
	"github.com/closeloop/actionpipe/model"
	"github.com/closeloop/actionpipe/persistence"
	"github.com/closeloop/actionpipe/registry"
	"go.uber.org/zap"
)

type StageStatus string

const STAGE_PENDING StageStatus = "PENDING"
const STAGE_VALIDATING StageStatus = "VALIDATING"
const STAGE_COMPOSING StageStatus = "COMPOSING"
const STAGE_EXECUTING StageStatus = "EXECUTING"
const STAGE_COMPLETED StageStatus = "COMPLETED"
const STAGE_CANCELLED StageStatus = "CANCELLED"
const STAGE_FAILED StageStatus = "FAILED"

// STAGE_DISABLED marks an action whose type is feature-flagged off: handled
// terminally, with no write, distinct from both success and failure.
const STAGE_DISABLED StageStatus = "DISABLED"

func (s StageStatus) Terminal() bool {
	switch s {
	case STAGE_COMPLETED, STAGE_CANCELLED, STAGE_FAILED, STAGE_DISABLED:
		return true
	}
	return false
}

// ActionRun is the orchestrator's bookkeeping for one action in a pipeline
// run. The validated details are threaded forward explicitly instead of
// mutating the proposed action in place.
type ActionRun struct {
	Action  *model.ProposedAction  `json:"action"`
	Details model.Details          `json:"details,omitempty"`
	Status  StageStatus            `json:"status"`
	Result  *model.ExecutionResult `json:"result,omitempty"`
	Reason  string                 `json:"reason,omitempty"`
}

func (r *ActionRun) executed() bool {
	return r.Result != nil && r.Result.Outcome == model.EXEC_CREATED
}

type RunReport struct {
	MainActionId    string                `json:"mainActionId"`
	MainStatus      StageStatus           `json:"mainStatus"`
	Runs            map[string]*ActionRun `json:"runs"`
	Inconsistencies []string              `json:"inconsistencies,omitempty"`
}

type Orchestrator struct {
	registry       *registry.Registry
	store          persistence.Store
	audit          *analytics.AuditTrail
	composeTimeout time.Duration
	storeTimeout   time.Duration
}

func NewOrchestrator(reg *registry.Registry, store persistence.Store, audit *analytics.AuditTrail, composeTimeout time.Duration, storeTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		registry:       reg,
		store:          store,
		audit:          audit,
		composeTimeout: composeTimeout,
		storeTimeout:   storeTimeout,
	}
}

// Process walks one main action and its sub-actions through the stage
// sequence. Sub-actions run before the main action, in topological order of
// their dependsOn edges; stages within one action are strictly sequential.
func (o *Orchestrator) Process(ctx context.Context, req *model.PipelineRequest) *RunReport {
	action := req.Action
	report := &RunReport{
		MainActionId: action.Id,
		Runs:         make(map[string]*ActionRun),
	}
	mainRun := o.newRun(action, report)
	for _, sub := range action.SubActions {
		o.newRun(sub, report)
	}

	if action.Status.Terminal() {
		mainRun.Status = STAGE_CANCELLED
		mainRun.Reason = fmt.Sprintf("action already in terminal status %s", action.Status)
		report.MainStatus = mainRun.Status
		return report
	}
	for _, sub := range action.SubActions {
		if len(sub.SubActions) > 0 {
			o.cancelAll(report, action, "sub-actions may not nest further")
			report.MainStatus = STAGE_CANCELLED
			return report
		}
	}

	sorted, err := SortSubActions(action.SubActions)
	if err != nil {
		logger.Error("sub-action ordering failed", zap.String("action", action.Id), zap.Error(err))
		o.cancelAll(report, action, err.Error())
		report.MainStatus = STAGE_CANCELLED
		return report
	}

	// The main action validates first: a main that can never proceed should
	// not cause sub-action side effects.
	mainHandler, res := o.validate(ctx, mainRun, req.Context)
	if !res {
		o.cascadeCancel(report, action, "main action cancelled before sub-actions ran")
		report.MainStatus = mainRun.Status
		action.Status = model.STATUS_CANCELLED
		return report
	}

	for _, sub := range sorted {
		o.runSubAction(ctx, report.Runs[sub.Id], action, report, req)
	}

	subOutputs := o.collectSubOutputs(action, report)
	if !o.composeAndExecute(ctx, mainRun, mainHandler, req, &handler.ComposeInput{SubOutputs: subOutputs}) {
		if mainRun.Status == STAGE_CANCELLED {
			action.Status = model.STATUS_CANCELLED
			o.recordExecutedOrphans(report, action)
		}
		report.MainStatus = mainRun.Status
		return report
	}

	if mainRun.Status == STAGE_COMPLETED {
		action.Status = model.STATUS_COMPLETED
	}
	report.MainStatus = mainRun.Status
	return report
}

func (o *Orchestrator) newRun(action *model.ProposedAction, report *RunReport) *ActionRun {
	run := &ActionRun{Action: action, Status: STAGE_PENDING}
	report.Runs[action.Id] = run
	return run
}

func (o *Orchestrator) runSubAction(ctx context.Context, run *ActionRun, parent *model.ProposedAction, report *RunReport, req *model.PipelineRequest) {
	h, ok := o.validate(ctx, run, req.Context)
	if !ok {
		run.Action.Status = model.STATUS_CANCELLED
		return
	}
	in := &handler.ComposeInput{
		Parent:     parent,
		SubOutputs: o.siblingOutputs(run.Action, report),
	}
	if o.composeAndExecute(ctx, run, h, req, in) {
		if run.Status == STAGE_COMPLETED {
			run.Action.Status = model.STATUS_COMPLETED
		}
	} else if run.Status == STAGE_CANCELLED {
		run.Action.Status = model.STATUS_CANCELLED
	}
}

// validate runs the validating stage. It returns the handler and whether the
// pipeline should continue with this action.
func (o *Orchestrator) validate(ctx context.Context, run *ActionRun, pctx *model.PipelineContext) (handler.Handler, bool) {
	action := run.Action
	run.Status = STAGE_VALIDATING

	h, err := o.registry.Get(action.Type)
	if err != nil {
		run.Status = STAGE_CANCELLED
		run.Reason = err.Error()
		logger.Info("no action possible for type", zap.String("action", action.Id), zap.String("type", string(action.Type)))
		o.auditDrop(run, "validating")
		return nil, false
	}

	res := h.ValidateDetails(ctx, action, pctx)
	switch res.Outcome {
	case model.OUTCOME_OK:
		run.Details = res.Value
		return h, true
	case model.OUTCOME_SKIPPED:
		run.Status = STAGE_CANCELLED
		run.Reason = res.Reason
		logger.Debug("action dropped in validation", zap.String("action", action.Id), zap.String("reason", res.Reason))
		o.auditDrop(run, "validating")
		return nil, false
	default:
		run.Status = STAGE_CANCELLED
		run.Reason = res.Err.Error()
		logger.Error("validation stage failed", zap.String("action", action.Id), zap.Error(res.Err))
		o.auditFail(run, "validating")
		return nil, false
	}
}

// composeAndExecute runs the composing and executing stages. Returns false
// when the action reached a non-completed terminal state.
func (o *Orchestrator) composeAndExecute(ctx context.Context, run *ActionRun, h handler.Handler, req *model.PipelineRequest, in *handler.ComposeInput) bool {
	action := run.Action
	run.Status = STAGE_COMPOSING

	composeCtx, cancel := context.WithTimeout(ctx, o.composeTimeout)
	res := h.ComposeContent(composeCtx, action, run.Details, req.Context, in)
	cancel()
	switch res.Outcome {
	case model.OUTCOME_OK:
		run.Details = res.Value
	case model.OUTCOME_SKIPPED:
		run.Status = STAGE_CANCELLED
		run.Reason = res.Reason
		o.auditDrop(run, "composing")
		return false
	default:
		run.Status = STAGE_CANCELLED
		run.Reason = res.Err.Error()
		logger.Error("composition stage failed", zap.String("action", action.Id), zap.Error(res.Err))
		o.auditFail(run, "composing")
		return false
	}

	if !run.Details.ContentReady() {
		run.Status = STAGE_CANCELLED
		run.Reason = "content fields still unset after composition"
		logger.Error("refusing to execute with unset content", zap.String("action", action.Id))
		o.auditFail(run, "composing")
		return false
	}

	run.Status = STAGE_EXECUTING
	storeCtx, cancel := context.WithTimeout(ctx, o.storeTimeout)
	defer cancel()
	var result *model.ExecutionResult
	err := o.store.WithTx(storeCtx, func(tx persistence.Tx) error {
		var execErr error
		result, execErr = h.Execute(storeCtx, action, run.Details, req.Identity, tx)
		return execErr
	})
	if err != nil {
		// The transaction aborted; the action stays retryable, never
		// silently completed.
		run.Status = STAGE_FAILED
		run.Reason = err.Error()
		logger.Error("execution stage failed", zap.String("action", action.Id), zap.Error(err))
		o.auditFail(run, "executing")
		return false
	}

	run.Result = result
	if result.Outcome == model.EXEC_DISABLED {
		run.Status = STAGE_DISABLED
		o.auditComplete(run)
		return true
	}
	run.Status = STAGE_COMPLETED
	o.auditComplete(run)
	return true
}

// collectSubOutputs gathers completed sub-action outputs for the main
// action's synthesis. When the main action names dependencies, only those are
// used; otherwise every completed sub-action contributes.
func (o *Orchestrator) collectSubOutputs(action *model.ProposedAction, report *RunReport) []compose.SubOutput {
	wanted := make(map[string]bool, len(action.DependsOn))
	for _, id := range action.DependsOn {
		wanted[id] = true
	}
	outputs := make([]compose.SubOutput, 0, len(action.SubActions))
	for _, sub := range action.SubActions {
		if len(wanted) > 0 && !wanted[sub.Id] {
			continue
		}
		run := report.Runs[sub.Id]
		if run == nil || run.Status != STAGE_COMPLETED {
			continue
		}
		outputs = append(outputs, o.subOutput(run))
	}
	return outputs
}

// siblingOutputs gathers the completed outputs of the sub-actions a
// sub-action depends on.
func (o *Orchestrator) siblingOutputs(sub *model.ProposedAction, report *RunReport) []compose.SubOutput {
	outputs := make([]compose.SubOutput, 0, len(sub.DependsOn))
	for _, depId := range sub.DependsOn {
		run := report.Runs[depId]
		if run == nil || run.Status != STAGE_COMPLETED {
			continue
		}
		outputs = append(outputs, o.subOutput(run))
	}
	return outputs
}

func (o *Orchestrator) subOutput(run *ActionRun) compose.SubOutput {
	content := run.Details.Summary()
	if content == "" && run.Result != nil {
		content = run.Result.Output
	}
	return compose.SubOutput{
		ActionId: run.Action.Id,
		Type:     run.Action.Type,
		Content:  content,
	}
}

// cancelAll cancels the main action and every sub-action; used before any
// stage has run.
func (o *Orchestrator) cancelAll(report *RunReport, action *model.ProposedAction, reason string) {
	mainRun := report.Runs[action.Id]
	mainRun.Status = STAGE_CANCELLED
	mainRun.Reason = reason
	action.Status = model.STATUS_CANCELLED
	o.auditDrop(mainRun, "validating")
	o.cascadeCancel(report, action, reason)
}

// cascadeCancel cancels every sub-action that has not reached a terminal
// state. Executed sub-actions keep their side effects; the inconsistency is
// recorded for operator visibility.
func (o *Orchestrator) cascadeCancel(report *RunReport, action *model.ProposedAction, reason string) {
	for _, sub := range action.SubActions {
		run := report.Runs[sub.Id]
		if run == nil || run.Status.Terminal() {
			continue
		}
		run.Status = STAGE_CANCELLED
		run.Reason = reason
		sub.Status = model.STATUS_CANCELLED
	}
	o.recordExecutedOrphans(report, action)
}

func (o *Orchestrator) recordExecutedOrphans(report *RunReport, action *model.ProposedAction) {
	for _, sub := range action.SubActions {
		run := report.Runs[sub.Id]
		if run == nil || !run.executed() {
			continue
		}
		detail := fmt.Sprintf("sub-action %s executed (record %s) but main action %s did not complete", sub.Id, run.Result.CreatedRecordId, action.Id)
		report.Inconsistencies = append(report.Inconsistencies, detail)
		logger.Warn("executed sub-action orphaned by cancelled main action",
			zap.String("subAction", sub.Id),
			zap.String("mainAction", action.Id))
		if o.audit != nil {
			o.audit.RecordInconsistency(sub.Id, detail)
		}
	}
}

func (o *Orchestrator) auditDrop(run *ActionRun, stage string) {
	if o.audit != nil {
		o.audit.RecordActionDropped(run.Action.Id, run.Action.Type, stage, run.Reason)
	}
}

func (o *Orchestrator) auditFail(run *ActionRun, stage string) {
	if o.audit != nil {
		o.audit.RecordActionFailed(run.Action.Id, run.Action.Type, stage, run.Reason)
	}
}

func (o *Orchestrator) auditComplete(run *ActionRun) {
	if o.audit != nil {
		o.audit.RecordActionCompleted(run.Action.Id, run.Action.Type, run.Result)
	}
}
