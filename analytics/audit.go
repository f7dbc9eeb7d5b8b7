package analytics

import (
	"os"

	"github.com/closeloop/actionpipe/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AuditTrail records pipeline outcomes to an append-only file, separate from
// operational logs. Dropped actions keep their diagnostic reason here even
// though the drop itself is silent for the end user.
type AuditTrail struct {
	fileName string
	logger   *zap.Logger
}

func NewAuditTrail(fileName string) (*AuditTrail, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = ""
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	writer := zapcore.AddSync(logFile)
	core := zapcore.NewTee(zapcore.NewCore(fileEncoder, writer, zapcore.InfoLevel))
	return &AuditTrail{
		fileName: fileName,
		logger:   zap.New(core),
	}, nil
}

func (a *AuditTrail) RecordActionCompleted(actionId string, actionType model.ActionType, result *model.ExecutionResult) {
	a.logger.Info("completed",
		zap.String("action", actionId),
		zap.String("type", string(actionType)),
		zap.String("outcome", string(result.Outcome)),
		zap.String("recordId", result.CreatedRecordId))
}

func (a *AuditTrail) RecordActionDropped(actionId string, actionType model.ActionType, stage string, reason string) {
	a.logger.Info("dropped",
		zap.String("action", actionId),
		zap.String("type", string(actionType)),
		zap.String("stage", stage),
		zap.String("reason", reason))
}

func (a *AuditTrail) RecordActionFailed(actionId string, actionType model.ActionType, stage string, reason string) {
	a.logger.Info("failed",
		zap.String("action", actionId),
		zap.String("type", string(actionType)),
		zap.String("stage", stage),
		zap.String("reason", reason))
}

func (a *AuditTrail) RecordInconsistency(actionId string, detail string) {
	a.logger.Info("inconsistency",
		zap.String("action", actionId),
		zap.String("detail", detail))
}
