package reporting

import (
	"go.uber.org/zap"

	"github.com/sencha/orion-core/api/schemas"
)

// LogReporter streams suite progress through a zap logger: specs at info,
// failures at error, the enter/leave bracketing at debug.
type LogReporter struct {
	log *zap.Logger
}

// NewLog builds the reporter on the given logger.
func NewLog(log *zap.Logger) *LogReporter {
	return &LogReporter{log: log.Named("report")}
}

func (r *LogReporter) SuiteEnter(s *schemas.SuiteResult) {
	r.log.Debug("suite enter", zap.String("suite", s.Name))
}

func (r *LogReporter) SuiteStarted(s *schemas.SuiteResult) {
	r.log.Info("suite started", zap.String("suite", s.Name))
}

func (r *LogReporter) SpecStarted(sp *schemas.SpecResult) {
	r.log.Debug("spec started", zap.String("spec", sp.FullName))
}

func (r *LogReporter) SpecFinished(sp *schemas.SpecResult) {
	switch {
	case sp.Disabled:
		r.log.Info("spec disabled", zap.String("spec", sp.FullName))
	case sp.Passed:
		r.log.Info("spec passed",
			zap.String("spec", sp.FullName),
			zap.Duration("took", sp.Duration))
	default:
		r.log.Error("spec failed",
			zap.String("spec", sp.FullName),
			zap.Duration("took", sp.Duration),
			zap.Strings("failures", failureMessages(sp)))
	}
}

func (r *LogReporter) SuiteFinished(s *schemas.SuiteResult) {
	total, failed := s.Counts()
	fields := []zap.Field{
		zap.String("suite", s.Name),
		zap.Int("specs", total),
		zap.Int("failed", failed),
	}
	if failed > 0 {
		r.log.Warn("suite finished", fields...)
		return
	}
	r.log.Info("suite finished", fields...)
}

func (r *LogReporter) SuiteLeave(s *schemas.SuiteResult) {
	r.log.Debug("suite leave", zap.String("suite", s.Name))
}
