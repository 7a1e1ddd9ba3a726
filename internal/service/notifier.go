package service

import (
	"context"

	"github.com/weilan/team-roster/pkg/logger"
	"go.uber.org/zap"
)

// Notifier is the outbound hook fired after a team-change submission.
// Fire-and-forget: implementations must not fail the calling workflow.
type Notifier interface {
	Notify(ctx context.Context, teamID int, title, message string)
}

type logNotifier struct{}

// NewLogNotifier returns a Notifier that only logs. Real delivery is the
// caller's business.
func NewLogNotifier() Notifier {
	return &logNotifier{}
}

func (n *logNotifier) Notify(ctx context.Context, teamID int, title, message string) {
	logger.FromContext(ctx).Info("team notification",
		zap.Int("team_id", teamID),
		zap.String("title", title),
		zap.String("message", message))
}
