package email

import (
	"context"

	"github.com/layer-3/attestor/ports"
	"go.uber.org/zap"
)

// LogSender writes verification codes to the log. Development only.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("email")}
}

var _ ports.EmailSender = (*LogSender)(nil)

func (s *LogSender) Send(ctx context.Context, address string, code string) error {
	s.logger.Info("Verification email",
		zap.String("to", address),
		zap.String("body", Body(code)))
	return nil
}
