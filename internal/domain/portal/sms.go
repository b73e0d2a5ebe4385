package portal

import (
	"context"

	"github.com/rs/zerolog/log"
)

// SMSSender delivers a login code to a phone number.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// LogSMSSender writes codes to the log instead of a carrier. Used in
// development and tests.
type LogSMSSender struct{}

func (LogSMSSender) Send(ctx context.Context, phone, message string) error {
	log.Info().Str("phone", phone).Str("message", message).Msg("sms (dev sender)")
	return nil
}
