package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// otpMessage renders the text delivered over every channel
func otpMessage(code string, ttl time.Duration) string {
	return fmt.Sprintf("Your Ethio Farm Connect verification code is %s. It expires in %d minutes.", code, int(ttl.Minutes()))
}

// TwilioService implements domain.OTPSender over SMS
type TwilioService struct {
	client     *twilio.RestClient
	fromNumber string
	ttl        time.Duration
	log        *zap.Logger
}

// NewTwilioService creates a new Twilio SMS sender
func NewTwilioService(accountSID, authToken, fromNumber string, ttl time.Duration, log *zap.Logger) *TwilioService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioService{
		client:     client,
		fromNumber: fromNumber,
		ttl:        ttl,
		log:        log,
	}
}

// Configured reports whether real SMS delivery is possible
func (t *TwilioService) Configured() bool {
	return t.fromNumber != ""
}

// SendOTP implements domain.OTPSender
func (t *TwilioService) SendOTP(_ context.Context, to, code string) error {
	// Without credentials the code only reaches the log
	if !t.Configured() {
		t.log.Info("sms gateway not configured, skipping delivery", zap.String("to", to))
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(otpMessage(code, t.ttl))

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}

	if resp.Sid != nil {
		t.log.Debug("sms queued", zap.String("to", to), zap.String("sid", *resp.Sid))
	}
	return nil
}
