package notifications

import (
	"context"
	"fmt"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// ChannelDispatcher routes OTP delivery to the sender registered for each channel
type ChannelDispatcher struct {
	senders map[domain.Channel]domain.OTPSender
}

// NewDispatcher creates a dispatcher over the given senders
func NewDispatcher(senders map[domain.Channel]domain.OTPSender) *ChannelDispatcher {
	return &ChannelDispatcher{senders: senders}
}

// Dispatch implements domain.Dispatcher
func (d *ChannelDispatcher) Dispatch(ctx context.Context, phone, code string, channel domain.Channel) error {
	sender, ok := d.senders[channel]
	if !ok || sender == nil {
		return fmt.Errorf("%w: %s", domain.ErrDispatchUnavailable, channel)
	}
	return sender.SendOTP(ctx, phone, code)
}
