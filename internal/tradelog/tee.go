// Package tradelog fans settled trade entries out to several sinks.
package tradelog

import (
	"context"

	"github.com/efreitasn/knightsmarket/internal/domain"
)

// Sink receives sell and buy log entries.
type Sink interface {
	AppendSellLog(ctx context.Context, entry domain.SellLog) error
	AppendBuyLog(ctx context.Context, entry domain.BuyLog) error
}

// Tee appends every entry to each sink in order and stops at the first
// error.
type Tee []Sink

// AppendSellLog forwards entry to every sink.
func (t Tee) AppendSellLog(ctx context.Context, entry domain.SellLog) error {
	for _, s := range t {
		if err := s.AppendSellLog(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// AppendBuyLog forwards entry to every sink.
func (t Tee) AppendBuyLog(ctx context.Context, entry domain.BuyLog) error {
	for _, s := range t {
		if err := s.AppendBuyLog(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}
