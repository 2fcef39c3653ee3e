package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/clearbid/auction-engine/internal/domain/values"
	"github.com/clearbid/auction-engine/internal/service/bidding"
)

// Ledger is a mock currency ledger.
type Ledger struct {
	mock.Mock
}

func (m *Ledger) AvailableBalance(ctx context.Context, account uuid.UUID) (values.Credits, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(values.Credits), args.Error(1)
}

func (m *Ledger) Hold(ctx context.Context, account uuid.UUID, amount values.Credits, tag string) (uuid.UUID, error) {
	args := m.Called(ctx, account, amount, tag)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *Ledger) AdjustHold(ctx context.Context, holdID uuid.UUID, amount values.Credits) error {
	args := m.Called(ctx, holdID, amount)
	return args.Error(0)
}

func (m *Ledger) Release(ctx context.Context, holdID uuid.UUID) error {
	args := m.Called(ctx, holdID)
	return args.Error(0)
}

func (m *Ledger) TransferFromHold(ctx context.Context, holdID uuid.UUID, destination uuid.UUID) error {
	args := m.Called(ctx, holdID, destination)
	return args.Error(0)
}

// ProfileReader is a mock profile collaborator.
type ProfileReader struct {
	mock.Mock
}

func (m *ProfileReader) DisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

// Notifier records engine events for assertion. It satisfies both the
// bidding and settlement notifier contracts.
type Notifier struct {
	mock.Mock
}

func (m *Notifier) LeaderChanged(ctx context.Context, ev bidding.LeaderChangeEvent) {
	m.Called(ctx, ev)
}

func (m *Notifier) AuctionSettled(ctx context.Context, ev bidding.SettlementEvent) {
	m.Called(ctx, ev)
}

func (m *Notifier) AuctionEndingSoon(ctx context.Context, auctionID uuid.UUID, endsAt time.Time) {
	m.Called(ctx, auctionID, endsAt)
}

// Transport is a mock notification transport.
type Transport struct {
	mock.Mock
}

func (m *Transport) Notify(ctx context.Context, recipient uuid.UUID, eventType string, payload map[string]interface{}) error {
	args := m.Called(ctx, recipient, eventType, payload)
	return args.Error(0)
}

// MetricsCollector is a no-op collector for tests.
type MetricsCollector struct{}

func (MetricsCollector) RecordBidPlaced(values.Credits) {}
func (MetricsCollector) RecordBidRejected(string)       {}
func (MetricsCollector) RecordDeadlineExtended()        {}
func (MetricsCollector) RecordSettlement(string)        {}

// TxRunner satisfies the Transactor contract by running the function
// directly; the mocked repositories carry no transactional state.
type TxRunner struct{}

func (TxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
