package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/ledger"
)

// MockChannel is a mock implementation of the Channel interface
type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable).Error(0)
}

func (m *MockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(exchange, key, msg).Error(0)
}

func (m *MockChannel) Close() error {
	return m.Called().Error(0)
}

func dialerFor(channels ...*MockChannel) (Dialer, *int) {
	dials := 0
	return func() (Channel, func() error, error) {
		if dials >= len(channels) {
			return nil, nil, errors.New("connection refused")
		}
		ch := channels[dials]
		dials++
		return ch, nil, nil
	}, &dials
}

var sampleRecord = ledger.Record{
	ID:        "6f1c4f5e-3a6b-4b7e-9d55-1df5a7a4c0de",
	Seq:       7,
	Contract:  "governance",
	Method:    "vote",
	Caller:    "GVOTER0000000001",
	Timestamp: 1_700_000_000,
	Args:      json.RawMessage(`{"choice":"yes"}`),
}

func TestPublisher_Publish(t *testing.T) {
	ch := new(MockChannel)
	ch.On("ExchangeDeclare", "ledger.events", "topic", true).Return(nil).Once()
	ch.On("PublishWithContext", "ledger.events", "governance.vote", mock.MatchedBy(func(msg amqp.Publishing) bool {
		var rec ledger.Record
		if err := json.Unmarshal(msg.Body, &rec); err != nil {
			return false
		}
		return msg.MessageId == sampleRecord.ID && rec.Seq == 7 && msg.DeliveryMode == amqp.Persistent
	})).Return(nil).Once()

	dial, dials := dialerFor(ch)
	p, err := NewPublisher(dial, "ledger.events", zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), sampleRecord))
	assert.Equal(t, 1, *dials)
	ch.AssertExpectations(t)
}

func TestPublisher_ReconnectsAfterFailure(t *testing.T) {
	broken := new(MockChannel)
	broken.On("ExchangeDeclare", "ledger.events", "topic", true).Return(nil).Once()
	broken.On("PublishWithContext", "ledger.events", "governance.vote", mock.Anything).Return(amqp.ErrClosed).Once()
	broken.On("Close").Return(nil).Once()

	fresh := new(MockChannel)
	fresh.On("ExchangeDeclare", "ledger.events", "topic", true).Return(nil).Once()
	fresh.On("PublishWithContext", "ledger.events", "governance.vote", mock.Anything).Return(nil).Once()

	dial, dials := dialerFor(broken, fresh)
	p, err := NewPublisher(dial, "ledger.events", zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), sampleRecord))
	assert.Equal(t, 2, *dials)
	broken.AssertExpectations(t)
	fresh.AssertExpectations(t)
}

func TestPublisher_NotifyLogsFailure(t *testing.T) {
	ch := new(MockChannel)
	ch.On("ExchangeDeclare", "ledger.events", "topic", true).Return(nil).Once()
	ch.On("PublishWithContext", "ledger.events", "governance.vote", mock.Anything).Return(amqp.ErrClosed).Once()
	ch.On("Close").Return(nil).Once()

	dial, _ := dialerFor(ch)
	p, err := NewPublisher(dial, "ledger.events", zap.NewNop())
	require.NoError(t, err)

	assert.NotPanics(t, func() { p.Notify(context.Background(), sampleRecord) })
	assert.Error(t, p.Publish(context.Background(), sampleRecord))
	ch.AssertExpectations(t)
}

func TestNewPublisher_DeclareFailure(t *testing.T) {
	ch := new(MockChannel)
	ch.On("ExchangeDeclare", "ledger.events", "topic", true).Return(errors.New("access refused")).Once()
	ch.On("Close").Return(nil).Once()

	dial, _ := dialerFor(ch)
	_, err := NewPublisher(dial, "ledger.events", zap.NewNop())
	assert.ErrorContains(t, err, "failed to declare exchange")
	ch.AssertExpectations(t)
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "loan_pool.invest", RoutingKey(ledger.Record{Contract: "loan_pool", Method: "invest"}))
}
