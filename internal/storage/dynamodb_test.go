package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mobility-finance/ledger-backend/internal/ledger"
)

// MockDynamo is a mock implementation of the DynamoAPI interface
type MockDynamo struct {
	mock.Mock
}

func (m *MockDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.GetItemOutput), args.Error(1)
}

func (m *MockDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.QueryOutput), args.Error(1)
}

func (m *MockDynamo) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.TransactWriteItemsOutput), args.Error(1)
}

func item(contract, key, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"contract": &types.AttributeValueMemberS{Value: contract},
		"key":      &types.AttributeValueMemberS{Value: key},
		"value":    &types.AttributeValueMemberB{Value: []byte(value)},
	}
}

func TestDynamoStore_Get(t *testing.T) {
	ctx := context.Background()
	client := new(MockDynamo)
	store := NewDynamoStore(client, "ledger_state")

	client.On("GetItem", ctx, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		key := in.Key["key"].(*types.AttributeValueMemberS).Value
		return *in.TableName == "ledger_state" && key == "asset/bus_1"
	})).Return(&dynamodb.GetItemOutput{Item: item("loan_pool", "asset/bus_1", `{"id":"bus_1"}`)}, nil).Once()

	client.On("GetItem", ctx, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil).Once()

	value, ok, err := store.Get(ctx, "loan_pool", "asset/bus_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"bus_1"}`, string(value))

	_, ok, err = store.Get(ctx, "loan_pool", "asset/missing")
	require.NoError(t, err)
	assert.False(t, ok)

	client.AssertExpectations(t)
}

func TestDynamoStore_ScanPaginates(t *testing.T) {
	ctx := context.Background()
	client := new(MockDynamo)
	store := NewDynamoStore(client, "ledger_state")

	cursor := map[string]types.AttributeValue{
		"contract": &types.AttributeValueMemberS{Value: "governance"},
		"key":      &types.AttributeValueMemberS{Value: "proposal/a"},
	}

	client.On("Query", ctx, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey == nil
	})).Return(&dynamodb.QueryOutput{
		Items:            []map[string]types.AttributeValue{item("governance", "proposal/a", "1")},
		LastEvaluatedKey: cursor,
	}, nil).Once()

	client.On("Query", ctx, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey != nil
	})).Return(&dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{item("governance", "proposal/b", "2")},
	}, nil).Once()

	entries, err := store.Scan(ctx, "governance", "proposal/")
	require.NoError(t, err)
	assert.Equal(t, []ledger.KV{
		{Key: "proposal/a", Value: []byte("1")},
		{Key: "proposal/b", Value: []byte("2")},
	}, entries)

	client.AssertExpectations(t)
}

func TestDynamoStore_ScanWithoutPrefix(t *testing.T) {
	ctx := context.Background()
	client := new(MockDynamo)
	store := NewDynamoStore(client, "ledger_state")

	client.On("Query", ctx, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		_, hasPrefix := in.ExpressionAttributeValues[":p"]
		return *in.KeyConditionExpression == "#c = :c" && !hasPrefix
	})).Return(&dynamodb.QueryOutput{}, nil).Once()

	entries, err := store.Scan(ctx, "revenue_distributor", "")
	require.NoError(t, err)
	assert.Empty(t, entries)

	client.AssertExpectations(t)
}

func TestDynamoStore_Commit(t *testing.T) {
	ctx := context.Background()
	client := new(MockDynamo)
	store := NewDynamoStore(client, "ledger_state")

	client.On("TransactWriteItems", ctx, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		if len(in.TransactItems) != 2 {
			return false
		}
		return in.TransactItems[0].Put != nil && in.TransactItems[1].Delete != nil
	})).Return(&dynamodb.TransactWriteItemsOutput{}, nil).Once()

	err := store.Commit(ctx, "governance", []ledger.Write{
		{Key: "proposal/a", Value: []byte("{}")},
		{Key: "active/a", Delete: true},
	})
	require.NoError(t, err)

	client.AssertExpectations(t)
}

func TestDynamoStore_CommitFailures(t *testing.T) {
	ctx := context.Background()
	client := new(MockDynamo)
	store := NewDynamoStore(client, "ledger_state")

	t.Run("empty commit is a no-op", func(t *testing.T) {
		assert.NoError(t, store.Commit(ctx, "governance", nil))
	})

	t.Run("too many writes", func(t *testing.T) {
		writes := make([]ledger.Write, MaxDynamoWrites+1)
		for i := range writes {
			writes[i] = ledger.Write{Key: "k", Value: []byte("v")}
		}
		assert.Error(t, store.Commit(ctx, "governance", writes))
	})

	t.Run("transaction cancelled", func(t *testing.T) {
		client.On("TransactWriteItems", ctx, mock.Anything).
			Return(nil, errors.New("TransactionCanceledException")).Once()

		err := store.Commit(ctx, "governance", []ledger.Write{{Key: "k", Value: []byte("v")}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to commit governance")
	})

	client.AssertExpectations(t)
}
