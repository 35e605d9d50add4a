package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"mobility-finance/ledger-backend/internal/config"
	"mobility-finance/ledger-backend/internal/ledger"
)

// MaxDynamoWrites is the TransactWriteItems item limit.
const MaxDynamoWrites = 100

// DynamoAPI is the subset of the DynamoDB client the store uses
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

type dynamoItem struct {
	Contract string `dynamodbav:"contract"`
	Key      string `dynamodbav:"key"`
	Value    []byte `dynamodbav:"value"`
}

// DynamoStore implements ledger.KVStore on a table keyed by
// (contract HASH, key RANGE). String range keys sort by UTF-8 bytes.
type DynamoStore struct {
	client DynamoAPI
	table  string
}

// NewDynamoStore creates a new DynamoDB state store
func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

// NewDynamoClient builds a client from the default AWS chain. A custom
// endpoint selects DynamoDB Local with static credentials.
func NewDynamoClient(ctx context.Context, cfg config.DynamoDBConfig) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

func (s *DynamoStore) itemKey(contract, key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"contract": &types.AttributeValueMemberS{Value: contract},
		"key":      &types.AttributeValueMemberS{Value: key},
	}
}

func (s *DynamoStore) Get(ctx context.Context, contract, key string) ([]byte, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.itemKey(contract, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s/%s: %w", contract, key, err)
	}
	if len(out.Item) == 0 {
		return nil, false, nil
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, false, fmt.Errorf("failed to decode %s/%s: %w", contract, key, err)
	}
	return item.Value, true, nil
}

func (s *DynamoStore) Scan(ctx context.Context, contract, prefix string) ([]ledger.KV, error) {
	in := &dynamodb.QueryInput{
		TableName:                aws.String(s.table),
		ConsistentRead:           aws.Bool(true),
		KeyConditionExpression:   aws.String("#c = :c"),
		ExpressionAttributeNames: map[string]string{"#c": "contract"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: contract},
		},
	}
	// begins_with rejects an empty operand
	if prefix != "" {
		in.KeyConditionExpression = aws.String("#c = :c AND begins_with(#k, :p)")
		in.ExpressionAttributeNames["#k"] = "key"
		in.ExpressionAttributeValues[":p"] = &types.AttributeValueMemberS{Value: prefix}
	}

	var out []ledger.KV
	for {
		page, err := s.client.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s/%s: %w", contract, prefix, err)
		}

		var items []dynamoItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to decode %s/%s: %w", contract, prefix, err)
		}
		for _, item := range items {
			out = append(out, ledger.KV{Key: item.Key, Value: item.Value})
		}

		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		in.ExclusiveStartKey = page.LastEvaluatedKey
	}
}

func (s *DynamoStore) Commit(ctx context.Context, contract string, writes []ledger.Write) error {
	if len(writes) == 0 {
		return nil
	}
	if len(writes) > MaxDynamoWrites {
		return fmt.Errorf("commit of %d writes exceeds the %d item transaction limit", len(writes), MaxDynamoWrites)
	}

	items := make([]types.TransactWriteItem, 0, len(writes))
	for _, w := range writes {
		if w.Delete {
			items = append(items, types.TransactWriteItem{
				Delete: &types.Delete{
					TableName: aws.String(s.table),
					Key:       s.itemKey(contract, w.Key),
				},
			})
			continue
		}

		av, err := attributevalue.MarshalMap(dynamoItem{Contract: contract, Key: w.Key, Value: w.Value})
		if err != nil {
			return fmt.Errorf("failed to encode %s/%s: %w", contract, w.Key, err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(s.table),
				Item:      av,
			},
		})
	}

	if _, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		return fmt.Errorf("failed to commit %s: %w", contract, err)
	}
	return nil
}
