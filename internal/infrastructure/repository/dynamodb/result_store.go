package dynamodb

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/value"
	"github.com/kirillkom/document-classifier/internal/infrastructure/resilience"
)

// API is the subset of the DynamoDB client the store calls.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

type ResultStore struct {
	api   API
	table string
	guard *resilience.Guard
}

func NewResultStore(api API, table string, guard *resilience.Guard) *ResultStore {
	return &ResultStore{api: api, table: table, guard: guard}
}

// Put replaces the whole item; PutItem has last-writer-wins semantics.
func (s *ResultStore) Put(ctx context.Context, record domain.AnalysisRecord) error {
	if record.Entities == nil {
		record.Entities = []string{}
	}
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshal analysis record: %w", err)
	}

	err = s.guard.Execute(ctx, "dynamodb_put", func(ctx context.Context) error {
		_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.table),
			Item:      item,
		})
		return err
	}, resilience.RecordUnlessCaller)
	if err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "put analysis record", err)
	}
	return nil
}

func (s *ResultStore) Get(ctx context.Context, documentID string) (value.Value, error) {
	var out *dynamodb.GetItemOutput
	err := s.guard.Execute(ctx, "dynamodb_get", func(ctx context.Context) error {
		var err error
		out, err = s.api.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(s.table),
			Key: map[string]types.AttributeValue{
				domain.AttrDocumentID: &types.AttributeValueMemberS{Value: documentID},
			},
			ConsistentRead: aws.Bool(true),
		})
		return err
	}, resilience.RecordUnlessCaller)
	if err != nil {
		return value.Value{}, domain.WrapError(domain.ErrStoreUnavailable, "get analysis record", err)
	}
	if len(out.Item) == 0 {
		return value.Value{}, domain.WrapError(domain.ErrDocumentNotFound, "get analysis record", fmt.Errorf("no item for %s", documentID))
	}

	item, err := fromAttribute(&types.AttributeValueMemberM{Value: out.Item})
	if err != nil {
		return value.Value{}, domain.WrapError(domain.ErrStoreUnavailable, "decode analysis record", err)
	}
	return item, nil
}

// fromAttribute converts a DynamoDB attribute into the value tree. Numbers
// stay decimal strings until the lookup path normalizes them.
func fromAttribute(av types.AttributeValue) (value.Value, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return value.String(v.Value), nil
	case *types.AttributeValueMemberN:
		return value.DecimalString(v.Value)
	case *types.AttributeValueMemberBOOL:
		return value.Bool(v.Value), nil
	case *types.AttributeValueMemberNULL:
		return value.Null(), nil
	case *types.AttributeValueMemberB:
		return value.String(base64.StdEncoding.EncodeToString(v.Value)), nil
	case *types.AttributeValueMemberSS:
		return value.Strings(v.Value), nil
	case *types.AttributeValueMemberNS:
		items := make([]value.Value, 0, len(v.Value))
		for _, raw := range v.Value {
			n, err := value.DecimalString(raw)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, n)
		}
		return value.List(items...), nil
	case *types.AttributeValueMemberBS:
		items := make([]value.Value, 0, len(v.Value))
		for _, raw := range v.Value {
			items = append(items, value.String(base64.StdEncoding.EncodeToString(raw)))
		}
		return value.List(items...), nil
	case *types.AttributeValueMemberL:
		items := make([]value.Value, 0, len(v.Value))
		for _, elem := range v.Value {
			item, err := fromAttribute(elem)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, item)
		}
		return value.List(items...), nil
	case *types.AttributeValueMemberM:
		fields := make(map[string]value.Value, len(v.Value))
		for k, elem := range v.Value {
			item, err := fromAttribute(elem)
			if err != nil {
				return value.Value{}, fmt.Errorf("attribute %q: %w", k, err)
			}
			fields[k] = item
		}
		return value.Map(fields), nil
	default:
		return value.Value{}, fmt.Errorf("unsupported attribute type %T", av)
	}
}
