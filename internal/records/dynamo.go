package records

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"github.com/fpang/synthetic-patients/internal/retry"
)

// DynamoQueryAPI is the subset of the DynamoDB client used here.
type DynamoQueryAPI interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoSource reads case records from a DynamoDB table whose partition
// key is the numeric case identifier.
type DynamoSource struct {
	client    DynamoQueryAPI
	tableName string
	keyAttr   string
	policy    retry.Policy
}

var _ Source = (*DynamoSource)(nil)

// NewDynamoSource creates a DynamoSource. keyAttr names the numeric partition key.
func NewDynamoSource(client DynamoQueryAPI, tableName, keyAttr string, policy retry.Policy) *DynamoSource {
	return &DynamoSource{
		client:    client,
		tableName: tableName,
		keyAttr:   keyAttr,
		policy:    policy.Named("dynamodb.query"),
	}
}

func (s *DynamoSource) Table() string { return s.tableName }

// FetchCase issues a single Query limited to limit items.
func (s *DynamoSource) FetchCase(ctx context.Context, caseID, limit int) ([]Record, error) {
	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("#k = :id"),
		ExpressionAttributeNames: map[string]string{
			"#k": s.keyAttr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberN{Value: strconv.Itoa(caseID)},
		},
		Limit: aws.Int32(int32(limit)),
	}

	start := time.Now()
	out, err := retry.Do(ctx, s.policy, func(ctx context.Context) (*dynamodb.QueryOutput, error) {
		return s.client.Query(ctx, input)
	})
	if err != nil {
		return nil, &ReadError{Table: s.tableName, CaseID: caseID, Status: retry.StatusCode(err), Err: err}
	}

	var items []map[string]any
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, &ReadError{Table: s.tableName, CaseID: caseID, Err: fmt.Errorf("unmarshal: %w", err)}
	}

	recs := make([]Record, 0, len(items))
	for _, it := range items {
		recs = append(recs, Record(it))
	}
	log.Debug().
		Str("table", s.tableName).
		Int("caseId", caseID).
		Int("items", len(recs)).
		Dur("duration", time.Since(start)).
		Msg("DynamoDB case query complete")
	return recs, nil
}
