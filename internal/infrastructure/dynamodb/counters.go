package dynamodb

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-xray-sdk-go/xray"
)

type CounterRepository struct{ client *Client }

func NewCounterRepository(client *Client) *CounterRepository {
	return &CounterRepository{client: client}
}

// Next atomically increments the named sequence and returns the new value.
// The first call for a sequence returns 1.
func (r *CounterRepository) Next(ctx context.Context, sequence string) (int64, error) {
	var out *awsv2dynamodb.UpdateItemOutput
	err := xray.Capture(ctx, "DynamoDB.NextCounter", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.UpdateItem(ctx, &awsv2dynamodb.UpdateItemInput{
			TableName:        aws.String(r.client.tableName),
			Key:              key(counterPK, sequence),
			UpdateExpression: aws.String("ADD Seq :one"),
			ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
				":one": &awsv2types.AttributeValueMemberN{Value: "1"},
			},
			ReturnValues: awsv2types.ReturnValueUpdatedNew,
		})
		return e
	})
	if err != nil {
		return 0, err
	}
	seqAV, ok := out.Attributes["Seq"]
	if !ok {
		return 0, errors.New("counter update returned no value")
	}
	var seq int64
	if err := attributevalue.Unmarshal(seqAV, &seq); err != nil {
		return 0, err
	}
	return seq, nil
}
