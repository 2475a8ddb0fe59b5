package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	awsv2xray "github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/aws/aws-xray-sdk-go/xray"

	"github.com/abdirisakgelle/taskplus/internal/domain"
)

// API is the subset of the DynamoDB client used by the repositories.
type API interface {
	PutItem(ctx context.Context, params *awsv2dynamodb.PutItemInput, optFns ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *awsv2dynamodb.GetItemInput, optFns ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *awsv2dynamodb.UpdateItemInput, optFns ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *awsv2dynamodb.QueryInput, optFns ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *awsv2dynamodb.ScanInput, optFns ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *awsv2dynamodb.TransactWriteItemsInput, optFns ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, params *awsv2dynamodb.DescribeTableInput, optFns ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *awsv2dynamodb.CreateTableInput, optFns ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.CreateTableOutput, error)
}

type Client struct {
	db        API
	tableName string
}

type Options struct {
	Region    string
	TableName string
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(opts.Region))
	if err != nil {
		return nil, err
	}
	awsv2xray.AWSV2Instrumentor(&cfg.APIOptions)
	client := awsv2dynamodb.NewFromConfig(cfg, func(o *awsv2dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return &Client{db: client, tableName: opts.TableName}, nil
}

func NewClientWithAPI(db API, tableName string) *Client {
	return &Client{db: db, tableName: tableName}
}

// EnsureTable creates the single PK/SK table when it does not exist yet.
func (c *Client) EnsureTable(ctx context.Context) error {
	return xray.Capture(ctx, "DynamoDB.EnsureTable", func(ctx context.Context) error {
		_, err := c.db.DescribeTable(ctx, &awsv2dynamodb.DescribeTableInput{TableName: aws.String(c.tableName)})
		if err == nil {
			return nil
		}
		var notFound *awsv2types.ResourceNotFoundException
		if !errors.As(err, &notFound) {
			return err
		}
		_, err = c.db.CreateTable(ctx, &awsv2dynamodb.CreateTableInput{
			TableName:   aws.String(c.tableName),
			BillingMode: awsv2types.BillingModePayPerRequest,
			AttributeDefinitions: []awsv2types.AttributeDefinition{
				{AttributeName: aws.String("PK"), AttributeType: awsv2types.ScalarAttributeTypeS},
				{AttributeName: aws.String("SK"), AttributeType: awsv2types.ScalarAttributeTypeS},
			},
			KeySchema: []awsv2types.KeySchemaElement{
				{AttributeName: aws.String("PK"), KeyType: awsv2types.KeyTypeHash},
				{AttributeName: aws.String("SK"), KeyType: awsv2types.KeyTypeRange},
			},
		})
		if err != nil {
			return err
		}
		return awsv2dynamodb.NewTableExistsWaiter(c.db).Wait(ctx,
			&awsv2dynamodb.DescribeTableInput{TableName: aws.String(c.tableName)}, 2*time.Minute)
	})
}

const (
	registryPK = "REGISTRY"
	counterPK  = "COUNTER"
	metaSK     = "META"
	accessSK   = "ACCESS"

	entityPermission   = "PERMISSION"
	entityRole         = "ROLE"
	entityUser         = "USER"
	entityIdentifier   = "USER_IDENTIFIER"
	entityAccess       = "USER_ACCESS"
	entityEmployee     = "EMPLOYEE"
	entityTicket       = "TICKET"
	entityFollowUp     = "FOLLOW_UP"
	entityReview       = "REVIEW"
	entityNotification = "NOTIFICATION"
)

func permSK(key domain.PermissionKey) string { return "PERM#" + string(key) }
func roleSK(key domain.RoleKey) string       { return "ROLE#" + string(key) }
func userPK(userID string) string            { return "USER#" + userID }
func identPK(identifier string) string       { return "IDENT#" + identifier }
func employeePK(id int64) string             { return fmt.Sprintf("EMPLOYEE#%d", id) }
func ticketPK(id int64) string               { return fmt.Sprintf("TICKET#%d", id) }
func followUpSK(id int64) string             { return fmt.Sprintf("FOLLOWUP#%012d", id) }
func reviewSK(id int64) string               { return fmt.Sprintf("REVIEW#%012d", id) }
func inboxPK(employeeID int64) string        { return fmt.Sprintf("EMP#%d", employeeID) }
func notificationSK(id int64) string         { return fmt.Sprintf("NOTIF#%012d", id) }

func key(pk, sk string) map[string]awsv2types.AttributeValue {
	return map[string]awsv2types.AttributeValue{
		"PK": &awsv2types.AttributeValueMemberS{Value: pk},
		"SK": &awsv2types.AttributeValueMemberS{Value: sk},
	}
}

func isConditionalCheckFailure(err error) bool {
	var condErr *awsv2types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

const (
	condNotExists = "attribute_not_exists(PK) AND attribute_not_exists(SK)"
	condExists    = "attribute_exists(PK)"
)

// put writes item under an optional condition. A failed attribute_not_exists
// check maps to ErrConflict and a failed attribute_exists check to ErrNotFound.
func (c *Client) put(ctx context.Context, segment string, item any, condition string) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}
	input := &awsv2dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      av,
	}
	if condition != "" {
		input.ConditionExpression = aws.String(condition)
	}
	return xray.Capture(ctx, segment, func(ctx context.Context) error {
		_, err := c.db.PutItem(ctx, input)
		if isConditionalCheckFailure(err) {
			if condition == condExists {
				return domain.ErrNotFound
			}
			return domain.ErrConflict
		}
		return err
	})
}

// get loads one item into out and returns ErrNotFound when it is absent.
func (c *Client) get(ctx context.Context, segment, pk, sk string, out any) error {
	var res *awsv2dynamodb.GetItemOutput
	err := xray.Capture(ctx, segment, func(ctx context.Context) error {
		var e error
		res, e = c.db.GetItem(ctx, &awsv2dynamodb.GetItemInput{
			TableName: aws.String(c.tableName),
			Key:       key(pk, sk),
		})
		return e
	})
	if err != nil {
		return err
	}
	if res.Item == nil {
		return domain.ErrNotFound
	}
	return attributevalue.UnmarshalMap(res.Item, out)
}

// queryPrefix returns every item of a partition whose sort key starts with
// prefix. An empty prefix returns the whole partition.
func (c *Client) queryPrefix(ctx context.Context, segment, pk, prefix string, forward bool) ([]map[string]awsv2types.AttributeValue, error) {
	cond := "PK = :pk"
	values := map[string]awsv2types.AttributeValue{
		":pk": &awsv2types.AttributeValueMemberS{Value: pk},
	}
	if prefix != "" {
		cond += " AND begins_with(SK, :sk)"
		values[":sk"] = &awsv2types.AttributeValueMemberS{Value: prefix}
	}
	var items []map[string]awsv2types.AttributeValue
	err := xray.Capture(ctx, segment, func(ctx context.Context) error {
		p := awsv2dynamodb.NewQueryPaginator(c.db, &awsv2dynamodb.QueryInput{
			TableName:                 aws.String(c.tableName),
			KeyConditionExpression:    aws.String(cond),
			ExpressionAttributeValues: values,
			ScanIndexForward:          aws.Bool(forward),
		})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return err
			}
			items = append(items, page.Items...)
		}
		return nil
	})
	return items, err
}

// scan returns every item matching filter across the table.
func (c *Client) scan(ctx context.Context, segment, filter string, names map[string]string, values map[string]awsv2types.AttributeValue) ([]map[string]awsv2types.AttributeValue, error) {
	var items []map[string]awsv2types.AttributeValue
	err := xray.Capture(ctx, segment, func(ctx context.Context) error {
		input := &awsv2dynamodb.ScanInput{
			TableName:                 aws.String(c.tableName),
			FilterExpression:          aws.String(filter),
			ExpressionAttributeValues: values,
		}
		if len(names) > 0 {
			input.ExpressionAttributeNames = names
		}
		p := awsv2dynamodb.NewScanPaginator(c.db, input)
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return err
			}
			items = append(items, page.Items...)
		}
		return nil
	})
	return items, err
}

func unmarshalAll[T any](items []map[string]awsv2types.AttributeValue) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := attributevalue.UnmarshalMap(item, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
