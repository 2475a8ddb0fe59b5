package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-xray-sdk-go/xray"

	"github.com/abdirisakgelle/taskplus/internal/domain"
)

type notificationItem struct {
	PK             string `dynamodbav:"PK"`
	SK             string `dynamodbav:"SK"`
	EntityType     string `dynamodbav:"EntityType"`
	NotificationID int64  `dynamodbav:"NotificationID"`
	EmployeeID     int64  `dynamodbav:"EmployeeID"`
	Type           string `dynamodbav:"Type"`
	Title          string `dynamodbav:"Title"`
	Message        string `dynamodbav:"Message"`
	TicketID       int64  `dynamodbav:"TicketID,omitempty"`
	Read           bool   `dynamodbav:"Read"`
	CreatedAt      string `dynamodbav:"CreatedAt"`
}

type NotificationRepository struct{ client *Client }

func NewNotificationRepository(client *Client) *NotificationRepository {
	return &NotificationRepository{client: client}
}

func (r *NotificationRepository) Create(ctx context.Context, n domain.Notification) error {
	return r.client.put(ctx, "DynamoDB.PutNotification", notificationItem{
		PK:             inboxPK(n.EmployeeID),
		SK:             notificationSK(n.NotificationID),
		EntityType:     entityNotification,
		NotificationID: n.NotificationID,
		EmployeeID:     n.EmployeeID,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		TicketID:       n.TicketID,
		Read:           n.Read,
		CreatedAt:      formatTime(n.CreatedAt),
	}, condNotExists)
}

// ListByEmployee returns the employee's notifications, newest first.
func (r *NotificationRepository) ListByEmployee(ctx context.Context, employeeID int64) ([]domain.Notification, error) {
	items, err := r.client.queryPrefix(ctx, "DynamoDB.QueryNotifications", inboxPK(employeeID), "NOTIF#", false)
	if err != nil {
		return nil, err
	}
	raw, err := unmarshalAll[notificationItem](items)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(raw))
	for _, i := range raw {
		out = append(out, domain.Notification{
			NotificationID: i.NotificationID,
			EmployeeID:     i.EmployeeID,
			Type:           i.Type,
			Title:          i.Title,
			Message:        i.Message,
			TicketID:       i.TicketID,
			Read:           i.Read,
			CreatedAt:      parseTime(i.CreatedAt),
		})
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, employeeID, notificationID int64) error {
	return xray.Capture(ctx, "DynamoDB.MarkNotificationRead", func(ctx context.Context) error {
		_, err := r.client.db.UpdateItem(ctx, &awsv2dynamodb.UpdateItemInput{
			TableName:        aws.String(r.client.tableName),
			Key:              key(inboxPK(employeeID), notificationSK(notificationID)),
			UpdateExpression: aws.String("SET #r = :r"),
			ExpressionAttributeNames: map[string]string{
				"#r": "Read",
			},
			ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
				":r": &awsv2types.AttributeValueMemberBOOL{Value: true},
			},
			ConditionExpression: aws.String(condExists),
		})
		if isConditionalCheckFailure(err) {
			return domain.ErrNotFound
		}
		return err
	})
}
