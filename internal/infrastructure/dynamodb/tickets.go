package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-xray-sdk-go/xray"

	"github.com/abdirisakgelle/taskplus/internal/domain"
)

// transactWriteLimit is the maximum number of actions per TransactWriteItems call.
const transactWriteLimit = 100

type ticketItem struct {
	PK                   string                      `dynamodbav:"PK"`
	SK                   string                      `dynamodbav:"SK"`
	EntityType           string                      `dynamodbav:"EntityType"`
	TicketID             int64                       `dynamodbav:"TicketID"`
	CustomerPhone        string                      `dynamodbav:"CustomerPhone"`
	CustomerLocation     string                      `dynamodbav:"CustomerLocation,omitempty"`
	CommunicationChannel domain.CommunicationChannel `dynamodbav:"CommunicationChannel,omitempty"`
	DeviceType           string                      `dynamodbav:"DeviceType,omitempty"`
	IssueCategory        domain.IssueCategory        `dynamodbav:"IssueCategory"`
	IssueType            string                      `dynamodbav:"IssueType,omitempty"`
	IssueDescription     *string                     `dynamodbav:"IssueDescription,omitempty"`
	AgentID              *int64                      `dynamodbav:"AgentID,omitempty"`
	ResolutionStatus     domain.ResolutionStatus     `dynamodbav:"ResolutionStatus"`
	FirstCallResolution  domain.FCR                  `dynamodbav:"FirstCallResolution"`
	FCROverride          *domain.FCR                 `dynamodbav:"FCROverride,omitempty"`
	CreatedAt            string                      `dynamodbav:"CreatedAt"`
	UpdatedAt            string                      `dynamodbav:"UpdatedAt"`
}

func newTicketItem(t domain.Ticket) ticketItem {
	return ticketItem{
		PK:                   ticketPK(t.TicketID),
		SK:                   metaSK,
		EntityType:           entityTicket,
		TicketID:             t.TicketID,
		CustomerPhone:        t.CustomerPhone,
		CustomerLocation:     t.CustomerLocation,
		CommunicationChannel: t.CommunicationChannel,
		DeviceType:           t.DeviceType,
		IssueCategory:        t.IssueCategory,
		IssueType:            t.IssueType,
		IssueDescription:     t.IssueDescription,
		AgentID:              t.AgentID,
		ResolutionStatus:     t.ResolutionStatus,
		FirstCallResolution:  t.FirstCallResolution,
		FCROverride:          t.FCROverride,
		CreatedAt:            formatTime(t.CreatedAt),
		UpdatedAt:            formatTime(t.UpdatedAt),
	}
}

func (i ticketItem) toDomain() domain.Ticket {
	return domain.Ticket{
		TicketID:             i.TicketID,
		CustomerPhone:        i.CustomerPhone,
		CustomerLocation:     i.CustomerLocation,
		CommunicationChannel: i.CommunicationChannel,
		DeviceType:           i.DeviceType,
		IssueCategory:        i.IssueCategory,
		IssueType:            i.IssueType,
		IssueDescription:     i.IssueDescription,
		AgentID:              i.AgentID,
		ResolutionStatus:     i.ResolutionStatus,
		FirstCallResolution:  i.FirstCallResolution,
		FCROverride:          i.FCROverride,
		CreatedAt:            parseTime(i.CreatedAt),
		UpdatedAt:            parseTime(i.UpdatedAt),
	}
}

type followUpItem struct {
	PK              string `dynamodbav:"PK"`
	SK              string `dynamodbav:"SK"`
	EntityType      string `dynamodbav:"EntityType"`
	FollowUpID      int64  `dynamodbav:"FollowUpID"`
	TicketID        int64  `dynamodbav:"TicketID"`
	FollowUpAgentID *int64 `dynamodbav:"FollowUpAgentID,omitempty"`
	FollowUpDate    string `dynamodbav:"FollowUpDate"`
	IssueSolved     *bool  `dynamodbav:"IssueSolved,omitempty"`
	Satisfied       *bool  `dynamodbav:"Satisfied,omitempty"`
	RepeatedIssue   bool   `dynamodbav:"RepeatedIssue"`
	FollowUpNotes   string `dynamodbav:"FollowUpNotes,omitempty"`
}

type reviewItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	ReviewID   int64  `dynamodbav:"ReviewID"`
	TicketID   int64  `dynamodbav:"TicketID"`
	ReviewerID *int64 `dynamodbav:"ReviewerID,omitempty"`
	Resolved   *bool  `dynamodbav:"Resolved,omitempty"`
	Notes      string `dynamodbav:"Notes,omitempty"`
	ReviewDate string `dynamodbav:"ReviewDate"`
}

type TicketRepository struct{ client *Client }

type FollowUpRepository struct{ client *Client }

type ReviewRepository struct{ client *Client }

func NewTicketRepository(client *Client) *TicketRepository {
	return &TicketRepository{client: client}
}

func NewFollowUpRepository(client *Client) *FollowUpRepository {
	return &FollowUpRepository{client: client}
}

func NewReviewRepository(client *Client) *ReviewRepository {
	return &ReviewRepository{client: client}
}

func (r *TicketRepository) Create(ctx context.Context, ticket domain.Ticket) error {
	return r.client.put(ctx, "DynamoDB.PutTicket", newTicketItem(ticket), condNotExists)
}

func (r *TicketRepository) Put(ctx context.Context, ticket domain.Ticket) error {
	return r.client.put(ctx, "DynamoDB.UpdateTicket", newTicketItem(ticket), condExists)
}

func (r *TicketRepository) GetByID(ctx context.Context, ticketID int64) (domain.Ticket, error) {
	var raw ticketItem
	if err := r.client.get(ctx, "DynamoDB.GetTicket", ticketPK(ticketID), metaSK, &raw); err != nil {
		return domain.Ticket{}, err
	}
	return raw.toDomain(), nil
}

// List scans all tickets, optionally narrowed to one resolution status.
func (r *TicketRepository) List(ctx context.Context, status domain.ResolutionStatus) ([]domain.Ticket, error) {
	filter := "EntityType = :t"
	values := map[string]awsv2types.AttributeValue{
		":t": &awsv2types.AttributeValueMemberS{Value: entityTicket},
	}
	if status != "" {
		filter += " AND ResolutionStatus = :s"
		values[":s"] = &awsv2types.AttributeValueMemberS{Value: string(status)}
	}
	items, err := r.client.scan(ctx, "DynamoDB.ScanTickets", filter, nil, values)
	if err != nil {
		return nil, err
	}
	return toTickets(items)
}

// ListStale returns non-completed tickets last updated before the cutoff.
func (r *TicketRepository) ListStale(ctx context.Context, updatedBefore time.Time) ([]domain.Ticket, error) {
	items, err := r.client.scan(ctx, "DynamoDB.ScanStaleTickets",
		"EntityType = :t AND ResolutionStatus <> :done AND UpdatedAt < :before", nil,
		map[string]awsv2types.AttributeValue{
			":t":      &awsv2types.AttributeValueMemberS{Value: entityTicket},
			":done":   &awsv2types.AttributeValueMemberS{Value: string(domain.StatusCompleted)},
			":before": &awsv2types.AttributeValueMemberS{Value: formatTime(updatedBefore)},
		})
	if err != nil {
		return nil, err
	}
	return toTickets(items)
}

func toTickets(items []map[string]awsv2types.AttributeValue) ([]domain.Ticket, error) {
	raw, err := unmarshalAll[ticketItem](items)
	if err != nil {
		return nil, err
	}
	tickets := make([]domain.Ticket, 0, len(raw))
	for _, i := range raw {
		tickets = append(tickets, i.toDomain())
	}
	return tickets, nil
}

// Delete removes every item of the ticket partition: the ticket, its
// follow-ups and its reviews. A partition of up to transactWriteLimit items
// goes in one transaction. Larger ones are deleted in several transactions
// with the ticket item in the last one, so a failed run leaves the ticket
// visible and a retry finishes the cascade.
func (r *TicketRepository) Delete(ctx context.Context, ticketID int64) error {
	items, err := r.client.queryPrefix(ctx, "DynamoDB.QueryTicketItems", ticketPK(ticketID), "", true)
	if err != nil {
		return err
	}
	var meta map[string]awsv2types.AttributeValue
	children := make([]map[string]awsv2types.AttributeValue, 0, len(items))
	for _, item := range items {
		if sk, ok := item["SK"].(*awsv2types.AttributeValueMemberS); ok && sk.Value == metaSK {
			meta = item
			continue
		}
		children = append(children, item)
	}
	if meta == nil {
		return domain.ErrNotFound
	}
	ordered := append(children, meta)

	for start := 0; start < len(ordered); start += transactWriteLimit {
		chunk := ordered[start:min(start+transactWriteLimit, len(ordered))]
		writes := make([]awsv2types.TransactWriteItem, 0, len(chunk))
		for _, item := range chunk {
			writes = append(writes, awsv2types.TransactWriteItem{Delete: &awsv2types.Delete{
				TableName: aws.String(r.client.tableName),
				Key:       map[string]awsv2types.AttributeValue{"PK": item["PK"], "SK": item["SK"]},
			}})
		}
		err := xray.Capture(ctx, "DynamoDB.DeleteTicket", func(ctx context.Context) error {
			_, err := r.client.db.TransactWriteItems(ctx, &awsv2dynamodb.TransactWriteItemsInput{TransactItems: writes})
			return err
		})
		if err != nil {
			return fmt.Errorf("delete ticket %d: %w", ticketID, err)
		}
	}
	return nil
}

func (r *FollowUpRepository) Create(ctx context.Context, followUp domain.FollowUp) error {
	return r.client.put(ctx, "DynamoDB.PutFollowUp", newFollowUpItem(followUp), condNotExists)
}

func (r *FollowUpRepository) Put(ctx context.Context, followUp domain.FollowUp) error {
	return r.client.put(ctx, "DynamoDB.UpdateFollowUp", newFollowUpItem(followUp), condExists)
}

func newFollowUpItem(f domain.FollowUp) followUpItem {
	return followUpItem{
		PK:              ticketPK(f.TicketID),
		SK:              followUpSK(f.FollowUpID),
		EntityType:      entityFollowUp,
		FollowUpID:      f.FollowUpID,
		TicketID:        f.TicketID,
		FollowUpAgentID: f.FollowUpAgentID,
		FollowUpDate:    formatTime(f.FollowUpDate),
		IssueSolved:     f.IssueSolved,
		Satisfied:       f.Satisfied,
		RepeatedIssue:   f.RepeatedIssue,
		FollowUpNotes:   f.FollowUpNotes,
	}
}

func (r *FollowUpRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.FollowUp, error) {
	items, err := r.client.queryPrefix(ctx, "DynamoDB.QueryFollowUps", ticketPK(ticketID), "FOLLOWUP#", true)
	if err != nil {
		return nil, err
	}
	raw, err := unmarshalAll[followUpItem](items)
	if err != nil {
		return nil, err
	}
	followUps := make([]domain.FollowUp, 0, len(raw))
	for _, i := range raw {
		followUps = append(followUps, domain.FollowUp{
			FollowUpID:      i.FollowUpID,
			TicketID:        i.TicketID,
			FollowUpAgentID: i.FollowUpAgentID,
			FollowUpDate:    parseTime(i.FollowUpDate),
			IssueSolved:     i.IssueSolved,
			Satisfied:       i.Satisfied,
			RepeatedIssue:   i.RepeatedIssue,
			FollowUpNotes:   i.FollowUpNotes,
		})
	}
	return followUps, nil
}

func (r *ReviewRepository) Create(ctx context.Context, review domain.Review) error {
	return r.client.put(ctx, "DynamoDB.PutReview", reviewItem{
		PK:         ticketPK(review.TicketID),
		SK:         reviewSK(review.ReviewID),
		EntityType: entityReview,
		ReviewID:   review.ReviewID,
		TicketID:   review.TicketID,
		ReviewerID: review.ReviewerID,
		Resolved:   review.Resolved,
		Notes:      review.Notes,
		ReviewDate: formatTime(review.ReviewDate),
	}, condNotExists)
}

func (r *ReviewRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Review, error) {
	items, err := r.client.queryPrefix(ctx, "DynamoDB.QueryReviews", ticketPK(ticketID), "REVIEW#", true)
	if err != nil {
		return nil, err
	}
	raw, err := unmarshalAll[reviewItem](items)
	if err != nil {
		return nil, err
	}
	reviews := make([]domain.Review, 0, len(raw))
	for _, i := range raw {
		reviews = append(reviews, domain.Review{
			ReviewID:   i.ReviewID,
			TicketID:   i.TicketID,
			ReviewerID: i.ReviewerID,
			Resolved:   i.Resolved,
			Notes:      i.Notes,
			ReviewDate: parseTime(i.ReviewDate),
		})
	}
	return reviews, nil
}
