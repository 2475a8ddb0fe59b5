package dynamodb

import (
	"context"
	"testing"
	"time"

	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abdirisakgelle/taskplus/internal/domain"
)

type apiMock struct{ mock.Mock }

func (m *apiMock) PutItem(ctx context.Context, in *awsv2dynamodb.PutItemInput, _ ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	return &awsv2dynamodb.PutItemOutput{}, args.Error(0)
}

func (m *apiMock) GetItem(ctx context.Context, in *awsv2dynamodb.GetItemInput, _ ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(*awsv2dynamodb.GetItemOutput), args.Error(1)
}

func (m *apiMock) UpdateItem(ctx context.Context, in *awsv2dynamodb.UpdateItemInput, _ ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(*awsv2dynamodb.UpdateItemOutput), args.Error(1)
}

func (m *apiMock) Query(ctx context.Context, in *awsv2dynamodb.QueryInput, _ ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.QueryOutput, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(*awsv2dynamodb.QueryOutput), args.Error(1)
}

func (m *apiMock) Scan(ctx context.Context, in *awsv2dynamodb.ScanInput, _ ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.ScanOutput, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(*awsv2dynamodb.ScanOutput), args.Error(1)
}

func (m *apiMock) TransactWriteItems(ctx context.Context, in *awsv2dynamodb.TransactWriteItemsInput, _ ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.TransactWriteItemsOutput, error) {
	args := m.Called(ctx, in)
	return &awsv2dynamodb.TransactWriteItemsOutput{}, args.Error(0)
}

func (m *apiMock) DescribeTable(ctx context.Context, in *awsv2dynamodb.DescribeTableInput, _ ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.DescribeTableOutput, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(*awsv2dynamodb.DescribeTableOutput), args.Error(1)
}

func (m *apiMock) CreateTable(ctx context.Context, in *awsv2dynamodb.CreateTableInput, _ ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.CreateTableOutput, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(*awsv2dynamodb.CreateTableOutput), args.Error(1)
}

func testContext(t *testing.T) context.Context {
	ctx, seg := xray.BeginSegment(context.Background(), "dynamodb-test")
	t.Cleanup(func() { seg.Close(nil) })
	return ctx
}

func s(v string) *awsv2types.AttributeValueMemberS { return &awsv2types.AttributeValueMemberS{Value: v} }

func TestCounterRepository_Next(t *testing.T) {
	api := new(apiMock)
	repo := NewCounterRepository(NewClientWithAPI(api, "taskplus"))
	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *awsv2dynamodb.UpdateItemInput) bool {
		sk := in.Key["SK"].(*awsv2types.AttributeValueMemberS)
		return *in.UpdateExpression == "ADD Seq :one" && sk.Value == "ticket" && in.ReturnValues == awsv2types.ReturnValueUpdatedNew
	})).Return(&awsv2dynamodb.UpdateItemOutput{
		Attributes: map[string]awsv2types.AttributeValue{"Seq": &awsv2types.AttributeValueMemberN{Value: "42"}},
	}, nil)

	next, err := repo.Next(testContext(t), "ticket")
	require.NoError(t, err)
	assert.Equal(t, int64(42), next)
}

func TestTicketRepository_GetByIDNotFound(t *testing.T) {
	api := new(apiMock)
	repo := NewTicketRepository(NewClientWithAPI(api, "taskplus"))
	api.On("GetItem", mock.Anything, mock.Anything).Return(&awsv2dynamodb.GetItemOutput{}, nil)

	_, err := repo.GetByID(testContext(t), 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTicketRepository_RoundTrip(t *testing.T) {
	api := new(apiMock)
	repo := NewTicketRepository(NewClientWithAPI(api, "taskplus"))
	agent := int64(5)
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ticket := domain.Ticket{
		TicketID:            3,
		CustomerPhone:       "0712345678",
		IssueCategory:       domain.CategoryOTP,
		AgentID:             &agent,
		ResolutionStatus:    domain.StatusInProgress,
		FirstCallResolution: domain.FCRNo,
		CreatedAt:           created,
		UpdatedAt:           created,
	}

	var stored map[string]awsv2types.AttributeValue
	api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *awsv2dynamodb.PutItemInput) bool {
		return *in.ConditionExpression == condNotExists
	})).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*awsv2dynamodb.PutItemInput).Item
	}).Return(nil)
	require.NoError(t, repo.Create(testContext(t), ticket))
	assert.Equal(t, s("TICKET#3"), stored["PK"])
	assert.Equal(t, s("TICKET"), stored["EntityType"])

	api.On("GetItem", mock.Anything, mock.Anything).Return(&awsv2dynamodb.GetItemOutput{Item: stored}, nil)
	got, err := repo.GetByID(testContext(t), 3)
	require.NoError(t, err)
	assert.Equal(t, ticket, got)
}

func TestTicketRepository_PutMissingTicket(t *testing.T) {
	api := new(apiMock)
	repo := NewTicketRepository(NewClientWithAPI(api, "taskplus"))
	api.On("PutItem", mock.Anything, mock.Anything).Return(&awsv2types.ConditionalCheckFailedException{})

	err := repo.Put(testContext(t), domain.Ticket{TicketID: 9})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func ticketPartition(followUps int) []map[string]awsv2types.AttributeValue {
	items := []map[string]awsv2types.AttributeValue{{"PK": s("TICKET#1"), "SK": s("META")}}
	for i := 1; i <= followUps; i++ {
		items = append(items, map[string]awsv2types.AttributeValue{"PK": s("TICKET#1"), "SK": s(followUpSK(int64(i)))})
	}
	return items
}

func lastDeletedSK(in *awsv2dynamodb.TransactWriteItemsInput) string {
	last := in.TransactItems[len(in.TransactItems)-1]
	return last.Delete.Key["SK"].(*awsv2types.AttributeValueMemberS).Value
}

func TestTicketRepository_DeleteCascadesInOneTransaction(t *testing.T) {
	api := new(apiMock)
	repo := NewTicketRepository(NewClientWithAPI(api, "taskplus"))
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *awsv2dynamodb.QueryInput) bool {
		return *in.KeyConditionExpression == "PK = :pk"
	})).Return(&awsv2dynamodb.QueryOutput{Items: ticketPartition(29)}, nil)

	var calls []*awsv2dynamodb.TransactWriteItemsInput
	api.On("TransactWriteItems", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		calls = append(calls, args.Get(1).(*awsv2dynamodb.TransactWriteItemsInput))
	}).Return(nil)

	require.NoError(t, repo.Delete(testContext(t), 1))
	require.Len(t, calls, 1)
	assert.Len(t, calls[0].TransactItems, 30)
	assert.Equal(t, "META", lastDeletedSK(calls[0]))
}

func TestTicketRepository_DeleteLargePartitionRemovesTicketLast(t *testing.T) {
	api := new(apiMock)
	repo := NewTicketRepository(NewClientWithAPI(api, "taskplus"))
	api.On("Query", mock.Anything, mock.Anything).Return(&awsv2dynamodb.QueryOutput{Items: ticketPartition(120)}, nil)

	var calls []*awsv2dynamodb.TransactWriteItemsInput
	api.On("TransactWriteItems", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		calls = append(calls, args.Get(1).(*awsv2dynamodb.TransactWriteItemsInput))
	}).Return(nil)

	require.NoError(t, repo.Delete(testContext(t), 1))
	require.Len(t, calls, 2)
	assert.Len(t, calls[0].TransactItems, 100)
	assert.NotEqual(t, "META", lastDeletedSK(calls[0]))
	assert.Len(t, calls[1].TransactItems, 21)
	assert.Equal(t, "META", lastDeletedSK(calls[1]))
}

func TestTicketRepository_DeleteFailureKeepsTicket(t *testing.T) {
	api := new(apiMock)
	repo := NewTicketRepository(NewClientWithAPI(api, "taskplus"))
	api.On("Query", mock.Anything, mock.Anything).Return(&awsv2dynamodb.QueryOutput{Items: ticketPartition(120)}, nil)
	api.On("TransactWriteItems", mock.Anything, mock.Anything).Return(&awsv2types.TransactionCanceledException{}).Once()

	err := repo.Delete(testContext(t), 1)
	require.Error(t, err)
	api.AssertNumberOfCalls(t, "TransactWriteItems", 1)
}

func TestTicketRepository_DeleteMissingTicket(t *testing.T) {
	api := new(apiMock)
	repo := NewTicketRepository(NewClientWithAPI(api, "taskplus"))
	api.On("Query", mock.Anything, mock.Anything).Return(&awsv2dynamodb.QueryOutput{}, nil)

	assert.ErrorIs(t, repo.Delete(testContext(t), 1), domain.ErrNotFound)
}

func TestTicketRepository_ListStaleFilters(t *testing.T) {
	api := new(apiMock)
	repo := NewTicketRepository(NewClientWithAPI(api, "taskplus"))
	cutoff := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	api.On("Scan", mock.Anything, mock.MatchedBy(func(in *awsv2dynamodb.ScanInput) bool {
		before := in.ExpressionAttributeValues[":before"].(*awsv2types.AttributeValueMemberS)
		return before.Value == "2026-03-01T08:00:00Z"
	})).Return(&awsv2dynamodb.ScanOutput{Items: []map[string]awsv2types.AttributeValue{
		{"TicketID": &awsv2types.AttributeValueMemberN{Value: "4"}, "ResolutionStatus": s("Pending")},
	}}, nil)

	got, err := repo.ListStale(testContext(t), cutoff)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(4), got[0].TicketID)
}

func TestUserRepository_CreateWritesAliases(t *testing.T) {
	api := new(apiMock)
	repo := NewUserRepository(NewClientWithAPI(api, "taskplus"))
	api.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *awsv2dynamodb.TransactWriteItemsInput) bool {
		return len(in.TransactItems) == 3
	})).Return(nil).Once()
	api.On("TransactWriteItems", mock.Anything, mock.Anything).Return(&awsv2types.TransactionCanceledException{})

	user := domain.User{ID: "u1", Username: "amina", Email: "Amina@Example.com"}
	require.NoError(t, repo.Create(testContext(t), user))
	assert.ErrorIs(t, repo.Create(testContext(t), user), domain.ErrConflict)
}

func TestUserRepository_GetByIdentifier(t *testing.T) {
	api := new(apiMock)
	repo := NewUserRepository(NewClientWithAPI(api, "taskplus"))
	api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *awsv2dynamodb.GetItemInput) bool {
		return in.Key["PK"].(*awsv2types.AttributeValueMemberS).Value == "IDENT#amina@example.com"
	})).Return(&awsv2dynamodb.GetItemOutput{Item: map[string]awsv2types.AttributeValue{"UserID": s("u1")}}, nil)
	api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *awsv2dynamodb.GetItemInput) bool {
		return in.Key["PK"].(*awsv2types.AttributeValueMemberS).Value == "USER#u1"
	})).Return(&awsv2dynamodb.GetItemOutput{Item: map[string]awsv2types.AttributeValue{
		"ID":         s("u1"),
		"Username":   s("amina"),
		"EmployeeID": &awsv2types.AttributeValueMemberN{Value: "12"},
	}}, nil)

	user, err := repo.GetByIdentifier(testContext(t), "Amina@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "amina", user.Username)
	require.NotNil(t, user.EmployeeID)
	assert.Equal(t, int64(12), *user.EmployeeID)
}

func TestUserAccessRepository_RoundTrip(t *testing.T) {
	api := new(apiMock)
	repo := NewUserAccessRepository(NewClientWithAPI(api, "taskplus"))
	home := "/content/ideas"
	maxPages := 3
	access := domain.UserAccess{
		UserID:      "u1",
		Roles:       []domain.RoleKey{"agent"},
		PermsDenied: []domain.PermissionKey{domain.PermContentIdeas},
		HomeRoute:   &home,
		PageAccess: []domain.PageAccessRule{
			{Permission: domain.PermSupportTickets, MaxPages: &maxPages, SectionsAllowed: []string{"billing"}},
		},
		UpdatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	var stored map[string]awsv2types.AttributeValue
	api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *awsv2dynamodb.PutItemInput) bool {
		return in.ConditionExpression == nil
	})).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*awsv2dynamodb.PutItemInput).Item
	}).Return(nil)
	require.NoError(t, repo.Put(testContext(t), access))

	api.On("GetItem", mock.Anything, mock.Anything).Return(&awsv2dynamodb.GetItemOutput{Item: stored}, nil)
	got, err := repo.Get(testContext(t), "u1")
	require.NoError(t, err)
	assert.Equal(t, access.Roles, got.Roles)
	assert.Equal(t, access.PageAccess, got.PageAccess)
	assert.Equal(t, home, *got.HomeRoute)
	assert.Equal(t, access.UpdatedAt, got.UpdatedAt)
}

func TestNotificationRepository_MarkReadMissing(t *testing.T) {
	api := new(apiMock)
	repo := NewNotificationRepository(NewClientWithAPI(api, "taskplus"))
	api.On("UpdateItem", mock.Anything, mock.Anything).Return(&awsv2dynamodb.UpdateItemOutput{}, &awsv2types.ConditionalCheckFailedException{})

	assert.ErrorIs(t, repo.MarkRead(testContext(t), 5, 1), domain.ErrNotFound)
}

func TestRoleRepository_CreateConflict(t *testing.T) {
	api := new(apiMock)
	repo := NewRoleRepository(NewClientWithAPI(api, "taskplus"))
	api.On("PutItem", mock.Anything, mock.Anything).Return(&awsv2types.ConditionalCheckFailedException{})

	assert.ErrorIs(t, repo.Create(testContext(t), domain.Role{Key: "agent"}), domain.ErrConflict)
}
