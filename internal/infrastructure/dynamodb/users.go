package dynamodb

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-xray-sdk-go/xray"

	"github.com/abdirisakgelle/taskplus/internal/domain"
)

type userItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	EntityType   string `dynamodbav:"EntityType"`
	ID           string `dynamodbav:"ID"`
	Username     string `dynamodbav:"Username"`
	Email        string `dynamodbav:"Email"`
	EmployeeID   *int64 `dynamodbav:"EmployeeID,omitempty"`
	PasswordHash string `dynamodbav:"PasswordHash"`
	CreatedAt    string `dynamodbav:"CreatedAt"`
}

// identifierItem maps a lower-cased username or email to a user id.
type identifierItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	UserID     string `dynamodbav:"UserID"`
}

type accessItem struct {
	PK                     string                  `dynamodbav:"PK"`
	SK                     string                  `dynamodbav:"SK"`
	EntityType             string                  `dynamodbav:"EntityType"`
	UserID                 string                  `dynamodbav:"UserID"`
	Roles                  []domain.RoleKey        `dynamodbav:"Roles"`
	PermsExtra             []domain.PermissionKey  `dynamodbav:"PermsExtra"`
	PermsDenied            []domain.PermissionKey  `dynamodbav:"PermsDenied"`
	HomeRoute              *string                 `dynamodbav:"HomeRoute,omitempty"`
	PageAccess             []domain.PageAccessRule `dynamodbav:"PageAccess"`
	DepartmentRestrictions []string                `dynamodbav:"DepartmentRestrictions"`
	SectionRestrictions    []string                `dynamodbav:"SectionRestrictions"`
	UpdatedAt              string                  `dynamodbav:"UpdatedAt"`
}

type employeeItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	EntityType   string `dynamodbav:"EntityType"`
	EmployeeID   int64  `dynamodbav:"EmployeeID"`
	Name         string `dynamodbav:"Name"`
	DepartmentID string `dynamodbav:"DepartmentID"`
	SectionID    string `dynamodbav:"SectionID"`
}

type UserRepository struct{ client *Client }

type EmployeeRepository struct{ client *Client }

type UserAccessRepository struct{ client *Client }

func NewUserRepository(client *Client) *UserRepository {
	return &UserRepository{client: client}
}

func NewEmployeeRepository(client *Client) *EmployeeRepository {
	return &EmployeeRepository{client: client}
}

func NewUserAccessRepository(client *Client) *UserAccessRepository {
	return &UserAccessRepository{client: client}
}

// Create writes the user together with its username and email aliases in one
// transaction. Any existing id, username or email yields ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	items := []any{
		userItem{
			PK:           userPK(user.ID),
			SK:           metaSK,
			EntityType:   entityUser,
			ID:           user.ID,
			Username:     user.Username,
			Email:        user.Email,
			EmployeeID:   user.EmployeeID,
			PasswordHash: user.PasswordHash,
			CreatedAt:    formatTime(user.CreatedAt),
		},
	}
	seen := map[string]struct{}{}
	for _, ident := range []string{user.Username, user.Email} {
		ident = strings.ToLower(ident)
		if _, dup := seen[ident]; dup || ident == "" {
			continue
		}
		seen[ident] = struct{}{}
		items = append(items, identifierItem{PK: identPK(ident), SK: metaSK, EntityType: entityIdentifier, UserID: user.ID})
	}

	writes := make([]awsv2types.TransactWriteItem, 0, len(items))
	for _, item := range items {
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return err
		}
		writes = append(writes, awsv2types.TransactWriteItem{Put: &awsv2types.Put{
			TableName:           aws.String(r.client.tableName),
			Item:                av,
			ConditionExpression: aws.String(condNotExists),
		}})
	}
	return xray.Capture(ctx, "DynamoDB.CreateUser", func(ctx context.Context) error {
		_, err := r.client.db.TransactWriteItems(ctx, &awsv2dynamodb.TransactWriteItemsInput{TransactItems: writes})
		var canceled *awsv2types.TransactionCanceledException
		if errors.As(err, &canceled) {
			return domain.ErrConflict
		}
		return err
	})
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (domain.User, error) {
	var raw userItem
	if err := r.client.get(ctx, "DynamoDB.GetUser", userPK(userID), metaSK, &raw); err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:           raw.ID,
		Username:     raw.Username,
		Email:        raw.Email,
		EmployeeID:   raw.EmployeeID,
		PasswordHash: raw.PasswordHash,
		CreatedAt:    parseTime(raw.CreatedAt),
	}, nil
}

// GetByIdentifier resolves a username or email, case-insensitively.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (domain.User, error) {
	var alias identifierItem
	if err := r.client.get(ctx, "DynamoDB.GetUserIdentifier", identPK(strings.ToLower(identifier)), metaSK, &alias); err != nil {
		return domain.User{}, err
	}
	return r.GetByID(ctx, alias.UserID)
}

func (r *EmployeeRepository) Put(ctx context.Context, employee domain.Employee) error {
	return r.client.put(ctx, "DynamoDB.PutEmployee", employeeItem{
		PK:           employeePK(employee.EmployeeID),
		SK:           metaSK,
		EntityType:   entityEmployee,
		EmployeeID:   employee.EmployeeID,
		Name:         employee.Name,
		DepartmentID: employee.DepartmentID,
		SectionID:    employee.SectionID,
	}, "")
}

func (r *EmployeeRepository) GetByID(ctx context.Context, employeeID int64) (domain.Employee, error) {
	var raw employeeItem
	if err := r.client.get(ctx, "DynamoDB.GetEmployee", employeePK(employeeID), metaSK, &raw); err != nil {
		return domain.Employee{}, err
	}
	return domain.Employee{
		EmployeeID:   raw.EmployeeID,
		Name:         raw.Name,
		DepartmentID: raw.DepartmentID,
		SectionID:    raw.SectionID,
	}, nil
}

func (r *UserAccessRepository) Get(ctx context.Context, userID string) (domain.UserAccess, error) {
	var raw accessItem
	if err := r.client.get(ctx, "DynamoDB.GetUserAccess", userPK(userID), accessSK, &raw); err != nil {
		return domain.UserAccess{}, err
	}
	return domain.UserAccess{
		UserID:                 raw.UserID,
		Roles:                  raw.Roles,
		PermsExtra:             raw.PermsExtra,
		PermsDenied:            raw.PermsDenied,
		HomeRoute:              raw.HomeRoute,
		PageAccess:             raw.PageAccess,
		DepartmentRestrictions: raw.DepartmentRestrictions,
		SectionRestrictions:    raw.SectionRestrictions,
		UpdatedAt:              parseTime(raw.UpdatedAt),
	}, nil
}

func (r *UserAccessRepository) Put(ctx context.Context, access domain.UserAccess) error {
	return r.client.put(ctx, "DynamoDB.PutUserAccess", accessItem{
		PK:                     userPK(access.UserID),
		SK:                     accessSK,
		EntityType:             entityAccess,
		UserID:                 access.UserID,
		Roles:                  access.Roles,
		PermsExtra:             access.PermsExtra,
		PermsDenied:            access.PermsDenied,
		HomeRoute:              access.HomeRoute,
		PageAccess:             access.PageAccess,
		DepartmentRestrictions: access.DepartmentRestrictions,
		SectionRestrictions:    access.SectionRestrictions,
		UpdatedAt:              formatTime(access.UpdatedAt),
	}, "")
}
