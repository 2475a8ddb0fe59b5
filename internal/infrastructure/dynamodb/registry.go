package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-xray-sdk-go/xray"

	"github.com/abdirisakgelle/taskplus/internal/domain"
)

type permissionItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	EntityType  string `dynamodbav:"EntityType"`
	Key         string `dynamodbav:"Key"`
	Label       string `dynamodbav:"Label"`
	Group       string `dynamodbav:"Group"`
	Description string `dynamodbav:"Description"`
	CreatedAt   string `dynamodbav:"CreatedAt"`
}

type roleItem struct {
	PK          string   `dynamodbav:"PK"`
	SK          string   `dynamodbav:"SK"`
	EntityType  string   `dynamodbav:"EntityType"`
	Key         string   `dynamodbav:"Key"`
	Label       string   `dynamodbav:"Label"`
	Description string   `dynamodbav:"Description"`
	Permissions []string `dynamodbav:"Permissions"`
	CreatedAt   string   `dynamodbav:"CreatedAt"`
	UpdatedAt   string   `dynamodbav:"UpdatedAt"`
}

func newRoleItem(role domain.Role) roleItem {
	perms := make([]string, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		perms = append(perms, string(p))
	}
	return roleItem{
		PK:          registryPK,
		SK:          roleSK(role.Key),
		EntityType:  entityRole,
		Key:         string(role.Key),
		Label:       role.Label,
		Description: role.Description,
		Permissions: perms,
		CreatedAt:   formatTime(role.CreatedAt),
		UpdatedAt:   formatTime(role.UpdatedAt),
	}
}

func (i roleItem) toDomain() domain.Role {
	perms := make([]domain.PermissionKey, 0, len(i.Permissions))
	for _, p := range i.Permissions {
		perms = append(perms, domain.PermissionKey(p))
	}
	return domain.Role{
		Key:         domain.RoleKey(i.Key),
		Label:       i.Label,
		Description: i.Description,
		Permissions: perms,
		CreatedAt:   parseTime(i.CreatedAt),
		UpdatedAt:   parseTime(i.UpdatedAt),
	}
}

type PermissionRepository struct{ client *Client }

type RoleRepository struct{ client *Client }

func NewPermissionRepository(client *Client) *PermissionRepository {
	return &PermissionRepository{client: client}
}

func NewRoleRepository(client *Client) *RoleRepository {
	return &RoleRepository{client: client}
}

func (r *PermissionRepository) Put(ctx context.Context, permission domain.Permission) error {
	createdAt := permission.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return r.client.put(ctx, "DynamoDB.PutPermission", permissionItem{
		PK:          registryPK,
		SK:          permSK(permission.Key),
		EntityType:  entityPermission,
		Key:         string(permission.Key),
		Label:       permission.Label,
		Group:       permission.Group,
		Description: permission.Description,
		CreatedAt:   formatTime(createdAt),
	}, "")
}

func (r *PermissionRepository) List(ctx context.Context) ([]domain.Permission, error) {
	items, err := r.client.queryPrefix(ctx, "DynamoDB.QueryPermissions", registryPK, "PERM#", true)
	if err != nil {
		return nil, err
	}
	raw, err := unmarshalAll[permissionItem](items)
	if err != nil {
		return nil, err
	}
	permissions := make([]domain.Permission, 0, len(raw))
	for _, p := range raw {
		permissions = append(permissions, domain.Permission{
			Key:         domain.PermissionKey(p.Key),
			Label:       p.Label,
			Group:       p.Group,
			Description: p.Description,
			CreatedAt:   parseTime(p.CreatedAt),
		})
	}
	return permissions, nil
}

// Create fails with ErrConflict when the role key is taken.
func (r *RoleRepository) Create(ctx context.Context, role domain.Role) error {
	return r.client.put(ctx, "DynamoDB.PutRole", newRoleItem(role), condNotExists)
}

// Put upserts the role; used when seeding presets.
func (r *RoleRepository) Put(ctx context.Context, role domain.Role) error {
	return r.client.put(ctx, "DynamoDB.PutRole", newRoleItem(role), "")
}

func (r *RoleRepository) Update(ctx context.Context, role domain.Role) error {
	item := newRoleItem(role)
	permissionsAV, err := attributevalue.Marshal(item.Permissions)
	if err != nil {
		return err
	}
	return xray.Capture(ctx, "DynamoDB.UpdateRole", func(ctx context.Context) error {
		_, err := r.client.db.UpdateItem(ctx, &awsv2dynamodb.UpdateItemInput{
			TableName:        aws.String(r.client.tableName),
			Key:              key(registryPK, item.SK),
			UpdateExpression: aws.String("SET #l = :l, #d = :d, Permissions = :p, UpdatedAt = :u"),
			ExpressionAttributeNames: map[string]string{
				"#l": "Label",
				"#d": "Description",
			},
			ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
				":l": &awsv2types.AttributeValueMemberS{Value: item.Label},
				":d": &awsv2types.AttributeValueMemberS{Value: item.Description},
				":p": permissionsAV,
				":u": &awsv2types.AttributeValueMemberS{Value: item.UpdatedAt},
			},
			ConditionExpression: aws.String(condExists),
		})
		if isConditionalCheckFailure(err) {
			return domain.ErrNotFound
		}
		return err
	})
}

func (r *RoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	items, err := r.client.queryPrefix(ctx, "DynamoDB.QueryRoles", registryPK, "ROLE#", true)
	if err != nil {
		return nil, err
	}
	raw, err := unmarshalAll[roleItem](items)
	if err != nil {
		return nil, err
	}
	roles := make([]domain.Role, 0, len(raw))
	for _, i := range raw {
		roles = append(roles, i.toDomain())
	}
	return roles, nil
}
