package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mautops/review-gin/internal/workflow"
	"github.com/openfga/go-sdk/client"
	"github.com/openfga/go-sdk/credentials"
)

// 提交记录在 OpenFGA 中的关系
const (
	ObjectTypeSubmission = "submission"
	RelationAuthor       = "author"
	RelationReviewer     = "reviewer"
)

// OpenFGAClient OpenFGA 客户端
type OpenFGAClient struct {
	client  *client.OpenFgaClient
	storeID string
	modelID string
}

// NewOpenFGAClient 创建 OpenFGA 客户端
func NewOpenFGAClient(apiURL string, storeID string, modelID string) (*OpenFGAClient, error) {
	configuration := client.ClientConfiguration{
		ApiUrl:               apiURL,
		StoreId:              storeID,
		AuthorizationModelId: modelID,
		Credentials: &credentials.Credentials{
			Method: credentials.CredentialsMethodNone,
		},
	}

	fgaClient, err := client.NewSdkClient(&configuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenFGA client: %w", err)
	}

	return &OpenFGAClient{
		client:  fgaClient,
		storeID: storeID,
		modelID: modelID,
	}, nil
}

// NewOpenFGAClientWithRetry 带重试的 OpenFGA 客户端创建
func NewOpenFGAClientWithRetry(apiURL string, storeID string, modelID string, maxRetries int, retryInterval time.Duration) (*OpenFGAClient, error) {
	var fgaClient *OpenFGAClient
	var err error

	for i := 0; i < maxRetries; i++ {
		fgaClient, err = NewOpenFGAClient(apiURL, storeID, modelID)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_, err = fgaClient.client.Read(ctx).Execute()
			cancel()
			if err == nil {
				return fgaClient, nil
			}
		}

		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2
		}
	}

	return nil, fmt.Errorf("failed to create OpenFGA client after %d retries: %w", maxRetries, err)
}

// CheckPermission 检查权限
func (c *OpenFGAClient) CheckPermission(ctx context.Context, userID, relation, objectType, objectID string) (bool, error) {
	body := client.ClientCheckRequest{
		User:     fmt.Sprintf("user:%s", userID),
		Relation: relation,
		Object:   fmt.Sprintf("%s:%s", objectType, objectID),
	}

	response, err := c.client.Check(ctx).Body(body).Execute()
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return response.GetAllowed(), nil
}

// ListObjectIDs 列出用户具有某关系的对象 ID
func (c *OpenFGAClient) ListObjectIDs(ctx context.Context, userID, relation, objectType string) ([]string, error) {
	body := client.ClientListObjectsRequest{
		User:     fmt.Sprintf("user:%s", userID),
		Relation: relation,
		Type:     objectType,
	}

	response, err := c.client.ListObjects(ctx).Body(body).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	prefix := objectType + ":"
	objects := response.GetObjects()
	ids := make([]string, 0, len(objects))
	for _, object := range objects {
		ids = append(ids, strings.TrimPrefix(object, prefix))
	}
	return ids, nil
}

// SetRelation 设置权限关系
func (c *OpenFGAClient) SetRelation(ctx context.Context, userID, relation, objectType, objectID string) error {
	body := client.ClientWriteRequest{
		Writes: []client.ClientTupleKey{
			{
				User:     fmt.Sprintf("user:%s", userID),
				Relation: relation,
				Object:   fmt.Sprintf("%s:%s", objectType, objectID),
			},
		},
	}
	if _, err := c.client.Write(ctx).Body(body).Execute(); err != nil {
		return fmt.Errorf("failed to set relation: %w", err)
	}
	return nil
}

// DeleteRelation 删除权限关系
func (c *OpenFGAClient) DeleteRelation(ctx context.Context, userID, relation, objectType, objectID string) error {
	body := client.ClientWriteRequest{
		Deletes: []client.ClientTupleKeyWithoutCondition{
			{
				User:     fmt.Sprintf("user:%s", userID),
				Relation: relation,
				Object:   fmt.Sprintf("%s:%s", objectType, objectID),
			},
		},
	}
	if _, err := c.client.Write(ctx).Body(body).Execute(); err != nil {
		return fmt.Errorf("failed to delete relation: %w", err)
	}
	return nil
}

// CheckHealth 检查 OpenFGA 连接健康状态
func (c *OpenFGAClient) CheckHealth(ctx context.Context) bool {
	if c == nil || c.client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.client.Read(ctx).Execute()
	return err == nil
}

// RelationStore 关系元组读写
type RelationStore interface {
	SetRelation(ctx context.Context, userID, relation, objectType, objectID string) error
	DeleteRelation(ctx context.Context, userID, relation, objectType, objectID string) error
}

// OwnershipSync 按工作流事件维护 author 与 reviewer 关系
type OwnershipSync struct {
	store RelationStore
}

// NewOwnershipSync 创建关系同步器
func NewOwnershipSync(store RelationStore) *OwnershipSync {
	return &OwnershipSync{store: store}
}

func (s *OwnershipSync) Name() string { return "openfga" }

// Notify 写入新的审批人关系,删除上一任审批人关系
func (s *OwnershipSync) Notify(ctx context.Context, evt workflow.Event) error {
	switch evt.Type {
	case workflow.EventCreated:
		return s.store.SetRelation(ctx, evt.Author, RelationAuthor, ObjectTypeSubmission, evt.SubmissionID)
	case workflow.EventDeleted:
		return s.store.DeleteRelation(ctx, evt.Author, RelationAuthor, ObjectTypeSubmission, evt.SubmissionID)
	}

	if evt.PreviousOwner != "" && evt.PreviousOwner != evt.Owner {
		if err := s.store.DeleteRelation(ctx, evt.PreviousOwner, RelationReviewer, ObjectTypeSubmission, evt.SubmissionID); err != nil {
			return err
		}
	}
	if evt.Owner != "" && evt.Owner != evt.PreviousOwner {
		if err := s.store.SetRelation(ctx, evt.Owner, RelationReviewer, ObjectTypeSubmission, evt.SubmissionID); err != nil {
			return err
		}
	}
	return nil
}
