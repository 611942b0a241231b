// Package dynamo provides a Connector backed by a single DynamoDB table.
//
// Each container is one item (pk = "container#<name>") holding the
// serialized collection plus a version attribute that serves as the version
// token; locks are separate items created with a conditional put, so lock
// acquisition and token validation both lean on DynamoDB conditional
// writes instead of local state.
package dynamo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/marldb/marl/pkg/core"
	"github.com/marldb/marl/pkg/lock"
)

const (
	containerPrefix = "container#"
	lockPrefix      = "lock#"
	collectionSK    = "COLLECTION"
	lockSK          = "LOCK"
)

// API is the subset of the DynamoDB client the connector uses. Declared
// here so tests can substitute a local fake.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Config holds the connector settings.
type Config struct {
	// Table is the DynamoDB table name. Required.
	Table string

	// Region overrides the SDK's resolved region when set.
	Region string

	Logger *slog.Logger
}

// Connector implements core.Connector over DynamoDB.
type Connector struct {
	api    API
	table  string
	logger *slog.Logger
}

// New wraps an existing DynamoDB client.
func New(api API, cfg Config) (*Connector, error) {
	if cfg.Table == "" {
		return nil, core.Invalid("dynamo: table name is required")
	}
	return &Connector{api: api, table: cfg.Table, logger: cfg.Logger}, nil
}

// NewFromContext builds the SDK client from the default credential chain.
func NewFromContext(ctx context.Context, cfg Config) (*Connector, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, core.Backend(err, "Failed to load AWS configuration")
	}
	return New(dynamodb.NewFromConfig(awsCfg), cfg)
}

// collectionItem is the persisted shape of one container.
type collectionItem struct {
	PK      string `dynamodbav:"pk"`
	SK      string `dynamodbav:"sk"`
	Records string `dynamodbav:"records"`
	Version string `dynamodbav:"version"`
	Count   int    `dynamodbav:"record_count"`
	Bytes   int    `dynamodbav:"record_bytes"`
}

// lockItem is the persisted shape of one container lock.
type lockItem struct {
	PK         string `dynamodbav:"pk"`
	SK         string `dynamodbav:"sk"`
	Container  string `dynamodbav:"container"`
	Handle     string `dynamodbav:"handle"`
	AcquiredAt string `dynamodbav:"acquired_at"`
}

func containerKey(container string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: containerPrefix + container},
		"sk": &types.AttributeValueMemberS{Value: collectionSK},
	}
}

func lockKey(container string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: lockPrefix + container},
		"sk": &types.AttributeValueMemberS{Value: lockSK},
	}
}

func (c *Connector) ReadCollection(ctx context.Context, container string) (core.Collection, core.VersionToken, error) {
	item, err := c.readItem(ctx, container)
	if err != nil {
		return nil, "", err
	}
	if item == nil {
		// Absent container reads as empty. The sentinel token lets a later
		// write assert the container is still absent.
		return core.Collection{}, emptyToken, nil
	}
	var coll core.Collection
	if err := json.Unmarshal([]byte(item.Records), &coll); err != nil {
		return nil, "", core.Backend(err, "Failed to retrieve %s: corrupt collection item", container)
	}
	return coll, core.VersionToken(item.Version), nil
}

func (c *Connector) WriteNewRecord(ctx context.Context, container string, rec core.Record, expected core.VersionToken) (core.VersionToken, error) {
	return c.mutate(ctx, container, expected, func(coll core.Collection) (core.Collection, error) {
		return append(coll, rec.Clone()), nil
	})
}

func (c *Connector) UpdateRecord(ctx context.Context, container, name string, patch core.Record, expected core.VersionToken) (core.VersionToken, error) {
	return c.mutate(ctx, container, expected, func(coll core.Collection) (core.Collection, error) {
		idx := coll.IndexOf(name)
		if idx < 0 {
			return nil, core.NotFound("no record named %q in %s", name, container)
		}
		coll[idx] = coll[idx].Merge(patch)
		return coll, nil
	})
}

func (c *Connector) DeleteRecord(ctx context.Context, container, name string, expected core.VersionToken) (core.VersionToken, error) {
	return c.mutate(ctx, container, expected, func(coll core.Collection) (core.Collection, error) {
		idx := coll.IndexOf(name)
		if idx < 0 {
			return nil, core.NotFound("no record named %q in %s", name, container)
		}
		return append(coll[:idx:idx], coll[idx+1:]...), nil
	})
}

// emptyToken marks a container that has no item yet. Writes carrying it use
// an attribute_not_exists condition instead of a version equality check.
const emptyToken core.VersionToken = "empty"

// mutate applies fn to the current collection and writes the result back
// with a conditional put keyed to the expected version. The read is
// unconditional; the condition on the put is what makes the commit safe.
func (c *Connector) mutate(ctx context.Context, container string, expected core.VersionToken, fn func(core.Collection) (core.Collection, error)) (core.VersionToken, error) {
	coll, _, err := c.ReadCollection(ctx, container)
	if err != nil {
		return "", err
	}
	next, err := fn(coll)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(next)
	if err != nil {
		return "", core.Backend(err, "Failed to write %s: encode collection", container)
	}
	token := core.VersionToken(uuid.NewString())
	item, err := attributevalue.MarshalMap(collectionItem{
		PK:      containerPrefix + container,
		SK:      collectionSK,
		Records: string(data),
		Version: string(token),
		Count:   len(next),
		Bytes:   len(data),
	})
	if err != nil {
		return "", core.Backend(err, "Failed to write %s: marshal item", container)
	}

	in := &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      item,
	}
	if expected == emptyToken {
		in.ConditionExpression = aws.String("attribute_not_exists(pk)")
	} else {
		in.ConditionExpression = aws.String("version = :expected")
		in.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberS{Value: string(expected)},
		}
	}

	if _, err := c.api.PutItem(ctx, in); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return "", core.VersionConflict(container)
		}
		return "", core.Backend(err, "Failed to write %s", container)
	}
	if c.logger != nil {
		c.logger.Debug("committed collection", "container", container, "records", len(next))
	}
	return token, nil
}

func (c *Connector) AcquireContainerLock(ctx context.Context, container string) (core.LockHandle, error) {
	handle := core.LockHandle{Container: container, Token: uuid.NewString()}
	item, err := attributevalue.MarshalMap(lockItem{
		PK:         lockPrefix + container,
		SK:         lockSK,
		Container:  container,
		Handle:     handle.Token,
		AcquiredAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return core.LockHandle{}, core.Backend(err, "Failed to lock %s", container)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(pk)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return core.LockHandle{}, core.LockConflict(container)
		}
		return core.LockHandle{}, core.Backend(err, "Failed to lock %s", container)
	}
	return handle, nil
}

func (c *Connector) ReleaseContainerLock(ctx context.Context, handle core.LockHandle) error {
	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(c.table),
		Key:                 lockKey(handle.Container),
		ConditionExpression: aws.String("attribute_not_exists(pk) OR handle = :handle"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":handle": &types.AttributeValueMemberS{Value: handle.Token},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			// Someone else's lock; releasing is a no-op.
			return nil
		}
		return core.Backend(err, "Failed to unlock %s", handle.Container)
	}
	return nil
}

func (c *Connector) CheckLock(ctx context.Context, container string) (bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.table),
		Key:            lockKey(container),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, core.Backend(err, "Failed to inspect lock for %s", container)
	}
	return out.Item != nil, nil
}

// BreakLock force-removes a lock older than the given age. Used by the
// lock manager's administrative recovery path.
func (c *Connector) BreakLock(ctx context.Context, container string, olderThan time.Duration) (bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.table),
		Key:            lockKey(container),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, core.Backend(err, "Failed to inspect lock for %s", container)
	}
	if out.Item == nil {
		return false, nil
	}
	var lk lockItem
	if err := attributevalue.UnmarshalMap(out.Item, &lk); err != nil {
		return false, core.Backend(err, "Failed to inspect lock for %s", container)
	}
	if acquired, perr := time.Parse(time.RFC3339, lk.AcquiredAt); perr == nil {
		if age := time.Since(acquired); age < olderThan {
			return false, fmt.Errorf("lock on %s is only %s old, refusing to break", container, age.Round(time.Second))
		}
	}
	_, err = c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.table),
		Key:       lockKey(container),
	})
	if err != nil {
		return false, core.Backend(err, "Failed to unlock %s", container)
	}
	if c.logger != nil {
		c.logger.Warn("broke stale lock", "container", container, "handle", lk.Handle)
	}
	return true, nil
}

// ReadUsageMetric rejects every kind: repository-level metrics have no
// DynamoDB equivalent.
func (c *Connector) ReadUsageMetric(_ context.Context, kind core.MetricKind) (any, error) {
	switch kind {
	case core.MetricRepoSize, core.MetricStorageBilling, core.MetricActionsBilling,
		core.MetricWorkflowRuns, core.MetricUserList, core.MetricCurrentUser:
		// Per-container sizing goes through ContainerStats instead.
		return nil, core.Invalid("metric %s is not available on the dynamo backend", kind)
	default:
		return nil, core.Invalid("unknown metric kind %q", kind)
	}
}

// ContainerStats returns the stored record count and serialized size for
// one container, read from the item's counters without decoding records.
func (c *Connector) ContainerStats(ctx context.Context, container string) (count, bytes int, err error) {
	item, err := c.readItem(ctx, container)
	if err != nil {
		return 0, 0, err
	}
	if item == nil {
		return 0, 0, nil
	}
	return item.Count, item.Bytes, nil
}

// InvalidateCache is a no-op: reads are always served from the table.
func (c *Connector) InvalidateCache(context.Context, string) error {
	return nil
}

func (c *Connector) readItem(ctx context.Context, container string) (*collectionItem, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.table),
		Key:            containerKey(container),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, core.Backend(err, "Failed to retrieve %s", container)
	}
	if out.Item == nil {
		return nil, nil
	}
	var item collectionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, core.Backend(err, "Failed to retrieve %s", container)
	}
	return &item, nil
}

var _ core.Connector = (*Connector)(nil)
var _ lock.StaleLockBreaker = (*Connector)(nil)
