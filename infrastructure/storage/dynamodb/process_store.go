package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/felixgeelhaar/goap/domain/process"
)

// processItem is the DynamoDB item of a process. Filterable fields are top
// level; the full record is kept as JSON.
type processItem struct {
	ID        string `dynamodbav:"id"`
	Goal      string `dynamodbav:"goal"`
	Status    string `dynamodbav:"status"`
	CreatedAt string `dynamodbav:"created_at"`
	EndTime   string `dynamodbav:"end_time,omitempty"`
	Data      string `dynamodbav:"data"`
}

// ProcessStore is a DynamoDB-backed implementation of process.Store.
// List scans the table, so it suits the modest volumes a CLI produces.
type ProcessStore struct {
	api          API
	table        string
	queryTimeout time.Duration
}

// NewProcessStore creates a store over api.
func NewProcessStore(api API, cfg Config) *ProcessStore {
	if cfg.Table == "" {
		cfg.Table = DefaultConfig().Table
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultConfig().QueryTimeout
	}
	return &ProcessStore{api: api, table: cfg.Table, queryTimeout: cfg.QueryTimeout}
}

// Save persists a new process.
func (s *ProcessStore) Save(ctx context.Context, p *process.Process) error {
	return s.put(ctx, p, "attribute_not_exists(id)", process.ErrProcessExists)
}

// Update replaces an existing process.
func (s *ProcessStore) Update(ctx context.Context, p *process.Process) error {
	return s.put(ctx, p, "attribute_exists(id)", process.ErrProcessNotFound)
}

func (s *ProcessStore) put(ctx context.Context, p *process.Process, condition string, onConflict error) error {
	if p.ID == "" {
		return process.ErrInvalidProcessID
	}
	item, err := toItem(p)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                av,
		ConditionExpression: aws.String(condition),
	})
	var failed *types.ConditionalCheckFailedException
	if errors.As(err, &failed) {
		return onConflict
	}
	return s.wrapError(err)
}

// Get retrieves a process by ID.
func (s *ProcessStore) Get(ctx context.Context, id string) (*process.Process, error) {
	if id == "" {
		return nil, process.ErrInvalidProcessID
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, s.wrapError(err)
	}
	if out.Item == nil {
		return nil, process.ErrProcessNotFound
	}

	var item processItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, err
	}
	return fromItem(&item)
}

// Delete removes a process by ID.
func (s *ProcessStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return process.ErrInvalidProcessID
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.table),
		Key:                 key(id),
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	var failed *types.ConditionalCheckFailedException
	if errors.As(err, &failed) {
		return process.ErrProcessNotFound
	}
	return s.wrapError(err)
}

// List returns processes matching the filter. Status and goal are pushed
// into the scan filter; ordering and paging happen client side.
func (s *ProcessStore) List(ctx context.Context, filter process.ListFilter) ([]*process.Process, error) {
	ps, err := s.scan(ctx, filter)
	if err != nil {
		return nil, err
	}
	return filter.Apply(ps), nil
}

// Count returns the number of processes matching the filter.
func (s *ProcessStore) Count(ctx context.Context, filter process.ListFilter) (int64, error) {
	ps, err := s.scan(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(ps)), nil
}

func (s *ProcessStore) scan(ctx context.Context, filter process.ListFilter) ([]*process.Process, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(s.table), ConsistentRead: aws.Bool(true)}
	if cond, ok := scanFilter(filter); ok {
		expr, err := expression.NewBuilder().WithFilter(cond).Build()
		if err != nil {
			return nil, err
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var ps []*process.Process
	pages := dynamodb.NewScanPaginator(s.api, input)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, s.wrapError(err)
		}
		for _, raw := range page.Items {
			var item processItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, err
			}
			p, err := fromItem(&item)
			if err != nil {
				return nil, err
			}
			// The time window is checked here; created_at is stored as text.
			if filter.Matches(p) {
				ps = append(ps, p)
			}
		}
	}
	return ps, nil
}

func scanFilter(filter process.ListFilter) (expression.ConditionBuilder, bool) {
	var conds []expression.ConditionBuilder
	if len(filter.Status) > 0 {
		status := expression.Name("status").Equal(expression.Value(string(filter.Status[0])))
		for _, st := range filter.Status[1:] {
			status = status.Or(expression.Name("status").Equal(expression.Value(string(st))))
		}
		conds = append(conds, status)
	}
	if filter.Goal != "" {
		conds = append(conds, expression.Name("goal").Equal(expression.Value(filter.Goal)))
	}

	switch len(conds) {
	case 0:
		return expression.ConditionBuilder{}, false
	case 1:
		return conds[0], true
	default:
		return conds[0].And(conds[1]), true
	}
}

func key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func toItem(p *process.Process) (*processItem, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	item := &processItem{
		ID:        p.ID,
		Goal:      p.Goal,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339Nano),
		Data:      string(data),
	}
	if !p.EndTime.IsZero() {
		item.EndTime = p.EndTime.UTC().Format(time.RFC3339Nano)
	}
	return item, nil
}

func fromItem(item *processItem) (*process.Process, error) {
	var p process.Process
	if err := json.Unmarshal([]byte(item.Data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProcessStore) wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(process.ErrOperationTimeout, err)
	}
	var throttled *types.ProvisionedThroughputExceededException
	if errors.As(err, &throttled) {
		return errors.Join(process.ErrOperationTimeout, err)
	}
	return errors.Join(process.ErrConnectionFailed, err)
}

var _ process.Store = (*ProcessStore)(nil)
