package dynamo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/lifeconnect/lifeconnect-api/internal/domain"
)

// AlertRepo provides typed DynamoDB operations for the alerts table.
type AlertRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAlertRepo(client *dynamodb.Client, tableName string) *AlertRepo {
	return &AlertRepo{client: client, tableName: tableName}
}

func (r *AlertRepo) Put(ctx context.Context, a *domain.Alert) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *AlertRepo) Get(ctx context.Context, alertID string) (*domain.Alert, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("alert_id", alertID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("alert not found: %w", domain.ErrNotFound)
	}
	var a domain.Alert
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AlertRepo) Update(ctx context.Context, alertID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("alert_id", alertID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

func (r *AlertRepo) UpdateStatus(ctx context.Context, alertID, status string) error {
	return r.Update(ctx, alertID, map[string]interface{}{fieldStatus: status})
}

// BulkUpdateStatus transitions every listed alert to status and returns the
// number of alerts updated. Individual failures are skipped, not fatal.
func (r *AlertRepo) BulkUpdateStatus(ctx context.Context, alertIDs []string, status string) (int, error) {
	count := 0
	for _, id := range alertIDs {
		if err := r.UpdateStatus(ctx, id, status); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (r *AlertRepo) Delete(ctx context.Context, alertID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("alert_id", alertID),
	})
	return err
}

// ListAll returns every alert, newest first.
func (r *AlertRepo) ListAll(ctx context.Context) ([]domain.Alert, error) {
	alerts, err := r.scan(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(alerts)
	return alerts, nil
}

// ListByStatus queries the status GSI, newest first.
func (r *AlertRepo) ListByStatus(ctx context.Context, status string) ([]domain.Alert, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("status-created_at-index"),
		KeyConditionExpression: aws.String("#s = :s"),
		ExpressionAttributeNames: map[string]string{
			"#s": fieldStatus,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: status},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	var alerts []domain.Alert
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// ListByCreator returns every alert created by userID, newest first.
func (r *AlertRepo) ListByCreator(ctx context.Context, userID string) ([]domain.Alert, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-created_at-index"),
		KeyConditionExpression: aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	var alerts []domain.Alert
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// ListByAudience returns active alerts visible to the audience: alerts that
// target it directly, target "all", or are flagged system-wide.
func (r *AlertRepo) ListByAudience(ctx context.Context, audience string) ([]domain.Alert, error) {
	filter := aws.String("#s = :active AND (target_audience = :aud OR target_audience = :all OR is_system_wide = :t)")
	alerts, err := r.scan(ctx, filter, map[string]types.AttributeValue{
		":active": &types.AttributeValueMemberS{Value: domain.AlertStatusActive},
		":aud":    &types.AttributeValueMemberS{Value: audience},
		":all":    &types.AttributeValueMemberS{Value: domain.AudienceAll},
		":t":      &types.AttributeValueMemberBOOL{Value: true},
	})
	if err != nil {
		return nil, err
	}
	sortByPriorityThenNewest(alerts)
	return alerts, nil
}

// FindExpired returns active alerts whose expiry is at or before now.
func (r *AlertRepo) FindExpired(ctx context.Context, now time.Time) ([]domain.Alert, error) {
	filter := aws.String("#s = :active AND expires_at <= :now")
	return r.scan(ctx, filter, map[string]types.AttributeValue{
		":active": &types.AttributeValueMemberS{Value: domain.AlertStatusActive},
		":now":    &types.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339Nano)},
	})
}

func (r *AlertRepo) scan(ctx context.Context, filter *string, values map[string]types.AttributeValue) ([]domain.Alert, error) {
	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		input := &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		}
		if filter != nil {
			input.FilterExpression = filter
			input.ExpressionAttributeNames = map[string]string{"#s": fieldStatus}
			input.ExpressionAttributeValues = values
		}
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	var alerts []domain.Alert
	if err := attributevalue.UnmarshalListOfMaps(items, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

func sortNewestFirst(alerts []domain.Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
}

func sortByPriorityThenNewest(alerts []domain.Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].Priority != alerts[j].Priority {
			return alerts[i].Priority > alerts[j].Priority
		}
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
}
