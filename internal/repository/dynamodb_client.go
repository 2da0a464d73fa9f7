package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"agenda-agent/internal/domain"
)

const (
	skState     = "STATE#"
	ttlDuration = 30 * 24 * time.Hour // 30-day TTL
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// CheckpointStore defines the session persistence operations consumed by the
// converse service. State is keyed by session identifier and never read
// across keys.
type CheckpointStore interface {
	Load(ctx context.Context, sessionID string) (domain.Session, bool, error)
	Save(ctx context.Context, sess domain.Session) error
}

// Client checkpoints full session state (messages, dialog stack, working
// data) in a DynamoDB table between turns.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// sessPK returns the DynamoDB partition key for a session.
func sessPK(sessionID string) string {
	return "SESS#" + sessionID
}

// ttlValue returns a Unix timestamp 30 days in the future.
func ttlValue() int64 {
	return time.Now().Add(ttlDuration).Unix()
}

// Load reads the checkpointed session state. The second return is false when
// no checkpoint exists for the identifier.
func (c *Client) Load(ctx context.Context, sessionID string) (domain.Session, bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return domain.Session{}, false, errors.New("repository: Load: session id is required")
	}

	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessPK(sessionID)},
			"SK": &types.AttributeValueMemberS{Value: skState},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("repository: Load get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Session{}, false, nil
	}

	sess, err := itemToSession(out.Item)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("repository: Load unmarshal: %w", err)
	}
	return sess, true, nil
}

// Save checkpoints the session state, replacing any prior checkpoint for the
// same identifier.
func (c *Client) Save(ctx context.Context, sess domain.Session) error {
	if strings.TrimSpace(sess.SessionID) == "" {
		return errors.New("repository: Save: session id is required")
	}

	item, err := sessionItem(sess)
	if err != nil {
		return fmt.Errorf("repository: Save marshal: %w", err)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: Save: %w", err)
	}
	return nil
}

func sessionItem(sess domain.Session) (map[string]types.AttributeValue, error) {
	messages, err := json.Marshal(sess.Messages)
	if err != nil {
		return nil, fmt.Errorf("encode messages: %w", err)
	}
	stack, err := json.Marshal(sess.DialogStack)
	if err != nil {
		return nil, fmt.Errorf("encode dialog stack: %w", err)
	}
	working, err := json.Marshal(sess.WorkingData)
	if err != nil {
		return nil, fmt.Errorf("encode working data: %w", err)
	}

	return map[string]types.AttributeValue{
		"PK":           &types.AttributeValueMemberS{Value: sessPK(sess.SessionID)},
		"SK":           &types.AttributeValueMemberS{Value: skState},
		"sessionId":    &types.AttributeValueMemberS{Value: sess.SessionID},
		"messages":     &types.AttributeValueMemberS{Value: string(messages)},
		"dialogStack":  &types.AttributeValueMemberS{Value: string(stack)},
		"workingData":  &types.AttributeValueMemberS{Value: string(working)},
		"turns":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", sess.Turns)},
		"startedAt":    &types.AttributeValueMemberS{Value: sess.StartedAt.UTC().Format(time.RFC3339Nano)},
		"lastActivity": &types.AttributeValueMemberS{Value: sess.LastActivity.UTC().Format(time.RFC3339Nano)},
		"ttl":          &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", ttlValue())},
	}, nil
}

func itemToSession(item map[string]types.AttributeValue) (domain.Session, error) {
	sessionID, err := strAttr(item, "sessionId")
	if err != nil {
		return domain.Session{}, err
	}
	rawMessages, err := strAttr(item, "messages")
	if err != nil {
		return domain.Session{}, err
	}
	rawStack, err := strAttr(item, "dialogStack")
	if err != nil {
		return domain.Session{}, err
	}
	rawWorking, err := strAttr(item, "workingData")
	if err != nil {
		return domain.Session{}, err
	}

	sess := domain.Session{SessionID: sessionID}
	if err := json.Unmarshal([]byte(rawMessages), &sess.Messages); err != nil {
		return domain.Session{}, fmt.Errorf("decode messages: %w", err)
	}
	if err := json.Unmarshal([]byte(rawStack), &sess.DialogStack); err != nil {
		return domain.Session{}, fmt.Errorf("decode dialog stack: %w", err)
	}
	if err := json.Unmarshal([]byte(rawWorking), &sess.WorkingData); err != nil {
		return domain.Session{}, fmt.Errorf("decode working data: %w", err)
	}

	if sess.Turns, err = intAttr(item, "turns"); err != nil {
		return domain.Session{}, err
	}
	if sess.StartedAt, err = timeAttr(item, "startedAt"); err != nil {
		return domain.Session{}, err
	}
	if sess.LastActivity, err = timeAttr(item, "lastActivity"); err != nil {
		return domain.Session{}, err
	}
	return sess, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

func timeAttr(item map[string]types.AttributeValue, key string) (time.Time, error) {
	raw, err := strAttr(item, key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return t, nil
}
