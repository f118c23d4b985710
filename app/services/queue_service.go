package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/address-extractor/app/models"
	"github.com/address-extractor/helpers/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// QueueService hands documents to cmd/worker through a Redis list
type QueueService struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewQueueService uses key as the list name
func NewQueueService(client *redis.Client, key string, logger *zap.Logger) *QueueService {
	return &QueueService{client: client, key: key, logger: logger}
}

// Enqueue appends a document and returns its job ID and the new queue length
func (qs *QueueService) Enqueue(ctx context.Context, text string, validOnly bool) (string, int64, error) {
	msg := models.QueueMessage{
		JobID:      utils.GenerateUUID(),
		Text:       text,
		ValidOnly:  validOnly,
		EnqueuedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", 0, fmt.Errorf("encode queue message: %w", err)
	}
	length, err := qs.client.RPush(ctx, qs.key, data).Result()
	if err != nil {
		return "", 0, fmt.Errorf("enqueue document: %w", err)
	}
	qs.logger.Debug("Document enqueued", zap.String("job_id", msg.JobID), zap.Int64("queue_length", length))
	return msg.JobID, length, nil
}

// Dequeue blocks up to timeout for the next document; nil means the wait timed out
func (qs *QueueService) Dequeue(ctx context.Context, timeout time.Duration) (*models.QueueMessage, error) {
	values, err := qs.client.BLPop(ctx, timeout, qs.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue document: %w", err)
	}
	// BLPOP replies with [key, value]
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected BLPOP reply of %d elements", len(values))
	}
	return DecodeQueueMessage([]byte(values[1]))
}

// Length returns the number of waiting documents
func (qs *QueueService) Length(ctx context.Context) (int64, error) {
	return qs.client.LLen(ctx, qs.key).Result()
}

// DecodeQueueMessage parses one list entry
func DecodeQueueMessage(data []byte) (*models.QueueMessage, error) {
	var msg models.QueueMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode queue message: %w", err)
	}
	if msg.JobID == "" {
		return nil, errors.New("queue message without job_id")
	}
	return &msg, nil
}
