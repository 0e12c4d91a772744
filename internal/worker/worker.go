// Package worker consumes the notification queue: it delivers café order
// events to member topics and archives monthly statements to S3.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atrium-workspace/backend/internal/cafe"
	"github.com/atrium-workspace/backend/internal/invoices"
	"github.com/atrium-workspace/backend/internal/models"
	"github.com/atrium-workspace/backend/internal/organizations"
	"github.com/atrium-workspace/backend/internal/realtime"
	"github.com/atrium-workspace/backend/pkg/queue"
	"github.com/atrium-workspace/backend/pkg/storage"
)

// NotificationProcessor runs the background side of notifications.
type NotificationProcessor struct {
	orders    *cafe.OrderRepository
	orgRepo   *organizations.Repository
	agg       *invoices.Aggregator
	s3        *storage.S3
	publisher realtime.RedisPublisher
	queue     *queue.Queue
	logger    *zap.Logger
}

// NewNotificationProcessor creates a notification worker. s3 may be nil;
// statement archive jobs then fail and retry until storage is configured.
func NewNotificationProcessor(orders *cafe.OrderRepository, orgRepo *organizations.Repository, agg *invoices.Aggregator, s3 *storage.S3, publisher realtime.RedisPublisher, q *queue.Queue, logger *zap.Logger) *NotificationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationProcessor{
		orders:    orders,
		orgRepo:   orgRepo,
		agg:       agg,
		s3:        s3,
		publisher: publisher,
		queue:     q,
		logger:    logger,
	}
}

// Process executes one job.
func (p *NotificationProcessor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeOrderPush:
		return p.processOrderPush(ctx, job)
	case queue.JobTypeStatementArchive:
		return p.processStatementArchive(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// processOrderPush delivers an order event to the ordering member's topic via
// Redis so whichever instance holds their connection forwards it.
func (p *NotificationProcessor) processOrderPush(ctx context.Context, job *queue.Job) error {
	var payload queue.OrderPushPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	order, err := p.orders.GetByID(ctx, payload.OrderID)
	if err != nil {
		return fmt.Errorf("order not found: %s", payload.OrderID)
	}

	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	topic := realtime.TopicUser(order.UserID.String())
	if err := p.publisher.PublishTopicEvent(topic, payload.Event, body); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	p.logger.Debug("order push delivered",
		zap.String("order_id", order.ID.String()),
		zap.String("event", payload.Event))
	return nil
}

// processStatementArchive renders last month's statement for an organization,
// uploads it to S3 and notifies the org's administrators.
func (p *NotificationProcessor) processStatementArchive(ctx context.Context, job *queue.Job) error {
	if p.s3 == nil {
		return fmt.Errorf("statement storage not configured")
	}
	var payload queue.StatementArchivePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	org, err := p.orgRepo.GetByID(ctx, payload.OrgID)
	if err != nil {
		return fmt.Errorf("organization not found: %s", payload.OrgID)
	}

	st, err := p.agg.Build(ctx, org, payload.Year, time.Month(payload.Month))
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	pdfBytes, err := invoices.RenderPDF(st)
	if err != nil {
		return fmt.Errorf("render statement: %w", err)
	}

	key := storage.StatementKey(org.ID.String(), payload.Year, payload.Month)
	if _, err := p.s3.Upload(ctx, p.s3.StatementsBucket(), key,
		"application/pdf", bytes.NewReader(pdfBytes), int64(len(pdfBytes)), false); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}

	p.notifyOrgAdmins(ctx, org, payload.Year, payload.Month, key)
	p.logger.Info("statement archived",
		zap.String("org_id", org.ID.String()),
		zap.String("key", key))
	return nil
}

func (p *NotificationProcessor) notifyOrgAdmins(ctx context.Context, org *models.Organization, year, month int, key string) {
	members, err := p.orgRepo.ListMembers(ctx, org.ID)
	if err != nil {
		p.logger.Warn("list org members", zap.Error(err), zap.String("org_id", org.ID.String()))
		return
	}
	body, err := json.Marshal(map[string]interface{}{
		"org_id": org.ID,
		"year":   year,
		"month":  month,
		"key":    key,
	})
	if err != nil {
		return
	}
	for _, m := range members {
		if m.Role != models.RoleOrgAdmin {
			continue
		}
		topic := realtime.TopicUser(m.ID.String())
		if err := p.publisher.PublishTopicEvent(topic, "statement_ready", body); err != nil {
			p.logger.Warn("statement notification failed", zap.Error(err), zap.String("user_id", m.ID.String()))
		}
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *NotificationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
