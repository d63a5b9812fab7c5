package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// MailSink hands a message to the outbound mail system.
type MailSink interface {
	Deliver(ctx context.Context, msg MailMessage) error
}

// StartMailConsumer consumes queue and passes every message to sink.  It
// reconnects with exponential backoff and only returns when ctx is done.
// Messages the sink rejects are dropped (nack without requeue) so one bad
// payload cannot stall the queue.
func StartMailConsumer(ctx context.Context, url, queue string, sink MailSink, log *zap.Logger) error {
	if queue == "" {
		queue = DefaultMailQueue
	}
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("mail consumer dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queue, sink, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("mail consumer loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, sink MailSink, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("mail consumer set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(ctx, d.Body, sink); err != nil {
				log.Error("mail consumer handle message failed", zap.String("message_id", d.MessageId), zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(ctx context.Context, body []byte, sink MailSink) error {
	var msg MailMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if msg.To == "" {
		return errors.New("message has no recipient")
	}
	return sink.Deliver(ctx, msg)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// SpoolSink writes each message as a JSON file into Dir, where the
// festival's MTA picks it up, and appends a one-line summary to
// Dir/mail.log.
type SpoolSink struct {
	Dir string
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

func (s SpoolSink) Deliver(_ context.Context, msg MailMessage) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir spool: %w", err)
	}
	raw, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	name := fmt.Sprintf("%s-%s.json", msg.CreatedAt.UTC().Format("20060102T150405"), unsafeName.ReplaceAllString(msg.ID, "_"))
	if err := os.WriteFile(filepath.Join(s.Dir, name), raw, 0o644); err != nil {
		return fmt.Errorf("write spool file: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(s.Dir, "mail.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open mail log: %w", err)
	}
	defer f.Close()
	line := fmt.Sprintf("[%s] %s | booking_id=%s | showtime_id=%s | to=%s | subject=%q | attachments=%d | file=%s\n",
		msg.CreatedAt.UTC().Format(time.RFC3339), msg.Kind, msg.BookingID, msg.ShowtimeID, msg.To, msg.Subject, len(msg.Attachments), name)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write mail log: %w", err)
	}
	return nil
}
