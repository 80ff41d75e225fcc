// Package tail follows a Kafka topic and prints each Confluent-framed record
// as debug text.
package tail

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Sokol111/ecommerce-debugtext/pkg/core/logger"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

const pollTimeout = time.Second

type messageReader interface {
	ReadMessage(timeout time.Duration) (*kafka.Message, error)
}

// FramedFormatter renders Confluent wire format payloads.
type FramedFormatter interface {
	FormatFramed(ctx context.Context, data []byte) (string, error)
}

// Tailer reads records from a consumer and writes their debug text to out.
type Tailer struct {
	reader      messageReader
	formatter   FramedFormatter
	out         io.Writer
	maxMessages int
	log         *zap.Logger
	throttler   *logger.LogThrottler
	sleep       func(ctx context.Context, d time.Duration)
}

func newTailer(reader messageReader, formatter FramedFormatter, out io.Writer, maxMessages int, log *zap.Logger) *Tailer {
	return &Tailer{
		reader:      reader,
		formatter:   formatter,
		out:         out,
		maxMessages: maxMessages,
		log:         log,
		throttler:   logger.NewLogThrottler(log, 0),
		sleep:       sleep,
	}
}

// Run prints records until ctx is done, MaxMessages records were handled or
// the consumer fails fatally. Records that cannot be rendered are reported
// on the log and skipped.
func (t *Tailer) Run(ctx context.Context) error {
	handled := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		if t.maxMessages > 0 && handled >= t.maxMessages {
			return nil
		}

		msg, err := t.reader.ReadMessage(pollTimeout)
		if err != nil {
			outcome := classifyReadError(err)
			if outcome.fatal {
				return fmt.Errorf("%s: %w", outcome.msg, err)
			}
			if outcome.key != "" {
				t.throttler.Warn(outcome.key, outcome.msg, zap.Error(err))
			}
			if outcome.delay > 0 {
				t.sleep(ctx, outcome.delay)
			}
			continue
		}

		handled++
		if err := t.print(ctx, msg); err != nil {
			return err
		}
	}
}

func (t *Tailer) print(ctx context.Context, msg *kafka.Message) error {
	text, err := t.formatter.FormatFramed(ctx, msg.Value)
	if err != nil {
		t.throttler.Warn("render", "failed to render record",
			zap.String("record", recordLabel(msg.TopicPartition)),
			zap.Error(err),
		)
		return nil
	}

	if _, err := fmt.Fprintf(t.out, "==> %s <==\n%s\n", recordLabel(msg.TopicPartition), text); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

func recordLabel(tp kafka.TopicPartition) string {
	topic := ""
	if tp.Topic != nil {
		topic = *tp.Topic
	}
	return fmt.Sprintf("%s[%d]@%d", topic, tp.Partition, tp.Offset)
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
