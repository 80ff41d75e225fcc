package tail

import (
	"errors"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// readOutcome tells the tailer how to react to a ReadMessage error.
type readOutcome struct {
	// key groups repeated errors for throttled logging; empty means do not log.
	key   string
	msg   string
	delay time.Duration
	fatal bool
}

func classifyReadError(err error) readOutcome {
	var kafkaErr kafka.Error
	if !errors.As(err, &kafkaErr) {
		return readOutcome{key: "non_kafka_error", msg: "failed to read message", delay: time.Second}
	}

	if kafkaErr.IsTimeout() {
		return readOutcome{}
	}
	if kafkaErr.IsFatal() {
		return readOutcome{key: "fatal", msg: "fatal kafka error", fatal: true}
	}

	switch kafkaErr.Code() {
	case kafka.ErrUnknownTopicOrPart:
		return readOutcome{key: "topic_not_found", msg: "topic not available, waiting for topic creation", delay: 10 * time.Second}
	case kafka.ErrTransport, kafka.ErrAllBrokersDown, kafka.ErrNetworkException:
		return readOutcome{key: "broker_connection", msg: "broker connection issue, retrying", delay: 5 * time.Second}
	case kafka.ErrLeaderNotAvailable, kafka.ErrNotLeaderForPartition:
		return readOutcome{key: "leader_election", msg: "partition leader changing, retrying", delay: 2 * time.Second}
	default:
		return readOutcome{key: "kafka_" + kafkaErr.Code().String(), msg: "failed to read message", delay: time.Second}
	}
}
