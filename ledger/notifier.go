package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lorekeep/lorekeep/utils"
)

// Event types published to the notification sink. Rendering announcements to
// players happens in an external consumer.
const (
	EventRewardGranted = "reward_granted"
	EventStipendPaid   = "stipend_paid"
	EventSweepDone     = "sweep_completed"
)

// Event is a notification emitted after a ledger operation commits.
type Event struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	GuildID  uint64    `json:"guild_id"`
	PlayerID uint64    `json:"player_id,omitempty"`
	AmountCC int       `json:"amount_cc,omitempty"`
	Message  string    `json:"message,omitempty"`
	At       time.Time `json:"at"`
}

// Notifier delivers events to the announcement sink.
type Notifier interface {
	Publish(event Event)
}

// NewEvent fills in the id and timestamp for an event.
func NewEvent(eventType string, guildID uint64) Event {
	return Event{
		ID:      uuid.NewString(),
		Type:    eventType,
		GuildID: guildID,
		At:      time.Now(),
	}
}

// RedisNotifier publishes events as JSON on a redis Pub/Sub channel.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier creates a notifier publishing to the given channel.
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = "lorekeep:events"
	}
	return &RedisNotifier{client: client, channel: channel}
}

// Publish marshals and publishes the event. Delivery is best-effort.
func (n *RedisNotifier) Publish(event Event) {
	b, err := json.Marshal(event)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.client.Publish(ctx, n.channel, b).Err(); err != nil {
		utils.Sugar.Warnf("notify publish failed type=%s err=%v", event.Type, err)
	}
}

// NopNotifier discards all events. Used in tests and redis-less deployments.
type NopNotifier struct{}

func (NopNotifier) Publish(Event) {}
