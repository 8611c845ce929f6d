package config

// Exchanges. Tenant events and project events ride separate topic exchanges;
// exhausted messages from every queue land on the shared dead-letter exchange.
const (
	EventsExchange     = "events.exchange"
	ProjectExchange    = "project.exchange"
	DeadLetterExchange = "dead-letter.exchange"

	DLQSuffix = ".dlq"
)

// Routing keys for all notification events.
const (
	InviteKey             = "email.invite"
	MemberAddedKey        = "email.member.added"
	MemberRemovedKey      = "email.member.removed"
	RoleUpdatedKey        = "email.member.role.updated"
	ProjectCreatedKey     = "project.created"
	ProjectMemberAddedKey = "project.member.added"
	NewLeadAssignedKey    = "project.new.lead.assigned"
)

// QueueBinding describes where a routing key's messages live: the exchange
// the queue is bound to, the durable queue itself, and its dead-letter queue.
type QueueBinding struct {
	Exchange string
	Queue    string
	DLQ      string
}

// RabbitTopology is the single shared enumeration of the broker layout.
// Every producer and consumer resolves routing keys through this table
// instead of scattering queue-name constants per service.
func RabbitTopology() map[string]QueueBinding {
	table := make(map[string]QueueBinding)
	add := func(exchange string, keys ...string) {
		for _, key := range keys {
			queue := key + ".queue"
			table[key] = QueueBinding{
				Exchange: exchange,
				Queue:    queue,
				DLQ:      queue + DLQSuffix,
			}
		}
	}
	add(EventsExchange, InviteKey, MemberAddedKey, MemberRemovedKey, RoleUpdatedKey)
	add(ProjectExchange, ProjectCreatedKey, ProjectMemberAddedKey, NewLeadAssignedKey)
	return table
}
