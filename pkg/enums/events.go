package enums

// OutboxEventType names a domain event staged for publication.
type OutboxEventType string

const (
	OutboxEventPaymentSettled OutboxEventType = "payment.settled"
	OutboxEventPaymentFailed  OutboxEventType = "payment.failed"
)

func (t OutboxEventType) IsValid() bool {
	switch t {
	case OutboxEventPaymentSettled, OutboxEventPaymentFailed:
		return true
	}
	return false
}

// AggregateType names the entity an outbox event belongs to.
type AggregateType string

const (
	AggregateTypeOrder AggregateType = "order"
)
