package events

// Topic constants for domain events emitted by the billing platform.
const (
	TopicBillCreated     = "bill.created"
	TopicPurchaseCreated = "purchase.created"
	TopicReturnCreated   = "return.created"
	TopicReceiptCreated  = "receipt.created"
	TopicStockLow        = "stock.low"
)

// DefaultTopics returns the canonical list of topics webhook subscribers may follow.
func DefaultTopics() []string {
	return []string{
		TopicBillCreated,
		TopicPurchaseCreated,
		TopicReturnCreated,
		TopicReceiptCreated,
		TopicStockLow,
	}
}
