package hermes

const (
	// SubjectMatchRequest carries asynchronous matching requests.
	SubjectMatchRequest = "marketplace.matching.request"

	StreamName   = "MATCHMAKER_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

// StreamSubjects are captured by the JetStream stream.
var StreamSubjects = []string{"marketplace.order.>", "marketplace.matching.>"}

func SubjectOrderMatched(orderID string) string   { return "marketplace.order." + orderID + ".matched" }
func SubjectOrderUnmatched(orderID string) string { return "marketplace.order." + orderID + ".unmatched" }
func SubjectOrderBroadcast(orderID string) string { return "marketplace.order." + orderID + ".broadcast" }
