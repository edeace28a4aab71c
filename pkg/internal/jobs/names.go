package jobs

// Job names registered on the store server scheduler.
const (
	JobExpiryReport = "store:expiry-report"
)
