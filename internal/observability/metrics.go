package observability

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MInventoryCompensations  MetricKey = "inventory_compensations_total"
	MNotificationsSent       MetricKey = "notifications_sent_total"
	MPaymentVerifications    MetricKey = "payment_verifications_total"
)
