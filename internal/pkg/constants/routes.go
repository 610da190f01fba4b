package constants

// Static route constants
const (
	APIRoute            = "/api"
	PlansRoute          = "/plans"
	SubscriptionRoute   = "/subscription"
	LimitsRoute         = "/limits"
	ReferralCodeRoute   = "/referral-code"
	ReferralLinkRoute   = "/referrals/link"
	ApiKeysRoute        = "/keys"
	PaymentWebhookRoute = "/webhooks/payment-succeeded"
)
