// Package queue defines message payloads exchanged over the message broker.
package queue

// Notification kinds published on the notify.outbound queue.
const (
    KindReferralGranted = "referral.granted"
    KindPremiumGranted  = "premium.granted"
    KindPremiumExtended = "premium.extended"
    KindPremiumRevoked  = "premium.revoked"
    KindTokenGranted    = "token.granted"
    KindExpiryReminder  = "expiry.reminder"
)

// Notification is published whenever an access grant changes or is
// about to lapse. It carries enough information for downstream
// consumers to render a push message without querying the primary
// database. EventID is a UUID so consumers can deduplicate redelivery.
type Notification struct {
    EventID    string `json:"event_id"`
    Kind       string `json:"kind"`
    UserID     int64  `json:"user_id"`
    Text       string `json:"text"`
    ExpiresAt  string `json:"expires_at,omitempty"`
    OccurredAt string `json:"occurred_at"`
}
