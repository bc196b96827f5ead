// Package service implements the access, quota, selection, reaction
// and referral rules on top of the repository layer. Denials are
// sentinel errors: they are expected outcomes rendered to the user,
// not failures, and are never logged as errors.
package service

import "errors"

// ErrNoAccess means neither the premium nor the token grant is in the
// future. The user is told how to regain access (ad, referral,
// premium).
var ErrNoAccess = errors.New("no active access grant")

// ErrQuotaExceeded means today's tier ceiling has been reached.
var ErrQuotaExceeded = errors.New("daily quota exceeded")

// ErrNoContent means the catalog holds no items at all.
var ErrNoContent = errors.New("no content available")

// ErrNoPrevious means the recent trail is too short to navigate back.
var ErrNoPrevious = errors.New("nothing to go back to")

// ErrSelfReferral rejects a user redeeming their own referral link.
var ErrSelfReferral = errors.New("self referral")

// ErrAlreadyRedeemed rejects a referral for a referee who has already
// used the service; bonuses are for genuine newcomers only.
var ErrAlreadyRedeemed = errors.New("referee already active")
