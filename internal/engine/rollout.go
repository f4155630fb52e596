package engine

// InRollout reports whether the user falls inside the flag's rollout
// percentage.
//
// The decision is a fixed-bucket threshold comparison, which makes it
// monotone: for a given (flagKey, userID) the bucket never changes, so
// raising the percentage can only move a user from excluded to included.
func InRollout(flagKey, userID string, percentage int) bool {
	// Short-circuits avoid hashing on the common all-or-nothing cases.
	if percentage >= 100 {
		return true
	}
	if percentage <= 0 {
		return false
	}

	return Bucket(rolloutKey(flagKey, userID)) < percentage
}
