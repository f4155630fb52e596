package engine

import "github.com/spaolacci/murmur3"

// anonymousIdentity substitutes for an empty user ID so that anonymous
// callers still bucket deterministically.
const anonymousIdentity = "anonymous"

// Bucket maps an identity string to a deterministic bucket in [0,100).
//
// Murmur3 (32-bit, seed 0) is used because it is fast, stable across
// processes and languages, and uniformly distributed in the low-order bits.
// Cryptographic strength is irrelevant here.
func Bucket(s string) int {
	return int(murmur3.Sum32([]byte(s)) % 100)
}

// identity normalizes a possibly-empty user ID.
func identity(userID string) string {
	if userID == "" {
		return anonymousIdentity
	}
	return userID
}

// rolloutKey composes the identity string hashed for rollout inclusion.
// Format: "flagKey:userID". The flag key acts as a salt so a user who is in
// the lucky N% for one flag is not automatically in it for another.
func rolloutKey(flagKey, userID string) string {
	return flagKey + ":" + identity(userID)
}

// assignmentKey composes the identity string hashed for variant assignment.
// The ":variant" suffix decorrelates variant choice from rollout inclusion.
func assignmentKey(flagKey, userID string) string {
	return flagKey + ":" + identity(userID) + ":variant"
}
