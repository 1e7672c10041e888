package dynamo

// Attribute names used in key and condition expressions.
const (
	fieldEmail        = "email"
	fieldPurpose      = "purpose"
	fieldUserID       = "user_id"
	fieldNonce        = "nonce"
	fieldVerified     = "verified"
	fieldExpiresAt    = "expires_at"
	fieldPasswordHash = "password_hash"
	fieldGoogleSub    = "google_sub"
	fieldUpdatedAt    = "updated_at"
)
