package domain

import "github.com/google/uuid"

// BuildTransferIdempotencyKey scopes a caller-supplied key to the initiating client.
func BuildTransferIdempotencyKey(clientID uuid.UUID, key string) string {
	return "transfer:" + clientID.String() + ":" + key
}
