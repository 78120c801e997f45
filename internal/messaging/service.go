// Package messaging provides outbound message delivery to the chat platform.
//
// Delivery is best effort: send failures are logged by callers and never
// propagated back into the conversation flow.
package messaging

import "context"

// Service defines the pluggable message delivery abstraction.
type Service interface {
	// SendText sends a plain text message to a user.
	SendText(ctx context.Context, userID, text string) error

	// SendImage sends an image by URL to a user.
	SendImage(ctx context.Context, userID, imageURL string) error

	// SendTyping toggles the typing indicator for a user.
	SendTyping(ctx context.Context, userID string, on bool) error
}
