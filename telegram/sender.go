// Copyright (c) 2025 Kishore Bharat

package telegram

import "context"

type senderKey struct{}

// WithSender returns a context carrying the telegram username that issued the
// current command. Command handlers recover it with Sender.
func WithSender(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, senderKey{}, user)
}

// Sender returns the username attached by WithSender or the empty string.
func Sender(ctx context.Context) string {
	if v, ok := ctx.Value(senderKey{}).(string); ok {
		return v
	}
	return ""
}
