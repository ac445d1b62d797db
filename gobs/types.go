// Copyright (c) 2025 Kishore Bharat

// Package gobs defines the gob-encoded types persisted in the kv database.
// Fields must stay backward compatible; prefer adding over changing.
package gobs

// TelegramState remembers the chat id for each authorized user so that
// notifications can be sent without waiting for the user to message first.
type TelegramState struct {
	UserChatIDMap map[string]int64
}
