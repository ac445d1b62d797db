// Copyright (c) 2025 Kishore Bharat

package server

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kbharat/chasebot/coindcx"
	"github.com/kbharat/chasebot/pushover"
	"github.com/kbharat/chasebot/telegram"
)

type Secrets struct {
	CoinDCX  *coindcx.Credentials `json:"coindcx"`
	Telegram *telegram.Secrets    `json:"telegram"`
	Pushover *pushover.Keys       `json:"pushover"`
}

func SecretsFromFile(fpath string) (*Secrets, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}
	s := new(Secrets)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

// SecretsFromEnv builds secrets out of environment variables, typically
// loaded from a .env file. Returns os.ErrNotExist when no exchange keys are
// present in the environment.
func SecretsFromEnv() (*Secrets, error) {
	key, secret := os.Getenv("COINDCX_API_KEY"), os.Getenv("COINDCX_API_SECRET")
	if len(key) == 0 && len(secret) == 0 {
		return nil, os.ErrNotExist
	}
	s := &Secrets{
		CoinDCX: &coindcx.Credentials{
			Key:    key,
			Secret: secret,
		},
	}
	if token := os.Getenv("TELEGRAM_TOKEN"); len(token) != 0 {
		s.Telegram = &telegram.Secrets{
			BotToken: token,
			OwnerID:  os.Getenv("TELEGRAM_OWNER"),
		}
	}
	return s, nil
}

func (v *Secrets) Check() error {
	if v.CoinDCX == nil {
		return fmt.Errorf("coindcx api credentials are required")
	}
	if err := v.CoinDCX.Check(); err != nil {
		return err
	}
	if v.Telegram != nil {
		if err := v.Telegram.Check(); err != nil {
			return err
		}
	}
	if v.Pushover != nil {
		if err := v.Pushover.Check(); err != nil {
			return err
		}
	}
	return nil
}
