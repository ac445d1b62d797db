// Copyright (c) 2025 Kishore Bharat

package server

import (
	"fmt"

	"github.com/kbharat/chasebot/chaser"
)

type Options struct {
	// MaxSessionsPerOwner caps concurrent chase sessions per telegram user.
	// Zero picks the default; negative means unlimited.
	MaxSessionsPerOwner int

	// Session sets the defaults for every session started through this
	// server. Per-command flags can still override individual fields.
	Session chaser.Options
}

func (v *Options) setDefaults() {
	if v.MaxSessionsPerOwner == 0 {
		v.MaxSessionsPerOwner = 16
	}
}

func (v *Options) Check() error {
	if v.MaxSessionsPerOwner == 0 {
		return fmt.Errorf("max sessions per owner cannot be zero")
	}
	return nil
}

func (v *Options) maxSessionsPerOwner() int {
	if v.MaxSessionsPerOwner < 0 {
		return 0
	}
	return v.MaxSessionsPerOwner
}
