// Copyright (c) 2025 Kishore Bharat

package internal

import "time"

var (
	RestHostname   = "api.coindcx.com"
	PublicHostname = "public.coindcx.com"
)

type Options struct {
	// Hostnames for the signed REST service and the public market data
	// service endpoints.
	RestHostname   string
	PublicHostname string

	// Timeout to use for the HTTP requests.
	HttpClientTimeout time.Duration

	// MaxRequestsPerSecond bounds the outbound request rate across all
	// callers of one client.
	MaxRequestsPerSecond float64
}

func (v *Options) setDefaults() {
	if v.RestHostname == "" {
		v.RestHostname = RestHostname
	}
	if v.PublicHostname == "" {
		v.PublicHostname = PublicHostname
	}
	if v.HttpClientTimeout == 0 {
		v.HttpClientTimeout = 10 * time.Second
	}
	if v.MaxRequestsPerSecond == 0 {
		v.MaxRequestsPerSecond = 10
	}
}

func (v *Options) Check() error {
	v.setDefaults()
	return nil
}
