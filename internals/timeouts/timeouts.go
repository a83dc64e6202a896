package timeouts

import "time"

const (
	Probe           = 300 * time.Millisecond
	SecondShort     = 2 * time.Second
	SecondDefault   = 10 * time.Second
	SecondLong      = 30 * time.Second
	StreamKeepAlive = 30 * time.Second
	DefaultMinutes  = 20 * time.Minute
)
