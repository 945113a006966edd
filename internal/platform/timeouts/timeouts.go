// Package timeouts defines shared timeout constants used by relay processes.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing the relay from a client.
const GRPCDial = 3 * time.Second

// GRPCRequest caps the time allowed for a single CLI request.
const GRPCRequest = 5 * time.Second

// Shutdown caps how long a server waits for in-flight calls to drain.
const Shutdown = 5 * time.Second
