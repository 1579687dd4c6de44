package model

import "time"

// Account is the lobby-owned login record. Every character belongs to
// exactly one account; at most one session may hold an account's UUID at
// a time (invariant 1, spec.md §3).
type Account struct {
	UUID         UUID
	Username     string
	PasswordHash string
	CP           int64 // cash-point balance, mutated via Store.ExplicitUpdate
	Banned       bool
	LastLoginAt  time.Time
	LastIP       string
}

// AccountWorldData holds the per-account, per-world scratch the channel
// needs but that does not belong on any single character (§6 "Persisted
// layout").
type AccountWorldData struct {
	UUID      UUID
	AccountID UUID
	WorldCID  int64
}
