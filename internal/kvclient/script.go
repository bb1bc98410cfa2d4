package kvclient

import "github.com/redis/go-redis/v9"

// Script is a server-side Lua script invoked by SHA with an EVAL fallback.
type Script struct {
	script *redis.Script
}

// NewScript wraps the Lua source src.
func NewScript(src string) *Script {
	return &Script{script: redis.NewScript(src)}
}

// Hash returns the SHA1 the server caches the script under.
func (s *Script) Hash() string {
	return s.script.Hash()
}
