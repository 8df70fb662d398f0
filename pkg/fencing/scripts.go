package fencing

import (
	_ "embed"

	"github.com/redis/go-redis/v9"
)

//go:embed scripts/validate.lua
var validateLuaSource string

// validateScript is package-scoped like xsemaphore's scripts singleton:
// redis.Script caches its SHA after the first EVALSHA, so sharing one
// instance across Counter values avoids redundant SCRIPT LOAD calls.
var validateScript = redis.NewScript(validateLuaSource)
