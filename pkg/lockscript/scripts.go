package lockscript

import (
	_ "embed"

	"github.com/redis/go-redis/v9"
)

//go:embed scripts/acquire.lua
var acquireLuaSource string

//go:embed scripts/release.lua
var releaseLuaSource string

//go:embed scripts/extend.lua
var extendLuaSource string

var (
	acquireScript = redis.NewScript(acquireLuaSource)
	releaseScript = redis.NewScript(releaseLuaSource)
	extendScript  = redis.NewScript(extendLuaSource)
)
