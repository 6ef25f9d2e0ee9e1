package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/conditional"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/fetch"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/logger"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/orchestrator"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/pending"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/policy"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/profile"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/provider"
	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/statuscache"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	AllowedHosts []string // Host headers allowed to reach the API
	AllowedCIDRS []string // IPs allowed to reach the API, healthz excluded
	TrustProxy   bool     // true if running behind a trusted reverse proxy
	CORSOrigins  []string // empty disables CORS headers

	ActionBurst     int           // per-IP burst for action endpoints
	ActionPerMinute int           // per-IP refill for action endpoints
	ActionTimeout   time.Duration // deadline for start/stop/restart calls
	PingTimeout     time.Duration // deadline for readiness probes

	Orchestrator *orchestrator.Orchestrator
	Fetcher      *fetch.Service
	Policies     *policy.Index
	Cache        *statuscache.Cache
	Profiles     *profile.Store
	Conditional  *conditional.Cache
	Pending      *pending.Tracker
	Controller   provider.Controller
	Pinger       provider.Pinger
	RedisClient  *redis.Client // nil when Redis is disabled

	ReloadTrigger chan struct{} // Channel to trigger a policy reload and refresh
}
