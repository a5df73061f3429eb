package configs

import "time"

// Redis configures the shared placement locks and the impression log. When
// Enabled is false the service falls back to in-process implementations,
// which are only correct for a single instance.
type Redis struct {
	Enabled  bool   `env:"ENABLED" envDefault:"false"`
	Addr     string `env:"ADDRESS" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`

	// LockTTL bounds how long a crashed holder can block a placement.
	LockTTL time.Duration `env:"LOCK_TTL" envDefault:"10s"`
	// LockWait is how long Lock retries before giving up.
	LockWait time.Duration `env:"LOCK_WAIT" envDefault:"5s"`
	// ViewTTL expires per-user view counters used for frequency capping.
	ViewTTL time.Duration `env:"VIEW_TTL" envDefault:"720h"`
}
