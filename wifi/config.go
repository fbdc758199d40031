package wifi

import (
	"io"
	"log/slog"
	"time"

	"github.com/nikosgri/sensornode/at"
	"github.com/nikosgri/sensornode/rxbuf"
)

// Config carries everything a Session needs. Zero values select defaults
// everywhere except Dialer, which is required.
type Config struct {
	Dialer Dialer
	// Profile is the AT command set. A profile without a Ping command is
	// considered unset and replaced by at.DefaultProfile.
	Profile at.Profile
	// Clock drives transaction timeouts. Defaults to the system clock.
	Clock Clock
	// Logger receives session events. Defaults to a discarding logger.
	Logger *slog.Logger
	// BufferSize is the receive buffer capacity. It must exceed the
	// largest single response or terminal detection breaks.
	BufferSize int
	// CommandTimeout is the per-transaction budget applied when a
	// Transaction carries none.
	CommandTimeout time.Duration
	// PollInterval is the pause between buffer scans while waiting.
	PollInterval time.Duration
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Profile.Ping == "" {
		c.Profile = at.DefaultProfile()
	}
	if c.Clock == nil {
		c.Clock = systemClock{}
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.BufferSize == 0 {
		c.BufferSize = rxbuf.DefaultCapacity
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 5 * time.Second
	}
	if c.PollInterval == 0 {
		c.PollInterval = time.Millisecond
	}
}

// ConfigBuilder assembles a Config fluently. Build validates the result, so
// construction errors surface once instead of at first use.
type ConfigBuilder struct {
	cfg Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.cfg.Dialer = d
	return b
}

func (b *ConfigBuilder) WithProfile(p at.Profile) *ConfigBuilder {
	b.cfg.Profile = p
	return b
}

func (b *ConfigBuilder) WithClock(c Clock) *ConfigBuilder {
	b.cfg.Clock = c
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.cfg.Logger = l
	return b
}

func (b *ConfigBuilder) WithBufferSize(n int) *ConfigBuilder {
	b.cfg.BufferSize = n
	return b
}

func (b *ConfigBuilder) WithCommandTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.CommandTimeout = d
	return b
}

func (b *ConfigBuilder) WithPollInterval(d time.Duration) *ConfigBuilder {
	b.cfg.PollInterval = d
	return b
}

// Build validates the assembled configuration and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	cfg := b.cfg
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	cfg.setDefaults()
	return cfg, nil
}
