package bench

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config controls a benchmark run. Defaults come from SLABBENCH_* environment
// variables, see LoadConfig.
type Config struct {
	Sizes      []int  `default:"8,12,16,20,24,28,32,40,48,56,64,80,96,112,128,192,256,384,512,768,1024"`
	Ops        int    `default:"4000000"`
	MaxLive    int    `split_words:"true" default:"100000"`
	Reserved   int    `default:"3"`
	Source     string `default:"heap"`
	LimitBytes int    `split_words:"true" default:"0"`
	Seed       uint64 `default:"0"`
	Stats      bool   `default:"false"`
}

// LoadConfig reads the configuration from the environment, variables are
// prefixed with SLABBENCH_, for example SLABBENCH_MAX_LIVE
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("slabbench", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "bench: load config")
	}
	return cfg, nil
}

// Validate checks the values that would make a run meaningless
func (c Config) Validate() error {
	if len(c.Sizes) == 0 {
		return errors.New("bench: no unit sizes given")
	}
	if c.Ops <= 0 {
		return errors.Errorf("bench: ops must be positive, got %d", c.Ops)
	}
	if c.MaxLive <= 0 {
		return errors.Errorf("bench: max live must be positive, got %d", c.MaxLive)
	}
	switch c.Source {
	case "heap", "mmap":
	default:
		return errors.Errorf("bench: unknown memory source %q", c.Source)
	}
	return nil
}
