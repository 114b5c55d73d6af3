package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmarquez/hermigo/internal/body"
)

const (
	DefaultOrder   = 4
	DefaultRanks   = 1
	DefaultOutDir  = "results/snapshots"
	DefaultMinStep = 1e-12
)

// Config is read once at startup and immutable afterwards. The first seven
// fields form the canonical one-line run record; the rest come from flags
// or a YAML profile.
type Config struct {
	Eps     float64 `yaml:"eps"`      // softening length
	TEnd    float64 `yaml:"t_end"`    // simulation end time
	DtDisk  float64 `yaml:"dt_disk"`  // disk-output interval
	DtContr float64 `yaml:"dt_contr"` // diagnostic interval
	Eta     float64 `yaml:"eta"`      // general accuracy coefficient
	EtaS    float64 `yaml:"eta_s"`    // close-encounter accuracy coefficient
	Input   string  `yaml:"input"`    // initial-condition file path

	Order    int     `yaml:"order"`    // Hermite order: 4, 6 or 8
	Ranks    int     `yaml:"ranks"`    // SPMD rank count
	GPU      bool    `yaml:"gpu"`      // offload force sums per rank
	OutDir   string  `yaml:"out_dir"`  // snapshot directory
	Compress bool    `yaml:"compress"` // zstd-compress snapshots
	MinStep  float64 `yaml:"min_step"` // stall threshold
}

func Default() *Config {
	return &Config{
		Order:   DefaultOrder,
		Ranks:   DefaultRanks,
		OutDir:  DefaultOutDir,
		MinStep: DefaultMinStep,
	}
}

// Load reads the one-line whitespace-separated run record:
//
//	eps t_end dt_disk dt_contr eta eta_s input_file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", body.ErrConfig, err)
	}
	cfg := Default()
	if err := cfg.parseRecord(string(data)); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", body.ErrConfig, path, err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) parseRecord(line string) error {
	fields := strings.Fields(line)
	if len(fields) != 7 {
		return fmt.Errorf("want 7 fields, got %d", len(fields))
	}
	dst := []*float64{&c.Eps, &c.TEnd, &c.DtDisk, &c.DtContr, &c.Eta, &c.EtaS}
	for i, d := range dst {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return fmt.Errorf("field %d %q: %v", i+1, fields[i], err)
		}
		*d = v
	}
	c.Input = fields[6]
	return nil
}

// Record renders the canonical one-line form.
func (c *Config) Record() string {
	return fmt.Sprintf("%g %g %g %g %g %g %s\n",
		c.Eps, c.TEnd, c.DtDisk, c.DtContr, c.Eta, c.EtaS, c.Input)
}

// LoadProfile reads the extended YAML form. Unset extended fields keep
// their defaults.
func LoadProfile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", body.ErrConfig, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", body.ErrConfig, path, err)
	}
	return cfg, cfg.Validate()
}

// SaveProfile writes the resolved configuration next to the run outputs so
// a finished run stays auditable.
func SaveProfile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch {
	case c.Eps < 0:
		return fmt.Errorf("%w: eps %g < 0", body.ErrConfig, c.Eps)
	case c.TEnd <= 0:
		return fmt.Errorf("%w: t_end %g <= 0", body.ErrConfig, c.TEnd)
	case c.DtDisk <= 0 || c.DtContr <= 0:
		return fmt.Errorf("%w: output intervals must be positive", body.ErrConfig)
	case c.Eta <= 0 || c.EtaS <= 0:
		return fmt.Errorf("%w: accuracy coefficients must be positive", body.ErrConfig)
	case c.EtaS > c.Eta:
		return fmt.Errorf("%w: eta_s %g exceeds eta %g", body.ErrConfig, c.EtaS, c.Eta)
	case c.Input == "":
		return fmt.Errorf("%w: no input file", body.ErrConfig)
	case c.Ranks < 1:
		return fmt.Errorf("%w: ranks %d < 1", body.ErrConfig, c.Ranks)
	case c.MinStep <= 0:
		return fmt.Errorf("%w: min_step %g <= 0", body.ErrConfig, c.MinStep)
	}
	switch c.Order {
	case 4, 6, 8:
	default:
		return fmt.Errorf("%w: order %d (want 4, 6 or 8)", body.ErrConfig, c.Order)
	}
	return nil
}
