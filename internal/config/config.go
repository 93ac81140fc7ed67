// Package config reads HCL configuration with includes.
package config

import (
	"path/filepath"
	"sync"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/temoto/meterlink/hardware/battery"
	"github.com/temoto/meterlink/hardware/radio"
	"github.com/temoto/meterlink/helpers"
	"github.com/temoto/meterlink/internal/gateway"
	"github.com/temoto/meterlink/internal/meter"
	"github.com/temoto/meterlink/internal/publish"
	"github.com/temoto/meterlink/log2"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []Source `hcl:"include"`

	LogDebug bool           `hcl:"log_debug"`
	Meter    meter.Config   `hcl:"meter"`
	Radio    radio.Config   `hcl:"radio"`
	Battery  battery.Config `hcl:"battery"`
	Gateway  gateway.Config `hcl:"gateway"`
	Publish  publish.Config `hcl:"publish"`

	_copy_guard sync.Mutex //nolint:unused
}

type Source struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

func New() *Config {
	return &Config{
		includeSeen: make(map[string]struct{}),
		Radio:       radio.DefaultConfig(),
	}
}

// Validate checks sections shared by all commands.
// Radio and battery are validated by their Open, only when a command uses them.
func (c *Config) Validate() error {
	errs := make([]error, 0, 4)
	if err := c.Meter.Validate(); err != nil {
		errs = append(errs, errors.Annotate(err, "meter"))
	}
	if err := c.Gateway.Validate(); err != nil {
		errs = append(errs, errors.Annotate(err, "gateway"))
	}
	if err := c.Publish.Validate(); err != nil {
		errs = append(errs, errors.Annotate(err, "publish"))
	}
	return helpers.FoldErrors(errs)
}

func (c *Config) read(log *log2.Log, fs FullReader, source Source, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	if err = hcl.Unmarshal(bs, c); err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s", source.Name)
		*errs = append(*errs, err)
		return
	}

	var includes []Source
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

// ReadConfig reads names in order, later values overwrite earlier.
// Relative includes are resolved against directory of the first name.
func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		return nil, errors.Errorf("code error ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		if err := osfs.SetBase(dir); err != nil {
			return nil, errors.Trace(err)
		}
		names = append([]string{name}, names[1:]...)
	}
	c := New()
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, Source{Name: name}, &errs)
	}
	if len(errs) == 0 {
		if err := c.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
