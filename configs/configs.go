/*
Package configs contains structs and functions to manipulate the JSON run
configuration shared by every worker of a distributed solve.

There are two roles: the coordinator (rank 0), which loads the system,
deploys the remote workers and reports the result, and the plain workers,
which only need the worker list to join the mesh. Both read the same config
file shape; the coordinator additionally uses the Remotes section.
*/
package configs

import (
	"encoding/json"
	"fmt"
	"os"
)

// WorkerConfig identifies one rank of the run, identical on every machine.
type WorkerConfig struct {
	Address string // host:port the worker listens on
	PID     uint8
}

// RemoteConfig is what the coordinator needs to deploy a worker over SSH.
type RemoteConfig struct {
	Address  string
	Port     string // SSH port, defaults to 22 when empty
	Username string
	Password string
}

// Config is the struct for the run's config file.
type Config struct {
	IsCoordinator bool
	Workers       []WorkerConfig // full worker list, rank 0 first
	Remotes       []RemoteConfig // machines the coordinator deploys to
	MatrixFile    string
	MaxIterations int
	Tolerance     float64
	DebugLevel    int
	GoVecPrefix   string // enables vector clock logs when non-empty
}

// ReadConfig reads and validates a configuration from the named JSON file,
// filling defaulted tunables.
func ReadConfig(filename string) (Config, error) {
	c := Config{}
	cfFile, err := os.ReadFile(filename)
	if err != nil {
		return c, err
	}
	err = json.Unmarshal(cfFile, &c)
	if err != nil {
		return c, err
	}
	c.ApplyDefaults()
	return c, c.Validate()
}

// WriteConfig writes a configuration, typically the per-worker file the
// coordinator prepares before deployment.
func WriteConfig(filename string, c Config) error {
	cfArr, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, cfArr, 0644)
}

// ApplyDefaults fills the stock iteration cap and tolerance when the file
// leaves them unset.
func (c *Config) ApplyDefaults() {
	if c.MaxIterations == 0 {
		c.MaxIterations = 1000
	}
	if c.Tolerance == 0 {
		c.Tolerance = 1e-5
	}
}

// Validate rejects configurations that cannot describe a run: no workers,
// duplicate or non-contiguous ranks, or non-positive tunables.
func (c *Config) Validate() error {
	if len(c.Workers) == 0 {
		return fmt.Errorf("configs: no workers listed")
	}
	if len(c.Workers) > 255 {
		return fmt.Errorf("configs: %d workers exceeds the rank limit", len(c.Workers))
	}
	seen := make([]bool, len(c.Workers))
	for _, w := range c.Workers {
		if int(w.PID) >= len(c.Workers) {
			return fmt.Errorf("configs: worker rank %d out of range for %d workers", w.PID, len(c.Workers))
		}
		if seen[w.PID] {
			return fmt.Errorf("configs: duplicate worker rank %d", w.PID)
		}
		if w.Address == "" {
			return fmt.Errorf("configs: worker rank %d has no address", w.PID)
		}
		seen[w.PID] = true
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("configs: max iterations must be positive, got %d", c.MaxIterations)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("configs: tolerance must be positive, got %g", c.Tolerance)
	}
	return nil
}
