package arch

import "fmt"

type ConfigError struct {
	Reason string
	Block  int
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s (block %d)", e.Reason, e.Block)
}
