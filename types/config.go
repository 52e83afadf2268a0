package types

import (
	"fmt"
	"strings"

	"github.com/datazip-inc/fimo/utils"
)

// Endpoint addresses one collection
type Endpoint struct {
	URI        string `json:"uri" validate:"required"`
	Database   string `json:"database" validate:"required"`
	Collection string `json:"collection" validate:"required"`
}

func (e Endpoint) Namespace() string {
	return fmt.Sprintf("%s.%s", e.Database, e.Collection)
}

// Override is an operator supplied resume position; takes precedence over the checkpoint file
type Override struct {
	Value string `json:"resume_value"`
	// Type is one of string|int|objectid|date in field mode; empty or "token" in change stream mode
	Type string `json:"resume_type,omitempty"`
	// LastID is the _id tie-break of a field position; zero includes every document with Value
	LastID string `json:"resume_id,omitempty"`
}

// SyncConfig is immutable for the duration of a run
type SyncConfig struct {
	Source         Endpoint  `json:"source" validate:"required"`
	Target         Endpoint  `json:"target" validate:"required"`
	Mode           SyncMode  `json:"mode" validate:"required,oneof=change_stream field"`
	SyncField      string    `json:"sync_field,omitempty" validate:"required_if=Mode field,excluded_if=Mode change_stream"`
	BatchLimit     int       `json:"limit" validate:"gt=0"`
	CheckpointFile string    `json:"resume_file,omitempty"`
	HealthFile     string    `json:"health_file,omitempty"`
	Override       *Override `json:"override,omitempty"`
}

func (c *SyncConfig) Validate() error {
	if err := utils.Validate(c); err != nil {
		return InvalidConfig.Wrap(err, "invalid sync configuration")
	}
	if c.Source.Namespace() == c.Target.Namespace() && strings.EqualFold(c.Source.URI, c.Target.URI) {
		return InvalidConfig.New("source and target are the same collection [%s]", c.Source.Namespace())
	}

	return nil
}

// Identity is hashed into the sync id; it changes only when the replicated pair changes
func (c *SyncConfig) Identity() any {
	return struct {
		Source string
		Target string
		Mode   SyncMode
		Field  string
	}{c.Source.Namespace(), c.Target.Namespace(), c.Mode, c.SyncField}
}
