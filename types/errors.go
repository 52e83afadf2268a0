package types

import (
	"errors"

	"github.com/joomcode/errorx"
)

var (
	// Fatal marks errors that stop replication until an operator steps in
	Fatal = errorx.RegisterTrait("fatal")

	SyncErrors = errorx.NewNamespace("sync")

	ResumeTokenExpired = SyncErrors.NewType("resume_token_expired", Fatal)
	CheckpointMismatch = SyncErrors.NewType("checkpoint_mismatch", Fatal)
	CheckpointIO       = SyncErrors.NewType("checkpoint_io", Fatal)
	InvalidConfig      = SyncErrors.NewType("invalid_config", Fatal)

	Transient = SyncErrors.NewType("transient", errorx.Temporary())
)

// IsFatal reports whether err, or anything it wraps, carries the Fatal trait
func IsFatal(err error) bool {
	var xerr *errorx.Error
	return errors.As(err, &xerr) && xerr.HasTrait(Fatal)
}

func IsTransient(err error) bool {
	var xerr *errorx.Error
	return errors.As(err, &xerr) && xerr.HasTrait(errorx.Temporary())
}

func IsOfType(err error, typ *errorx.Type) bool {
	var xerr *errorx.Error
	return errors.As(err, &xerr) && xerr.IsOfType(typ)
}
