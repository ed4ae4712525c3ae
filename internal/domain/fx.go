package domain

import (
	"go.uber.org/fx"

	"github.com/nooksocial/nook-engine/internal/domain/farcaster"
)

// Module aggregates all domain modules
var Module = fx.Module(
	"domain",
	farcaster.Module,
)
