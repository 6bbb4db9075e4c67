package server

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-interview/internal/server"

var logger = otelslog.NewLogger(scopeName)
