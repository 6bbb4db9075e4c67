package deepgram

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-interview/core/speechtotext/deepgram"

var logger = otelslog.NewLogger(scopeName)
