package cloudspeech

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-interview/core/speechtotext/cloudspeech"

var logger = otelslog.NewLogger(scopeName)
