package logger

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger for the current gin mode: JSON production output in
// release mode, coloured development output otherwise.
func New() (*zap.Logger, error) {
	var config zap.Config

	if gin.Mode() == gin.ReleaseMode {
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return config.Build(zap.AddStacktrace(zap.DPanicLevel))
}

// Must is New that panics on error. Used by main only.
func Must() *zap.Logger {
	l, err := New()
	if err != nil {
		panic(err)
	}
	return l
}
