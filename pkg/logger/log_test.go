package logger

import (
	"context"
	"testing"

	"github.com/muhammadchandra19/matcher/pkg/util"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLevel_getZapLevel(t *testing.T) {
	testCases := []struct {
		level    Level
		expected zapcore.Level
	}{
		{DebugLevel, zapcore.DebugLevel},
		{InfoLevel, zapcore.InfoLevel},
		{WarnLevel, zapcore.WarnLevel},
		{ErrorLevel, zapcore.ErrorLevel},
		{Level("DEBUG"), zapcore.DebugLevel},
		{Level("verbose"), zapcore.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(string(tc.level), func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.level.getZapLevel())
		})
	}
}

func TestAppendContextFields(t *testing.T) {
	ctx := util.WithRequestID(context.Background(), "req-42")
	ctx = util.WithInstrument(ctx, "ETH-USD")

	fields := appendContextFields(ctx, []Field{NewField("action", "submit")})

	assert.Equal(t, []Field{
		{Key: "action", Value: "submit"},
		{Key: "request_id", Value: "req-42"},
		{Key: "instrument", Value: "ETH-USD"},
	}, fields)

	assert.Len(t, appendContextFields(context.Background(), nil), 0)
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger(WithLoggingLevel(DebugLevel), WithOutputPaths([]string{"stderr"}))
	assert.NoError(t, err)
	assert.True(t, log.GetZap().Core().Enabled(zapcore.DebugLevel))

	child := log.WithFields(NewField("instrument", "BTC-USD"))
	assert.NotNil(t, child.GetZap())

	nop := NewNop()
	nop.Info("discarded")
}
