package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestSetDebugAfterInit(t *testing.T) {
	sugar := GetSugar(t.TempDir(), false)
	if sugar == nil {
		t.Fatal("no logger")
	}
	if logger.Core().Enabled(zap.DebugLevel) {
		t.Fatal("debug enabled before SetDebug")
	}

	// settings.json is only readable after the logger exists, so a debug
	// flag found there has to raise the level on the live logger
	SetDebug()
	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Fatal("SetDebug did not raise the level")
	}
}
