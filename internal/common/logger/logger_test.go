package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestVerboseModeShowsDebugMessages(t *testing.T) {
	buf := new(bytes.Buffer)
	log := &Logger{
		level:  LevelInfo,
		output: buf,
	}

	log.Debug("debug message before verbose")
	if strings.Contains(buf.String(), "debug message before verbose") {
		t.Error("Debug message should not appear at Info level")
	}

	log.SetVerbose(true)

	log.Debug("debug message after verbose")
	if !strings.Contains(buf.String(), "debug message after verbose") {
		t.Error("Debug message should appear when verbose is enabled")
	}
}

func TestQuietModeSuppressesInfoMessages(t *testing.T) {
	buf := new(bytes.Buffer)
	log := &Logger{
		level:  LevelInfo,
		output: buf,
	}

	log.Info("info message before quiet")
	if !strings.Contains(buf.String(), "info message before quiet") {
		t.Error("Info message should appear at Info level")
	}

	buf.Reset()
	log.SetQuiet(true)

	log.Info("info message after quiet")
	if strings.Contains(buf.String(), "info message after quiet") {
		t.Error("Info message should not appear in quiet mode")
	}

	log.Error("error message in quiet mode")
	if !strings.Contains(buf.String(), "error message in quiet mode") {
		t.Error("Error message should still appear in quiet mode")
	}
}

func TestWarnAppearsAtDefaultLevel(t *testing.T) {
	buf := new(bytes.Buffer)
	log := &Logger{
		level:  LevelInfo,
		output: buf,
	}

	log.Warn("lookup failed for redis")
	if !strings.Contains(buf.String(), "lookup failed for redis") {
		t.Error("Warn message should appear at Info level")
	}
}

func TestFormatArguments(t *testing.T) {
	buf := new(bytes.Buffer)
	log := &Logger{
		level:  LevelInfo,
		output: buf,
	}

	log.Info("found %d image(s) in %s", 3, "docker-compose.yml")
	if !strings.Contains(buf.String(), "found 3 image(s) in docker-compose.yml") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
