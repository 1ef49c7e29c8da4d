package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupLogging_Timestamps(t *testing.T) {
	t.Cleanup(func() { SetupLogging(false, false) })

	var buf bytes.Buffer
	SetupLogging(false, true)
	Logger.SetOutput(&buf)
	Info("module source discovered")
	assert.Regexp(t, `\d{4}/\d{2}/\d{2}`, buf.String())

	buf.Reset()
	SetupLogging(false, false)
	Logger.SetOutput(&buf)
	Info("module source discovered")
	assert.Contains(t, buf.String(), "module source discovered")
	assert.NotRegexp(t, `\d{4}/\d{2}/\d{2}`, buf.String())
}

func TestSetupLogging_VerboseLevel(t *testing.T) {
	t.Cleanup(func() { SetupLogging(false, false) })

	var buf bytes.Buffer
	SetupLogging(false, false)
	Logger.SetOutput(&buf)
	Debug("resolution detail")
	assert.Empty(t, buf.String())

	SetupLogging(true, false)
	Logger.SetOutput(&buf)
	Debug("resolution detail")
	assert.Contains(t, buf.String(), "resolution detail")
}
