package scheduler

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRegister_BadExpression(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))
	assert.Error(t, s.Register("not a cron expression", func() {}))
	assert.NoError(t, s.Register("0 8 * * 1", func() {}))
}

func TestStartStop(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))
	s.Start()
	s.Stop()
}
