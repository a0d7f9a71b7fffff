package logsvc

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/udemo/academy/core"
	"github.com/udemo/academy/core/user"
)

func TestRollbarLogger_Prepare(t *testing.T) {
	var buf bytes.Buffer
	l := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST", TestMode: true})

	err := errors.New("boom")
	extras := map[string]interface{}{"path": "/courses"}
	args := l.prepare("msg", []interface{}{err, user.User{ID: 1}, extras, user.User{ID: 2}})

	assert.Equal(t, []interface{}{"msg", err, extras}, args)
}

func TestRollbarLogger_Print(t *testing.T) {
	var buf bytes.Buffer
	l := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST", TestMode: true})

	l.Info("search served", map[string]interface{}{"total": 3}, user.User{ID: 7, Email: "an@test.test"})
	assert.Equal(t, "search served\nmap[total:3]\n", buf.String())
}

func TestRollbarLogger_Debug(t *testing.T) {
	var buf bytes.Buffer
	quiet := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST", TestMode: true})
	quiet.Debug("cache miss")
	assert.Empty(t, buf.String())

	verbose := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST", TestMode: true, Debug: true})
	verbose.Debug("cache miss")
	assert.Equal(t, "cache miss\n", buf.String())
}
