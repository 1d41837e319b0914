package report

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/jzx17/gojobs/pkg/types"
)

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	r := NewLogReporter(logger)

	r.Report("copied a.xpm", false)
	r.Report("cannot read b.xpm", true)

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, `msg="copied a.xpm"`)
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, `msg="cannot read b.xpm"`)

	assert.NotNil(t, NewLogReporter(nil))
}

func TestTerminalReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewTerminalReporter(&buf, 10)

	r.Report("short", false)
	assert.Equal(t, "\rshort     ", buf.String())

	buf.Reset()
	r.Report("a much longer progress line", false)
	assert.Equal(t, "\ra much lon", buf.String())

	buf.Reset()
	r.Report("größenänderung.png", false)
	assert.Equal(t, "\rgrößenände", buf.String())
	assert.True(t, utf8.ValidString(buf.String()))

	buf.Reset()
	r.Report("bad thing", true)
	assert.Equal(t, "\r"+strings.Repeat(" ", 10)+"\rERROR: bad thing\n", buf.String())
}

func TestMulti(t *testing.T) {
	var got []string
	collect := types.ReporterFunc(func(message string, isError bool) {
		if isError {
			message = "!" + message
		}
		got = append(got, message)
	})

	m := Multi(collect, nil, collect)
	m.Report("x", false)
	m.Report("y", true)
	assert.Equal(t, []string{"x", "x", "!y", "!y"}, got)
}

func TestErrorsOnly(t *testing.T) {
	var got []string
	collect := types.ReporterFunc(func(message string, isError bool) {
		assert.True(t, isError)
		got = append(got, message)
	})

	r := ErrorsOnly(collect)
	r.Report("copied a.png", false)
	r.Report("cannot read b.png", true)
	assert.Equal(t, []string{"cannot read b.png"}, got)

	ErrorsOnly(nil).Report("ignored", true)
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))
	OrDiscard(nil).Report("ignored", true)

	r := NewLogReporter(nil)
	assert.Same(t, r, OrDiscard(r))
}
