package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const layout = `
version: 8
macros:
  - name: $onInit
    actions:
      - {type: text, text: hello}
  - name: $onKeymapChange any
    actions:
      - {type: text, text: switched}
  - name: $onLayerChange fn7
keymaps:
  - abbreviation: QWR
    default: true
    name: QWERTY
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func kbsim(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCompileValidateInspect(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "layout.yaml", layout)
	blob := filepath.Join(dir, "layout.bin.zst")

	code, _, stderr := kbsim(t, "compile", src, blob)
	require.Equal(t, 0, code, stderr)

	code, out, stderr := kbsim(t, "validate", blob)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "layout.bin.zst: ok")
	assert.Contains(t, out, "macros:  3")
	assert.Contains(t, out, "keymap QWR: ignored layer triggers")

	code, out, stderr = kbsim(t, "inspect", "-format", "toml", blob)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "abbreviation")
	assert.Contains(t, out, "QWR")
}

func TestValidateReportsParseError(t *testing.T) {
	dir := t.TempDir()
	blob := writeFile(t, dir, "bad.bin", "\x08\x00\x00\x05")

	code, out, stderr := kbsim(t, "validate", blob)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "kind:    buffer_underrun")
	assert.Contains(t, out, "section: macro")
	assert.Contains(t, stderr, "Error:")
}

func TestRunWithScript(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "layout.yaml", layout)
	lua := writeFile(t, dir, "session.lua", `
		kb.tick(5)
		local started = kb.trace("started")
		assert(#started == 2, "started " .. #started)
		assert(kb.keymap() == "QWR")
	`)

	code, _, stderr := kbsim(t, "run", src, lua)
	assert.Equal(t, 0, code, stderr)
}

func TestRunPrintsTrace(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "layout.yaml", layout)

	code, out, stderr := kbsim(t, "run", "-ticks", "5", src)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, `started "$onInit"`)
	assert.Contains(t, out, `queued "$onKeymapChange any"`)
}

func TestUsageErrors(t *testing.T) {
	code, _, _ := kbsim(t)
	assert.Equal(t, 2, code)

	code, _, stderr := kbsim(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)

	code, _, _ = kbsim(t, "compile", "only-one-arg.yaml")
	assert.Equal(t, 2, code)
}

func TestVersion(t *testing.T) {
	code, out, _ := kbsim(t, "-version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "kbsim dev")
}
