package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"docverify/internal/domain"
	"docverify/internal/ocr"
	"docverify/internal/ocr/mocks"
	"docverify/internal/platform/config"
)

var cardText = []string{
	"STATE OF KUWAIT",
	"Civil ID No 303091600084",
	"Name Sara Al Ali",
	"Date of Birth 16/09/2003",
	"Expiry Date 15/09/2030",
}

func newTestApp(t *testing.T, env map[string]string) (*app, *bytes.Buffer) {
	t.Helper()
	ctrl := gomock.NewController(t)
	engine := mocks.NewMockEngine(ctrl)
	engine.EXPECT().Name().Return("mock").AnyTimes()

	res := ocr.Result{}
	for _, l := range cardText {
		res.Lines = append(res.Lines, ocr.TextLine{Text: l, Confidence: 0.9})
	}
	engine.EXPECT().Recognize(gomock.Any(), gomock.Any()).Return(res, nil).AnyTimes()

	var out bytes.Buffer
	return &app{
		stdout: &out,
		stderr: &bytes.Buffer{},
		lookupEnv: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
		now: func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) },
		newEngine: func(context.Context, config.Config) (ocr.Engine, error) {
			return engine, nil
		},
	}, &out
}

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 40, 20))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func run(a *app, args ...string) error {
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestScanCommand(t *testing.T) {
	a, out := newTestApp(t, nil)
	path := writePNG(t, t.TempDir(), "card.png")

	require.NoError(t, run(a, "scan", path, "--expected-name", "Sara Al Ali", "--expected-dob", "2003-09-16"))

	var res domain.ScanResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, domain.VerdictValid, res.Verdict)
	assert.Equal(t, "303091600084", res.Fields.CivilID.Value)
	assert.Equal(t, "mock", res.OCR.Engine)
}

func TestScanCommandErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		a, _ := newTestApp(t, nil)
		assert.Error(t, run(a, "scan", filepath.Join(t.TempDir(), "nope.png")))
	})

	t.Run("bad expected dob", func(t *testing.T) {
		a, _ := newTestApp(t, nil)
		path := writePNG(t, t.TempDir(), "card.png")
		assert.Error(t, run(a, "scan", path, "--expected-dob", "someday"))
	})

	t.Run("invalid environment", func(t *testing.T) {
		a, _ := newTestApp(t, map[string]string{"MAX_ATTEMPTS": "0"})
		path := writePNG(t, t.TempDir(), "card.png")
		assert.Error(t, run(a, "scan", path))
	})

	t.Run("unknown engine flag", func(t *testing.T) {
		a, _ := newTestApp(t, nil)
		path := writePNG(t, t.TempDir(), "card.png")
		assert.Error(t, run(a, "scan", path, "--ocr-engine", "paddle"))
	})
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	first := writePNG(t, dir, "a.png")
	second := writePNG(t, dir, "b.png")
	missing := filepath.Join(dir, "missing.png")

	a, out := newTestApp(t, map[string]string{"BATCH_CONCURRENCY": "2"})
	err := run(a, "batch", first, missing, second)
	assert.ErrorContains(t, err, "1 of 3")

	var entries []batchEntry
	require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, first, entries[0].Path)
	assert.Equal(t, domain.VerdictValid, entries[0].Result.Verdict)
	assert.Equal(t, missing, entries[1].Path)
	assert.NotEmpty(t, entries[1].Error)
	assert.Nil(t, entries[1].Result)
	assert.Equal(t, second, entries[2].Path)
}
