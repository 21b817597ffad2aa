package server

import (
	"context"
	"errors"
	"testing"

	"StockBrain/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []string
}

type fakeWorker struct {
	name     string
	rec      *recorder
	startErr error
}

func (w *fakeWorker) Start() error {
	w.rec.events = append(w.rec.events, "start "+w.name)
	return w.startErr
}

func (w *fakeWorker) Stop(context.Context) error {
	w.rec.events = append(w.rec.events, "stop "+w.name)
	return nil
}

type fakeCloser struct {
	name string
	rec  *recorder
	err  error
}

func (c *fakeCloser) Close() error {
	c.rec.events = append(c.rec.events, "close "+c.name)
	return c.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	return cfg
}

func TestAppStartAndShutdownOrder(t *testing.T) {
	rec := &recorder{}
	app := New(testConfig(t), nil, nil,
		WithCloser("redis", &fakeCloser{name: "redis", rec: rec}),
		WithCloser("clickhouse", &fakeCloser{name: "clickhouse", rec: rec}),
		WithWorker("jobs", &fakeWorker{name: "jobs", rec: rec}),
		WithWorker("other", &fakeWorker{name: "other", rec: rec}),
	)

	require.NoError(t, app.Start())
	require.NoError(t, app.Shutdown(context.Background()))

	assert.Equal(t, []string{
		"start jobs",
		"start other",
		"stop other",
		"stop jobs",
		"close clickhouse",
		"close redis",
	}, rec.events)
}

func TestAppStartFailureSurfacesWorkerName(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	app := New(testConfig(t), nil, nil, WithWorker("jobs", &fakeWorker{name: "jobs", rec: rec, startErr: boom}))

	err := app.Start()
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "start jobs")
}

func TestAppShutdownJoinsCloseErrors(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	app := New(testConfig(t), nil, nil, WithCloser("postgres", &fakeCloser{name: "postgres", rec: rec, err: boom}))

	err := app.Shutdown(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "close postgres")
}

func TestNilOptionsAreIgnored(t *testing.T) {
	app := New(testConfig(t), nil, nil, WithWorker("none", nil), WithCloser("none", nil), WithConsumer(nil, nil))
	assert.Empty(t, app.workers)
	assert.Empty(t, app.closers)
	assert.Nil(t, app.consumer)
}
