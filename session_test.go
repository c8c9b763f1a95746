package leafmap

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, types ...TypeDescriptor) (*Session, *prometheus.Registry) {
	m, _ := newTestMapper(t, types...)
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)
	s := NewSession(m)
	s.Metrics = metrics
	return s, reg
}

func TestSession_Remap(t *testing.T) {
	s, _ := newTestSession(t, pointType, eventType)
	buf := NewBuffer(0)
	p := buf.Alloc(8, 4)
	ev := buf.Alloc(24, 4)
	require.NoError(t, buf.Store(p+4, Int32, 5))

	require.NoError(t, s.Attach("origin", "Point", buf, p))
	require.NoError(t, s.Attach("ev", "Event", buf, ev))
	assert.Equal(t, []string{"origin", "ev"}, s.Names())
	assert.Nil(t, s.Table())

	tab, err := s.Remap(context.Background())
	require.NoError(t, err)
	assert.Same(t, tab, s.Table())
	assert.Equal(t, 10, tab.Len())
	assert.Equal(t, []string{"origin.x", "origin.y"}, tab.Names()[:2])
	assert.Equal(t, "ev.id", tab.Names()[2])

	v, found := tab.Get("origin.y")
	require.True(t, found)
	assert.Equal(t, 5.0, v)
}

func TestSession_Metrics(t *testing.T) {
	s, _ := newTestSession(t, eventType)
	buf := NewBuffer(24)
	require.NoError(t, s.Attach("ev", "Event", buf, 0))

	_, err := s.Remap(context.Background())
	require.NoError(t, err)
	_, err = s.Remap(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(s.Metrics.remaps))
	assert.Equal(t, 8.0, testutil.ToFloat64(s.Metrics.leaves))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.Metrics.skipped.WithLabelValues("dimensionality")))
}

func TestSession_Detach(t *testing.T) {
	s, _ := newTestSession(t, pointType)
	buf := NewBuffer(16)
	require.NoError(t, s.Attach("a", "Point", buf, 0))
	require.NoError(t, s.Attach("b", "Point", buf, 8))

	assert.True(t, s.Detach("a"))
	assert.False(t, s.Detach("a"))

	tab, err := s.Remap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b.x", "b.y"}, tab.Names())
}

func TestSession_AttachErrors(t *testing.T) {
	s, _ := newTestSession(t, pointType)
	buf := NewBuffer(8)
	require.NoError(t, s.Attach("a", "Point", buf, 0))

	assert.Error(t, s.Attach("a", "Point", buf, 0))
	assert.Error(t, s.Attach("", "Point", buf, 0))

	var unknown *UnknownTypeError
	assert.ErrorAs(t, s.Attach("c", "Nope", buf, 0), &unknown)
}

func TestSession_AttachGo(t *testing.T) {
	m, _ := newTestMapper(t)
	cat := m.Provider.(*Catalog)
	s := NewSession(m)

	d := &detector{ID: 3}
	require.NoError(t, s.AttachGo("det", cat, d))
	tab, err := s.Remap(context.Background())
	require.NoError(t, err)

	d.ID = 11
	v, found := tab.Get("det.ID")
	require.True(t, found)
	assert.Equal(t, 11.0, v)
}

func TestSession_StrictFails(t *testing.T) {
	s, _ := newTestSession(t, eventType)
	s.Mapper.Strict = true
	require.NoError(t, s.Attach("ev", "Event", NewBuffer(24), 0))

	_, err := s.Remap(context.Background())
	var dimErr *DimensionalityError
	assert.ErrorAs(t, err, &dimErr)
	assert.Nil(t, s.Table())
}

func TestSession_Cancelled(t *testing.T) {
	s, _ := newTestSession(t, pointType)
	require.NoError(t, s.Attach("a", "Point", NewBuffer(8), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Remap(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
