package cov

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	bacdevice "github.com/bacnet-stack/bacnet-go/pkg/device"
	"github.com/bacnet-stack/bacnet-go/pkg/object"
)

// interleavedSource runs a hook right after a change has been taken, the
// way a write from a transport goroutine can land between two polls.
type interleavedSource struct {
	*bacdevice.Device
	after func()
}

func (s *interleavedSource) TakeChangeOfValue(id bacnet.ObjectID) ([]bacapp.PropertyValue, bool) {
	list, ok := s.Device.TakeChangeOfValue(id)
	if s.after != nil {
		s.after()
		s.after = nil
	}
	return list, ok
}

func TestPollKeepsChangeWrittenDuringPoll(t *testing.T) {
	piv := object.NewPositiveIntegerValue()
	d := bacdevice.New(bacdevice.Config{Instance: 1})
	require.NoError(t, d.AddHandler(piv))
	id, err := d.CreateObject(bacnet.ObjectPositiveIntegerValue, 1)
	require.NoError(t, err)

	src := &interleavedSource{Device: d}
	m := NewManager(src, d.ID(), DefaultConfig())
	m.now = func() time.Time { return t0 }
	rec := &recorder{}
	m.OnNotification(rec.record)

	require.NoError(t, m.Subscribe(Request{Subscriber: "a", ProcessID: 1, Object: id}))
	require.NoError(t, piv.Write(id.Instance, 10, 8))

	src.after = func() {
		require.NoError(t, piv.Write(id.Instance, 100, 8))
	}
	assert.Equal(t, 1, m.Poll(t0.Add(time.Second)))
	assert.True(t, piv.ChangeOfValue(id.Instance), "write after the take stays pending")

	assert.Equal(t, 1, m.Poll(t0.Add(2*time.Second)))
	assert.False(t, piv.ChangeOfValue(id.Instance))

	var reported []uint32
	for _, n := range rec.all() {
		reported = append(reported, n.Values[0].Value.Unsigned)
	}
	assert.Equal(t, []uint32{0, 10, 100}, reported)

	pv, ok := piv.PresentValue(id.Instance)
	require.True(t, ok)
	assert.Equal(t, reported[len(reported)-1], pv)
}
