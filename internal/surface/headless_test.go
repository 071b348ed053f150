package surface

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvisionSignalsReady(t *testing.T) {
	h := NewHeadless(Size{Width: 800, Height: 600}, nil)
	assert.Nil(t, h.Document())

	got := make(chan string, 1)
	h.ProvisionEmpty("frame_1", func(token string) { got <- token })

	select {
	case token := <-got:
		assert.Equal(t, "frame_1", token)
	case <-time.After(time.Second):
		t.Fatal("ready not signalled")
	}
	assert.NotNil(t, h.Document())
}

func TestProvisionReplacesDocument(t *testing.T) {
	h := NewHeadless(Size{}, nil)
	h.ProvisionEmpty("a", func(string) {})
	first := h.Document()
	first.AddEventListener("click", false, func(*Event) {})

	h.ProvisionEmpty("b", func(string) {})
	second := h.Document()
	assert.NotSame(t, first, second)
	assert.Equal(t, 0, second.(*EventTarget).Len())
}

func TestDispatchOrder(t *testing.T) {
	target := NewEventTarget()
	var order []string
	target.AddEventListener("click", false, func(*Event) { order = append(order, "bubble") })
	target.AddEventListener("click", true, func(*Event) { order = append(order, "capture") })
	target.AddEventListener("keyup", false, func(*Event) { order = append(order, "keyup") })

	ran := target.Dispatch(&Event{Type: "click"})
	assert.Equal(t, 2, ran)
	assert.Equal(t, []string{"capture", "bubble"}, order)
}

func TestStopPropagation(t *testing.T) {
	target := NewEventTarget()
	var second bool
	target.AddEventListener("click", false, func(ev *Event) {
		ev.PreventDefault()
		ev.StopPropagation()
	})
	target.AddEventListener("click", false, func(*Event) { second = true })

	ev := &Event{Type: "click"}
	assert.Equal(t, 1, target.Dispatch(ev))
	assert.False(t, second)
	assert.True(t, ev.DefaultPrevented())
	assert.True(t, ev.PropagationStopped())
}

func TestRemoveEventListener(t *testing.T) {
	target := NewEventTarget()
	id := target.AddEventListener("click", false, func(*Event) {})
	target.RemoveEventListener(id)
	target.RemoveEventListener(id)
	assert.Equal(t, 0, target.Len())
	assert.Equal(t, 0, target.Dispatch(&Event{Type: "click"}))
}

func TestHeadlessDispatch(t *testing.T) {
	h := NewHeadless(Size{}, nil)
	require.ErrorIs(t, h.Dispatch(&Event{Type: "click"}), ErrNoDocument)

	h.ProvisionEmpty("t", func(string) {})
	var hit bool
	h.Document().AddEventListener("click", false, func(*Event) { hit = true })
	require.NoError(t, h.Dispatch(&Event{Type: "click"}))
	assert.True(t, hit)

	h.Resize(Size{Width: 10, Height: 5})
	assert.Equal(t, Size{Width: 10, Height: 5}, h.Size())
}

func TestInteraction(t *testing.T) {
	ev := &Event{Type: "keyup", Key: "a", KeyCode: 65, TargetID: 12, ShiftKey: true}
	in := ev.Interaction()
	assert.Equal(t, "keyup", in.Type)
	assert.Equal(t, "12", in.Target)
	assert.Equal(t, 65, in.KeyCode)
	assert.True(t, in.ShiftKey)

	assert.Empty(t, (&Event{Type: "scroll"}).Interaction().Target)
}
