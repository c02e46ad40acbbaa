package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubscribeAndClose(t *testing.T) {
	s := Sender{}
	var got []any
	sub := s.SubscribeFunc(func(sender *Sender, ev any) {
		got = append(got, ev)
	})
	require.Equal(t, 1, s.NumListeners())

	s.SendEvent("a")
	sub.Close()
	s.SendEvent("b")
	require.Equal(t, []any{"a"}, got)
	require.Equal(t, 0, s.NumListeners())

	// Closing twice is harmless
	sub.Close()
	require.Equal(t, 0, s.NumListeners())
}

func TestCloseOnlyRemovesOwnSubscription(t *testing.T) {
	s := Sender{}
	nA, nB := 0, 0
	subA := s.SubscribeFunc(func(*Sender, any) { nA++ })
	subB := s.SubscribeFunc(func(*Sender, any) { nB++ })
	defer subB.Close()

	s.SendEvent(1)
	subA.Close()
	s.SendEvent(2)
	require.Equal(t, 1, nA)
	require.Equal(t, 2, nB)
}

func TestListenerMayCloseDuringSend(t *testing.T) {
	s := Sender{}
	var sub *Subscription
	n := 0
	sub = s.SubscribeFunc(func(*Sender, any) {
		n++
		sub.Close()
	})
	s.SendEvent(1)
	s.SendEvent(2)
	require.Equal(t, 1, n)
}
