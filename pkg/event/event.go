package event

import "sync"

// Package event provides a way for listeners to subscribe to synchronous events.
// Every registration returns a Subscription, and the only way to unregister is to
// Close that subscription. Owners should 'defer sub.Close()' right after subscribing,
// so that a listener can never outlive the component that registered it.

// Listener receives events
type Listener interface {
	OnEvent(sender *Sender, event any)
}

// ListenerFunc adapts an ordinary function to a Listener
type ListenerFunc func(sender *Sender, event any)

func (f ListenerFunc) OnEvent(sender *Sender, event any) {
	f(sender, event)
}

type registration struct {
	id       uint64
	listener Listener
}

// Sender sends events
type Sender struct {
	listenersLock sync.Mutex
	listeners     []registration
	nextID        uint64
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	sender *Sender
	id     uint64
	once   sync.Once
}

// Subscribe adds a new listener.
// The same listener may be subscribed more than once, in which case it receives each event
// once per subscription.
func (s *Sender) Subscribe(listener Listener) *Subscription {
	s.listenersLock.Lock()
	defer s.listenersLock.Unlock()
	s.nextID++
	s.listeners = append(s.listeners, registration{id: s.nextID, listener: listener})
	return &Subscription{sender: s, id: s.nextID}
}

// SubscribeFunc is shorthand for Subscribe(ListenerFunc(fn))
func (s *Sender) SubscribeFunc(fn func(sender *Sender, event any)) *Subscription {
	return s.Subscribe(ListenerFunc(fn))
}

// Close unregisters the listener. It is safe to call Close more than once.
func (sub *Subscription) Close() {
	if sub == nil {
		return
	}
	sub.once.Do(func() {
		sub.sender.remove(sub.id)
	})
}

func (s *Sender) remove(id uint64) {
	s.listenersLock.Lock()
	defer s.listenersLock.Unlock()
	for i, r := range s.listeners {
		if r.id == id {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// NumListeners returns the number of live subscriptions
func (s *Sender) NumListeners() int {
	s.listenersLock.Lock()
	defer s.listenersLock.Unlock()
	return len(s.listeners)
}

// Send an event to all listeners
func (s *Sender) SendEvent(event any) {
	s.listenersLock.Lock()
	list := make([]Listener, len(s.listeners))
	for i, r := range s.listeners {
		list[i] = r.listener
	}
	s.listenersLock.Unlock()

	for _, l := range list {
		l.OnEvent(s, event)
	}
}
