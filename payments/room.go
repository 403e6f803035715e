package payments

import "sync"

// NotificationRoom is the process-memory mapping from a payment reference
// to the set of live UI-client session identifiers subscribed to its
// updates (spec.md §3). It only tracks subscriptions: it does not implement
// LiveNotifier, and the Confirmer does not publish to it. Cross-process
// publishing goes through payments/notify.RedisLiveNotifier.
//
// Subscription/unsubscription is O(1); access is guarded by a mutex with
// short critical sections never interleaved with I/O (spec.md §9).
type NotificationRoom struct {
	mu   sync.Mutex
	subs map[string]map[string]struct{} // reference -> set of session IDs
}

// NewNotificationRoom constructs an empty room.
func NewNotificationRoom() *NotificationRoom {
	return &NotificationRoom{subs: make(map[string]map[string]struct{})}
}

// Subscribe adds sessionID to the set of listeners for reference.
func (r *NotificationRoom) Subscribe(reference, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.subs[reference]
	if !ok {
		set = make(map[string]struct{})
		r.subs[reference] = set
	}
	set[sessionID] = struct{}{}
}

// Unsubscribe removes sessionID from reference's listener set, cleaning up
// the room entry entirely once it is empty. Called on session disconnect.
func (r *NotificationRoom) Unsubscribe(reference, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.subs[reference]
	if !ok {
		return
	}
	delete(set, sessionID)
	if len(set) == 0 {
		delete(r.subs, reference)
	}
}

// Subscribers returns a snapshot of the session IDs currently subscribed to
// reference. Absence of subscribers is expected and benign.
func (r *NotificationRoom) Subscribers(reference string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.subs[reference]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
