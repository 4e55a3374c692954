package ws

// dedup suppresses messages replayed across a connection handover. Each
// physical connection carries a sign (+1 or -1, flipping per generation);
// message counts are accumulated signed, so a message seen once on each side
// of a handover cancels out and is delivered exactly once, while a genuine
// same-connection duplicate keeps the count's sign and is delivered again.
type dedup struct {
	counts map[string]int
}

func newDedup() *dedup {
	return &dedup{counts: make(map[string]int)}
}

// admit records one sighting of msg on the connection with the given sign and
// reports whether the message should be delivered.
func (d *dedup) admit(msg string, sign int) bool {
	count, seen := d.counts[msg]
	if !seen {
		d.counts[msg] = sign
		return true
	}
	count += sign
	if count == 0 {
		delete(d.counts, msg)
	} else {
		d.counts[msg] = count
	}
	return sign == signum(count)
}

// clear drops all recorded sightings. Called whenever a message arrives
// outside a handover window, so the map never outlives a reconnection.
func (d *dedup) clear() {
	if len(d.counts) > 0 {
		d.counts = make(map[string]int)
	}
}

func signum(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}
