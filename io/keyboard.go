package io

// Keyboard is the keyboard device behind the KBSR/KBDR registers.
// Keys pushed by the host are queued until the program consumes them.
type Keyboard struct {
	Host  Poller // Optional host key source, polled when the queue is empty.
	Queue []byte // Pending keys, oldest first.
}

// Rewind discards all pending keys.
func (kb *Keyboard) Rewind() {
	kb.Queue = nil
}

// Push queues keys for the program.
func (kb *Keyboard) Push(keys ...byte) {
	kb.Queue = append(kb.Queue, keys...)
}

// Ready reports if a key is available, polling the host when the
// queue is empty.
func (kb *Keyboard) Ready() bool {
	if len(kb.Queue) == 0 && kb.Host != nil {
		key, ok := kb.Host.Poll()
		if ok {
			kb.Queue = append(kb.Queue, key)
		}
	}

	return len(kb.Queue) > 0
}

// Read consumes the next key.
func (kb *Keyboard) Read() (key byte, ok bool) {
	if !kb.Ready() {
		return
	}

	key = kb.Queue[0]
	kb.Queue = kb.Queue[1:]
	ok = true
	return
}
