package instrument

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/sinshu/go-meltysynth/meltysynth"
	"golang.org/x/sync/errgroup"
)

// ErrUnavailable marks an instrument key that failed to load and has no
// default to fall back on. The state is terminal: later loads for the same
// key return the same error without refetching.
var ErrUnavailable = errors.New("instrument unavailable")

// Fetcher retrieves the raw bytes of an instrument resource by name.
type Fetcher interface {
	Fetch(name string) ([]byte, error)
}

// Instrument is a loaded, executable instrument representation.
type Instrument struct {
	Key  int
	Font *meltysynth.SoundFont
}

// IsPercussion reports whether the instrument is the channel-9 drum kit.
func (in *Instrument) IsPercussion() bool { return in.Key == PercussionKey }

type State int

const (
	Unloaded State = iota
	Loading
	Loaded
	Failed
)

// entry is both the dedup marker and the shared future for one key: state,
// completion channel and result live in a single structure.
type entry struct {
	state  State
	done   chan struct{}
	handle *Instrument
	err    error
}

// Cache is a deduplicated loader for instrument resources. At most one load
// is in flight per key; concurrent requesters share it. Entries live for the
// life of the cache, so instruments survive across plays.
type Cache struct {
	mu      sync.Mutex
	fetcher Fetcher
	install func(data []byte) (*meltysynth.SoundFont, error)
	entries map[int]*entry
}

func NewCache(fetcher Fetcher) *Cache {
	return &Cache{
		fetcher: fetcher,
		install: func(data []byte) (*meltysynth.SoundFont, error) {
			return meltysynth.NewSoundFont(bytes.NewReader(data))
		},
		entries: make(map[int]*entry),
	}
}

// Load returns the instrument for key, fetching and installing it on first
// use. A failed fetch substitutes the key-0 instrument when that is already
// loaded; otherwise the key is marked Failed and never retried.
func (c *Cache) Load(key int) (*Instrument, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		switch e.state {
		case Loaded:
			c.mu.Unlock()
			return e.handle, nil
		case Failed:
			c.mu.Unlock()
			return nil, e.err
		case Loading:
			done := e.done
			c.mu.Unlock()
			<-done
			return c.settled(key)
		}
	}
	// The check and the flip to Loading happen under one lock hold, so two
	// callers can never both observe Unloaded.
	e := &entry{state: Loading, done: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	handle, err := c.fetchAndInstall(key)

	c.mu.Lock()
	if err != nil {
		if def, ok := c.entries[0]; key != 0 && ok && def.state == Loaded {
			// Substitute the default instrument under this key, marked
			// Loaded so later callers reuse it without refetching.
			e.state = Loaded
			e.handle = &Instrument{Key: key, Font: def.handle.Font}
		} else {
			e.state = Failed
			e.err = fmt.Errorf("%w: key %d: %v", ErrUnavailable, key, err)
		}
	} else {
		e.state = Loaded
		e.handle = handle
	}
	close(e.done)
	handle, err = e.handle, e.err
	c.mu.Unlock()
	return handle, err
}

func (c *Cache) settled(key int) (*Instrument, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key]
	if e == nil || e.state != Loaded {
		if e != nil && e.err != nil {
			return nil, e.err
		}
		return nil, fmt.Errorf("%w: key %d", ErrUnavailable, key)
	}
	return e.handle, nil
}

func (c *Cache) fetchAndInstall(key int) (*Instrument, error) {
	data, err := c.fetcher.Fetch(Locator(key))
	if err != nil {
		return nil, err
	}
	font, err := c.install(data)
	if err != nil {
		return nil, fmt.Errorf("install instrument %d: %w", key, err)
	}
	return &Instrument{Key: key, Font: font}, nil
}

// Handle returns the loaded instrument for key, the key-0 instrument if key
// has none, or nil when neither is available. It never triggers a load.
func (c *Cache) Handle(key int) *Instrument {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.state == Loaded {
		return e.handle
	}
	if def, ok := c.entries[0]; ok && def.state == Loaded {
		return def.handle
	}
	return nil
}

// State reports the cache state for key.
func (c *Cache) State(key int) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.state
	}
	return Unloaded
}

// PreloadMany issues all loads concurrently and waits for every one to
// settle. A key's failure never aborts the batch; failures surface later as
// dropped notes.
func (c *Cache) PreloadMany(keys []int) {
	var g errgroup.Group
	for _, key := range keys {
		key := key
		g.Go(func() error {
			_, _ = c.Load(key)
			return nil
		})
	}
	_ = g.Wait()
}
