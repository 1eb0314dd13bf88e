package nvcodec

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Loader owns one lazily initialized Facade per library kind. Each kind is
// initialized at most once; its success or failure is cached for the life of
// the Loader and is independent of the other kinds.
type Loader struct {
	cfg    loaderConfig
	cells  [kindCount]cell
	closed atomic.Bool
}

type cell struct {
	once   sync.Once
	state  atomic.Int32
	facade *Facade
	err    error
}

// NewLoader returns a Loader configured from the environment and opts.
// No library is opened until it is first requested.
func NewLoader(opts ...Option) (*Loader, error) {
	cfg, err := resolveLoaderConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &Loader{cfg: cfg}, nil
}

var defaultLoader = sync.OnceValues(func() (*Loader, error) {
	return NewLoader()
})

// Default returns the process-wide Loader, configured from the environment
// on first use.
func Default() (*Loader, error) {
	return defaultLoader()
}

// Load returns the facade for kind from the process-wide Loader.
func Load(kind Kind) (*Facade, error) {
	l, err := Default()
	if err != nil {
		return nil, err
	}
	return l.Get(kind)
}

// Get returns the facade for kind, opening, resolving and negotiating the
// library on the first call. Concurrent first calls wait for the one
// initialization in flight. A failure is returned unchanged by every later
// call without retrying.
func (l *Loader) Get(kind Kind) (*Facade, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("unknown library kind %d", int(kind))
	}
	if l.closed.Load() {
		return nil, ErrLoaderClosed
	}

	c := &l.cells[kind]
	c.once.Do(func() {
		c.state.Store(int32(StateInitializing))
		c.facade, c.err = l.initialize(kind)
		if c.err != nil {
			c.state.Store(int32(StateFailed))
			l.cfg.logf("%s unavailable: %v", kind, c.err)
			return
		}
		c.state.Store(int32(StateReady))
	})
	if c.err != nil {
		return nil, c.err
	}
	if c.facade.closed.Load() {
		return nil, ErrLoaderClosed
	}
	return c.facade, nil
}

// State reports how far initialization of kind has progressed.
func (l *Loader) State(kind Kind) State {
	if !kind.valid() {
		return StateUninitialized
	}
	return State(l.cells[kind].state.Load())
}

// Close releases every opened library. It waits for initializations in
// flight, and afterwards Get fails with ErrLoaderClosed. Callers must not
// use facades or typed views obtained from l once Close has been called.
func (l *Loader) Close() error {
	l.closed.Store(true)

	var errs []error
	for _, kind := range Kinds() {
		c := &l.cells[kind]
		// Claim cells never initialized so a racing Get cannot open a library
		// after teardown; this also waits for an initialization in flight.
		c.once.Do(func() {
			c.err = ErrLoaderClosed
			c.state.Store(int32(StateFailed))
		})
		if c.facade == nil {
			continue
		}
		if err := c.facade.close(); err != nil {
			l.cfg.logf("%v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Loader) initialize(kind Kind) (*Facade, error) {
	desc := l.cfg.descriptions[kind]
	a := l.cfg.abi

	handle, path, err := openLibrary(a, kind, l.cfg.platform, l.cfg.libraryPaths[kind], l.cfg.searchDirs)
	if err != nil {
		return nil, err
	}

	facade, err := l.build(desc, handle, path)
	if err != nil {
		if closeErr := a.close(handle); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close %s library %s: %w", kind, path, closeErr))
		}
		return nil, err
	}

	l.cfg.logf("loaded %s from %s: runtime API %s, negotiated %s, %d operations, %d unavailable",
		kind, path, facade.negotiated.Runtime, facade.negotiated.Version,
		len(facade.table.entries), len(facade.table.unavailable))
	return facade, nil
}

func (l *Loader) build(desc *libraryDescription, handle uintptr, path string) (*Facade, error) {
	kind := desc.kind
	a := l.cfg.abi

	table := newFunctionTable()
	if _, err := resolveAll(kind, dlsymLookup(a, handle), desc.bootstrap, Version{}, table); err != nil {
		return nil, err
	}

	boot := &bootstrap{kind: kind, abi: a, handle: handle, table: table}
	known := capVersions(desc.known, l.cfg.maxVersions[kind])
	var runtimeVersion Version
	negotiated, err := Negotiate(func() (Version, error) {
		v, err := desc.query(boot)
		runtimeVersion = v
		return v, err
	}, known)
	if err != nil {
		var unsupported *UnsupportedVersionError
		if errors.As(err, &unsupported) {
			unsupported.Kind = kind
		}
		return nil, err
	}

	lookup := dlsymLookup(a, handle)
	if desc.exports != nil {
		lookup, err = desc.exports(boot, negotiated)
		if err != nil {
			return nil, err
		}
	}
	if _, err := resolveAll(kind, lookup, desc.symbols, negotiated, table); err != nil {
		return nil, err
	}

	facade := &Facade{
		kind:   kind,
		path:   path,
		abi:    a,
		handle: handle,
		table:  table,
		desc:   desc,
	}
	facade.negotiated.Version = negotiated
	facade.negotiated.Runtime = runtimeVersion
	if desc.structVersions != nil {
		facade.negotiated.structVersions = desc.structVersions(negotiated)
	}
	if desc.bind != nil {
		facade.api = desc.bind(facade)
	}
	return facade, nil
}
