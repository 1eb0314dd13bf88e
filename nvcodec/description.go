package nvcodec

// libraryDescription is the bound interface of one vendor library: the
// versions whose layouts this package knows, the entry points it resolves and
// the hooks that drive the library's own version and instance protocol.
// Signatures are trusted as written here and never checked at runtime.
type libraryDescription struct {
	kind  Kind
	known []Version

	// bootstrap symbols are resolved by name before negotiation.
	bootstrap []symbol
	// symbols are resolved after negotiation at the negotiated version.
	symbols []symbol

	// query reports the newest version the loaded runtime supports.
	query func(b *bootstrap) (Version, error)
	// exports returns where symbols are looked up once v is negotiated.
	// Nil means the library's own export table.
	exports func(b *bootstrap, v Version) (lookupFunc, error)
	// structVersions returns the struct-version tags for v.
	structVersions func(v Version) map[string]uint32
	// bind builds the typed view of a ready facade.
	bind func(f *Facade) any
	// codeName names a native status code, or returns "".
	codeName func(code int64) string
	// statusCode converts a raw return register into a status code.
	statusCode func(r uintptr) int64
}

// bootstrap is the partially loaded library handed to description hooks
// before the facade exists.
type bootstrap struct {
	kind   Kind
	abi    abi
	handle uintptr
	table  *functionTable
}

// bind points fptr at the bootstrap entry point name.
func (b *bootstrap) bind(name string, fptr any) error {
	addr, ok := b.table.lookup(name)
	if !ok {
		return &SymbolNotFoundError{Kind: b.kind, Name: name}
	}
	b.abi.bind(fptr, addr)
	return nil
}

// exported reports whether the library exports name.
func (b *bootstrap) exported(name string) bool {
	addr, err := b.abi.symbol(b.handle, name)
	return err == nil && addr != 0
}

// binding pairs a table entry with the typed function variable it fills.
type binding struct {
	name string
	fptr any
}

// bindAll casts every resolved entry of bindings onto its typed variable.
// Unresolved entries leave their variable nil.
func (f *Facade) bindAll(bindings []binding) {
	for _, b := range bindings {
		addr, ok := f.table.lookup(b.name)
		if !ok {
			continue
		}
		f.abi.bind(b.fptr, addr)
	}
}

// int32Status interprets the low 32 bits of a return register as a signed
// C int status, which is how CUresult and NVENCSTATUS are returned.
func int32Status(r uintptr) int64 {
	return int64(int32(uint32(r)))
}
