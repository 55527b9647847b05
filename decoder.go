package hpack

import "io"

// HeaderListener receives each header field as it is decoded. sensitive
// reports whether the field arrived as Literal Header Field Never
// Indexed and so must not be re-indexed or logged verbatim by the host.
type HeaderListener func(f HeaderField, sensitive bool)

type indexKind uint8

const (
	indexNone indexKind = iota
	indexIncremental
	indexNever
)

type decodePhase uint8

const (
	phaseDirective decodePhase = iota
	phaseNameLen
	phaseNameBytes
	phaseValueLen
	phaseValueBytes
	phaseSkipName
	phaseSkipValue
)

// Decoder is a byte-driven, resumable HPACK state machine. Write may be
// called with arbitrarily small chunks of a header block; the decoder
// buffers whatever it cannot yet parse and picks back up on the next
// call, matching the accumulate-and-parse contract of
// golang.org/x/net/http2/hpack.Decoder.Write.
//
// Grounded on quic-go-qpack/decoder.go's per-representation parse
// functions and erda-project-erda-agent/pkg/hpack/hpack.go's
// parseHeaderField family; the resumable byte-at-a-time buffering (as
// opposed to both sources' assume-a-complete-block approach) is new
// engineering — see DESIGN.md.
type Decoder struct {
	emit                HeaderListener
	maxHeaderBlockBytes uint32

	dynTab                     *dynamicTable
	encoderMaxDynamicTableSize uint32 // ceiling this decoder has declared to its peer
	sizeUpdatePending          bool
	atBlockStart               bool

	buf []byte // unconsumed input, retained across Write calls

	headerSize uint64 // cumulative name+value bytes this block; > maxHeaderBlockBytes once truncated

	phase     decodePhase
	indexType indexKind
	name      string // resolved name: from an index lookup, or decoded literal bytes

	huffman     bool   // huffman flag for whichever string (name or value) is in flight
	declaredLen uint32 // declared byte length of that string

	skipping      bool // current field is being dropped without materializing its bytes
	skipRemaining uint32
}

// NewDecoder returns a new Decoder. maxHeaderBlockBytes bounds the
// cumulative decoded name+value bytes delivered per header block;
// maxDynamicTableSize is both the initial dynamic table capacity and
// the ceiling communicated to the peer for its size-update directives.
func NewDecoder(maxHeaderBlockBytes, maxDynamicTableSize uint32, emit HeaderListener) *Decoder {
	return &Decoder{
		emit:                       emit,
		maxHeaderBlockBytes:        maxHeaderBlockBytes,
		dynTab:                     newDynamicTable(maxDynamicTableSize),
		encoderMaxDynamicTableSize: maxDynamicTableSize,
		atBlockStart:               true,
	}
}

// MaxHeaderTableSize reports the dynamic table's current capacity.
func (d *Decoder) MaxHeaderTableSize() uint32 {
	return d.dynTab.capacity
}

// SetMaxHeaderTableSize lowers or raises the ceiling this decoder
// advertises to its peer. Shrinking below what the peer currently
// believes forces the dynamic table down immediately and requires the
// peer's next header block to open with a matching size-update
// directive (enforced by the mandatory size-update guard below).
func (d *Decoder) SetMaxHeaderTableSize(n uint32) error {
	if n < d.encoderMaxDynamicTableSize {
		d.sizeUpdatePending = true
		d.dynTab.setCapacity(n)
	}
	d.encoderMaxDynamicTableSize = n
	return nil
}

// EndHeaderBlock marks the end of the current header block, reports
// whether it was truncated by maxHeaderBlockBytes, and resets the
// per-block state machine. It does not reset the dynamic table.
func (d *Decoder) EndHeaderBlock() bool {
	truncated := d.headerSize > uint64(d.maxHeaderBlockBytes)
	d.headerSize = 0
	d.phase = phaseDirective
	d.indexType = indexNone
	d.atBlockStart = true
	return truncated
}

// Write feeds p into the decoder, parsing as far as possible and
// emitting completed header fields to the listener. It never returns
// a partial-write error: io.Writer callers can treat any non-nil error
// as fatal to the stream (per RFC 7541, a DecompressionError
// invalidates everything that follows).
func (d *Decoder) Write(p []byte) (int, error) {
	d.buf = append(d.buf, p...)
	for {
		progressed, err := d.step()
		if err != nil {
			return len(p), err
		}
		if !progressed {
			return len(p), nil
		}
	}
}

var _ io.Writer = (*Decoder)(nil)

func (d *Decoder) step() (bool, error) {
	switch d.phase {
	case phaseDirective:
		return d.stepDirective()
	case phaseNameLen:
		return d.stepNameLen()
	case phaseNameBytes:
		return d.stepNameBytes()
	case phaseValueLen:
		return d.stepValueLen()
	case phaseValueBytes:
		return d.stepValueBytes()
	case phaseSkipName:
		return d.stepSkipName()
	case phaseSkipValue:
		return d.stepSkipValue()
	default:
		panic("hpack: unreachable decoder phase")
	}
}

// stepDirective reads the leading octet of the next representation and
// dispatches on its top bits (RFC 7541 §6), after checking the
// mandatory size-update guard.
func (d *Decoder) stepDirective() (bool, error) {
	if len(d.buf) == 0 {
		return false, nil
	}
	b := d.buf[0]

	if d.atBlockStart {
		if d.sizeUpdatePending && b&0xE0 != 0x20 {
			return false, decompressionErrorf("hpack: block must open with a dynamic table size update")
		}
		d.atBlockStart = false
	}

	switch {
	case b&0x80 != 0:
		return d.stepIndexed()
	case b&0xC0 == 0x40:
		return d.stepLiteralStart(indexIncremental, 6)
	case b&0xE0 == 0x20:
		return d.stepSizeUpdate()
	case b&0xF0 == 0x10:
		return d.stepLiteralStart(indexNever, 4)
	default:
		return d.stepLiteralStart(indexNone, 4)
	}
}

func (d *Decoder) stepIndexed() (bool, error) {
	v, rest, err := readVarInt(7, d.buf)
	if err == errNeedMore {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	d.buf = rest
	if v == 0 {
		return false, decompressionErrorf("hpack: indexed representation with index 0")
	}
	f, err := d.lookupCombined(int(v))
	if err != nil {
		return false, err
	}
	d.deliver(f, false)
	return true, nil
}

func (d *Decoder) stepSizeUpdate() (bool, error) {
	v, rest, err := readVarInt(5, d.buf)
	if err == errNeedMore {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	d.buf = rest
	if uint32(v) > d.encoderMaxDynamicTableSize {
		return false, decompressionErrorf("hpack: dynamic table size update %d exceeds negotiated maximum %d", v, d.encoderMaxDynamicTableSize)
	}
	d.dynTab.setCapacity(uint32(v))
	d.sizeUpdatePending = false
	return true, nil
}

// stepLiteralStart reads the name-index prefix shared by all three
// literal representations. A zero value means a literal name follows;
// otherwise the name is resolved immediately from the combined table
// and only the value remains to be read.
func (d *Decoder) stepLiteralStart(kind indexKind, prefixBits uint8) (bool, error) {
	v, rest, err := readVarInt(prefixBits, d.buf)
	if err == errNeedMore {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	d.buf = rest
	d.indexType = kind
	d.skipping = false

	if v == 0 {
		d.phase = phaseNameLen
		return true, nil
	}
	f, err := d.lookupCombined(int(v))
	if err != nil {
		return false, err
	}
	d.name = f.Name
	d.phase = phaseValueLen
	return true, nil
}

// stepNameLen reads a literal name's huffman-flag+length prefix and
// decides whether the name alone already overruns the block's byte
// budget; if so it enters the skip path instead of buffering the name.
func (d *Decoder) stepNameLen() (bool, error) {
	if len(d.buf) == 0 {
		return false, nil
	}
	huffmanFlag := d.buf[0]&0x80 != 0
	v, rest, err := readVarInt(7, d.buf)
	if err == errNeedMore {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	d.buf = rest
	d.huffman = huffmanFlag
	d.declaredLen = uint32(v)

	if d.headerSize+uint64(d.declaredLen) > uint64(d.maxHeaderBlockBytes) {
		d.skipping = true
		d.headerSize = uint64(d.maxHeaderBlockBytes) + 1
		d.skipRemaining = d.declaredLen
		d.phase = phaseSkipName
	} else {
		d.phase = phaseNameBytes
	}
	return true, nil
}

func (d *Decoder) stepNameBytes() (bool, error) {
	if uint32(len(d.buf)) < d.declaredLen {
		return false, nil
	}
	raw := d.buf[:d.declaredLen]
	d.buf = d.buf[d.declaredLen:]
	name, err := decodeLiteralString(raw, d.huffman)
	if err != nil {
		return false, err
	}
	d.name = name
	d.phase = phaseValueLen
	return true, nil
}

func (d *Decoder) stepSkipName() (bool, error) {
	if d.skipRemaining == 0 {
		d.phase = phaseValueLen
		return true, nil
	}
	if len(d.buf) == 0 {
		return false, nil
	}
	n := d.skipRemaining
	if uint32(len(d.buf)) < n {
		n = uint32(len(d.buf))
	}
	d.buf = d.buf[n:]
	d.skipRemaining -= n
	if d.skipRemaining == 0 {
		d.phase = phaseValueLen
	}
	return true, nil
}

// stepValueLen reads a literal value's huffman-flag+length prefix. If
// the name already put the field over the block's byte budget the
// skip path is already active; otherwise the value alone can still
// push the field over budget, in which case it enters the skip path
// here instead of buffering it (mirrors stepNameLen).
func (d *Decoder) stepValueLen() (bool, error) {
	if len(d.buf) == 0 {
		return false, nil
	}
	huffmanFlag := d.buf[0]&0x80 != 0
	v, rest, err := readVarInt(7, d.buf)
	if err == errNeedMore {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	d.buf = rest
	d.huffman = huffmanFlag
	d.declaredLen = uint32(v)

	if !d.skipping && d.headerSize+uint64(len(d.name))+uint64(d.declaredLen) > uint64(d.maxHeaderBlockBytes) {
		d.skipping = true
		d.headerSize = uint64(d.maxHeaderBlockBytes) + 1
	}

	if d.skipping {
		d.skipRemaining = d.declaredLen
		d.phase = phaseSkipValue
	} else {
		d.phase = phaseValueBytes
	}
	return true, nil
}

func (d *Decoder) stepValueBytes() (bool, error) {
	if uint32(len(d.buf)) < d.declaredLen {
		return false, nil
	}
	raw := d.buf[:d.declaredLen]
	d.buf = d.buf[d.declaredLen:]
	value, err := decodeLiteralString(raw, d.huffman)
	if err != nil {
		return false, err
	}
	if err := d.finalizeLiteral(d.name, value); err != nil {
		return false, err
	}
	d.phase = phaseDirective
	return true, nil
}

func (d *Decoder) stepSkipValue() (bool, error) {
	if d.skipRemaining == 0 {
		d.finalizeSkipped()
		d.phase = phaseDirective
		return true, nil
	}
	if len(d.buf) == 0 {
		return false, nil
	}
	n := d.skipRemaining
	if uint32(len(d.buf)) < n {
		n = uint32(len(d.buf))
	}
	d.buf = d.buf[n:]
	d.skipRemaining -= n
	if d.skipRemaining == 0 {
		d.finalizeSkipped()
		d.phase = phaseDirective
	}
	return true, nil
}

func decodeLiteralString(raw []byte, huffman bool) (string, error) {
	if !huffman {
		return string(raw), nil
	}
	out, err := huffmanDecode(nil, raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// finalizeLiteral delivers a fully-resolved literal header field,
// adding it to the dynamic table first when incremental indexing is in
// effect (the table must reflect it regardless of whether the listener
// actually receives it, so that indexed references to it from later
// fields in the block still resolve correctly).
func (d *Decoder) finalizeLiteral(name, value string) error {
	if name == "" {
		return decompressionErrorf("hpack: empty header name")
	}
	f := HeaderField{Name: name, Value: value}
	if d.indexType == indexIncremental {
		d.dynTab.add(f)
	}
	d.deliver(f, d.indexType == indexNever)
	return nil
}

// finalizeSkipped runs the dynamic-table side effect for a field whose
// name or value was too large to buffer. Its real content was never
// materialized, so an incrementally-indexed field can't be added
// faithfully; the table is cleared instead, trading a weaker sync
// guarantee on this one adversarial/oversized field for not having to
// buffer it.
func (d *Decoder) finalizeSkipped() {
	if d.indexType == indexIncremental {
		d.dynTab.clear()
	}
	d.skipping = false
}

// lookupCombined resolves a 1-based combined index (RFC 7541 §2.3.3):
// 1..staticTableLen addresses the static table, the rest the dynamic
// table mirror, newest first.
func (d *Decoder) lookupCombined(i int) (HeaderField, error) {
	if i <= staticTableLen {
		return staticEntry(i), nil
	}
	f, err := d.dynTab.getEntry(i - staticTableLen)
	if err != nil {
		return HeaderField{}, decompressionErrorf("hpack: index %d out of range", i)
	}
	return f, nil
}

// deliver applies the header-size ceiling: a field that would push the
// block's cumulative byte total over maxHeaderBlockBytes is dropped
// from the listener and the block is marked truncated for the rest of
// its run (every later field in the block hits the same sentinel
// comparison and is dropped too).
func (d *Decoder) deliver(f HeaderField, sensitive bool) {
	total := d.headerSize + uint64(len(f.Name)) + uint64(len(f.Value))
	if total <= uint64(d.maxHeaderBlockBytes) {
		d.emit(f, sensitive)
		d.headerSize = total
		return
	}
	d.headerSize = uint64(d.maxHeaderBlockBytes) + 1
}
