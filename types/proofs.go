package types

import (
	ssz "github.com/ferranbt/fastssz"
)

// Limits of the proof containers. Patricia nodes are bounded by the largest
// branch node plus an embedded receipt payload; multiproofs by the beacon
// body tree depth times the leaf count.
const (
	MaxMPTNodes     = 64
	MaxMPTNodeLen   = 1 << 17
	MaxProofHashes  = 512
	MaxStorageSlots = 256
	MaxCallAccounts = 256
	MaxLogsBlocks   = 256
	MaxLogsReceipts = 1024
	MaxBlobLen      = 1 << 24
)

// marshalByteLists appends an SSZ List[List[byte,maxLen],maxItems].
func marshalByteLists(dst []byte, lists [][]byte, maxItems, maxLen int) ([]byte, error) {
	if len(lists) > maxItems {
		return nil, ssz.ErrListTooBig
	}
	off := len(lists) * 4
	for _, l := range lists {
		if len(l) > maxLen {
			return nil, ssz.ErrBytesLength
		}
		dst = ssz.WriteOffset(dst, off)
		off += len(l)
	}
	for _, l := range lists {
		dst = append(dst, l...)
	}
	return dst, nil
}

// unmarshalByteLists parses an SSZ List[List[byte,...]] enforcing the
// non-decreasing offset invariant.
func unmarshalByteLists(buf []byte) ([][]byte, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if len(buf) < 4 {
		return nil, ssz.ErrSize
	}
	first := ssz.ReadOffset(buf)
	if first%4 != 0 || first > uint64(len(buf)) {
		return nil, ssz.ErrOffset
	}
	n := int(first / 4)
	out := make([][]byte, n)
	prev := first
	for i := 0; i < n; i++ {
		start := ssz.ReadOffset(buf[i*4:])
		if start < prev && i > 0 {
			return nil, ssz.ErrOffset
		}
		end := uint64(len(buf))
		if i+1 < n {
			end = ssz.ReadOffset(buf[(i+1)*4:])
		}
		if start > end || end > uint64(len(buf)) {
			return nil, ssz.ErrOffset
		}
		out[i] = append([]byte{}, buf[start:end]...)
		prev = start
	}
	return out, nil
}

func hashByteLists(hh *ssz.Hasher, lists [][]byte, maxItems, maxLen int) error {
	idx := hh.Index()
	for _, l := range lists {
		if len(l) > maxLen {
			return ssz.ErrBytesLength
		}
		elem := hh.Index()
		hh.AppendBytes32(l)
		hh.MerkleizeWithMixin(elem, uint64(len(l)), uint64((maxLen+31)/32))
	}
	hh.MerkleizeWithMixin(idx, uint64(len(lists)), uint64(maxItems))
	return nil
}

func byteListsSize(lists [][]byte) int {
	size := len(lists) * 4
	for _, l := range lists {
		size += len(l)
	}
	return size
}

// marshalRoots appends an SSZ List[Root,MaxProofHashes].
func marshalRoots(dst []byte, roots [][32]byte) ([]byte, error) {
	if len(roots) > MaxProofHashes {
		return nil, ssz.ErrListTooBig
	}
	for i := range roots {
		dst = append(dst, roots[i][:]...)
	}
	return dst, nil
}

func unmarshalRoots(buf []byte) ([][32]byte, error) {
	if len(buf)%32 != 0 || len(buf) > MaxProofHashes*32 {
		return nil, ssz.ErrSize
	}
	out := make([][32]byte, len(buf)/32)
	for i := range out {
		copy(out[i][:], buf[i*32:])
	}
	return out, nil
}

func hashRoots(hh *ssz.Hasher, roots [][32]byte) {
	idx := hh.Index()
	for i := range roots {
		hh.Append(roots[i][:])
	}
	hh.MerkleizeWithMixin(idx, uint64(len(roots)), MaxProofHashes)
}

// ByteListRoot computes the SSZ root of a List[byte, maxLen] value.
func ByteListRoot(b []byte, maxLen uint64) ([32]byte, error) {
	hh := ssz.NewHasher()
	idx := hh.Index()
	hh.AppendBytes32(b)
	hh.MerkleizeWithMixin(idx, uint64(len(b)), (maxLen+31)/32)
	return hh.HashRoot()
}

// StorageProof carries a storage slot Patricia proof from eth_getProof.
type StorageProof struct {
	Key   [32]byte
	Proof [][]byte
}

func (s *StorageProof) SizeSSZ() int { return 36 + byteListsSize(s.Proof) }

func (s *StorageProof) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = append(dst, s.Key[:]...)
	dst = ssz.WriteOffset(dst, 36)
	return marshalByteLists(dst, s.Proof, MaxMPTNodes, MaxMPTNodeLen)
}

func (s *StorageProof) UnmarshalSSZ(buf []byte) error {
	if len(buf) < 36 {
		return ssz.ErrSize
	}
	copy(s.Key[:], buf[:32])
	if off := ssz.ReadOffset(buf[32:]); off != 36 {
		return ssz.ErrOffset
	}
	proof, err := unmarshalByteLists(buf[36:])
	if err != nil {
		return err
	}
	s.Proof = proof
	return nil
}

func (s *StorageProof) HashTreeRootWith(hh *ssz.Hasher) error {
	idx := hh.Index()
	hh.PutBytes(s.Key[:])
	if err := hashByteLists(hh, s.Proof, MaxMPTNodes, MaxMPTNodeLen); err != nil {
		return err
	}
	hh.Merkleize(idx)
	return nil
}

func marshalStorageProofs(dst []byte, proofs []*StorageProof) ([]byte, error) {
	if len(proofs) > MaxStorageSlots {
		return nil, ssz.ErrListTooBig
	}
	off := len(proofs) * 4
	for _, p := range proofs {
		dst = ssz.WriteOffset(dst, off)
		off += p.SizeSSZ()
	}
	var err error
	for _, p := range proofs {
		if dst, err = p.MarshalSSZTo(dst); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func unmarshalStorageProofs(buf []byte) ([]*StorageProof, error) {
	segments, err := splitDynamicList(buf)
	if err != nil {
		return nil, err
	}
	out := make([]*StorageProof, len(segments))
	for i, seg := range segments {
		out[i] = new(StorageProof)
		if err := out[i].UnmarshalSSZ(seg); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func hashStorageProofs(hh *ssz.Hasher, proofs []*StorageProof, maxItems uint64) error {
	idx := hh.Index()
	for _, p := range proofs {
		if err := p.HashTreeRootWith(hh); err != nil {
			return err
		}
	}
	hh.MerkleizeWithMixin(idx, uint64(len(proofs)), maxItems)
	return nil
}

// splitDynamicList slices an SSZ list of variable-size elements into its
// per-element segments, enforcing the offset invariants.
func splitDynamicList(buf []byte) ([][]byte, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if len(buf) < 4 {
		return nil, ssz.ErrSize
	}
	first := ssz.ReadOffset(buf)
	if first%4 != 0 || first > uint64(len(buf)) {
		return nil, ssz.ErrOffset
	}
	n := int(first / 4)
	segs := make([][]byte, n)
	for i := 0; i < n; i++ {
		start := ssz.ReadOffset(buf[i*4:])
		end := uint64(len(buf))
		if i+1 < n {
			end = ssz.ReadOffset(buf[(i+1)*4:])
		}
		if start > end || end > uint64(len(buf)) {
			return nil, ssz.ErrOffset
		}
		segs[i] = buf[start:end]
	}
	return segs, nil
}

// AccountProof proves account state (and storage slots) against the
// execution state root committed to by a beacon header.
type AccountProof struct {
	Address       [20]byte
	AccountProof  [][]byte
	StorageProofs []*StorageProof
	StateProof    [][32]byte
	Header        BeaconHeader
}

func (p *AccountProof) SizeSSZ() int {
	size := 144 + byteListsSize(p.AccountProof) + len(p.StateProof)*32
	for _, s := range p.StorageProofs {
		size += 4 + s.SizeSSZ()
	}
	return size
}

func (p *AccountProof) MarshalSSZTo(dst []byte) ([]byte, error) {
	var err error
	dst = append(dst, p.Address[:]...)
	off := 144
	dst = ssz.WriteOffset(dst, off)
	off += byteListsSize(p.AccountProof)
	dst = ssz.WriteOffset(dst, off)
	for _, s := range p.StorageProofs {
		off += 4 + s.SizeSSZ()
	}
	dst = ssz.WriteOffset(dst, off)
	if dst, err = p.Header.MarshalSSZTo(dst); err != nil {
		return nil, err
	}
	if dst, err = marshalByteLists(dst, p.AccountProof, MaxMPTNodes, MaxMPTNodeLen); err != nil {
		return nil, err
	}
	if dst, err = marshalStorageProofs(dst, p.StorageProofs); err != nil {
		return nil, err
	}
	return marshalRoots(dst, p.StateProof)
}

func (p *AccountProof) UnmarshalSSZ(buf []byte) error {
	if len(buf) < 144 {
		return ssz.ErrSize
	}
	copy(p.Address[:], buf[:20])
	o1 := ssz.ReadOffset(buf[20:])
	o2 := ssz.ReadOffset(buf[24:])
	o3 := ssz.ReadOffset(buf[28:])
	if o1 != 144 || o2 < o1 || o3 < o2 || o3 > uint64(len(buf)) {
		return ssz.ErrOffset
	}
	if err := p.Header.UnmarshalSSZ(buf[32:144]); err != nil {
		return err
	}
	var err error
	if p.AccountProof, err = unmarshalByteLists(buf[o1:o2]); err != nil {
		return err
	}
	if p.StorageProofs, err = unmarshalStorageProofs(buf[o2:o3]); err != nil {
		return err
	}
	p.StateProof, err = unmarshalRoots(buf[o3:])
	return err
}

func (p *AccountProof) HashTreeRootWith(hh *ssz.Hasher) error {
	idx := hh.Index()
	hh.PutBytes(p.Address[:])
	if err := hashByteLists(hh, p.AccountProof, MaxMPTNodes, MaxMPTNodeLen); err != nil {
		return err
	}
	if err := hashStorageProofs(hh, p.StorageProofs, MaxStorageSlots); err != nil {
		return err
	}
	hashRoots(hh, p.StateProof)
	if err := p.Header.HashTreeRootWith(hh); err != nil {
		return err
	}
	hh.Merkleize(idx)
	return nil
}

// TransactionProof proves a single transaction's inclusion and content.
type TransactionProof struct {
	TransactionIndex uint32
	BlockNumber      uint64
	BlockHash        [32]byte
	Transaction      []byte
	TxProof          [][]byte
	Proof            [][32]byte
	Header           BeaconHeader
}

func (p *TransactionProof) SizeSSZ() int {
	return 168 + len(p.Transaction) + byteListsSize(p.TxProof) + len(p.Proof)*32
}

func (p *TransactionProof) MarshalSSZTo(dst []byte) ([]byte, error) {
	var err error
	dst = ssz.MarshalUint32(dst, p.TransactionIndex)
	dst = ssz.MarshalUint64(dst, p.BlockNumber)
	dst = append(dst, p.BlockHash[:]...)
	off := 168
	dst = ssz.WriteOffset(dst, off)
	off += len(p.Transaction)
	dst = ssz.WriteOffset(dst, off)
	off += byteListsSize(p.TxProof)
	dst = ssz.WriteOffset(dst, off)
	if dst, err = p.Header.MarshalSSZTo(dst); err != nil {
		return nil, err
	}
	if len(p.Transaction) > MaxBlobLen {
		return nil, ssz.ErrBytesLength
	}
	dst = append(dst, p.Transaction...)
	if dst, err = marshalByteLists(dst, p.TxProof, MaxMPTNodes, MaxMPTNodeLen); err != nil {
		return nil, err
	}
	return marshalRoots(dst, p.Proof)
}

func (p *TransactionProof) UnmarshalSSZ(buf []byte) error {
	if len(buf) < 168 {
		return ssz.ErrSize
	}
	p.TransactionIndex = ssz.UnmarshallUint32(buf[0:4])
	p.BlockNumber = ssz.UnmarshallUint64(buf[4:12])
	copy(p.BlockHash[:], buf[12:44])
	o1 := ssz.ReadOffset(buf[44:])
	o2 := ssz.ReadOffset(buf[48:])
	o3 := ssz.ReadOffset(buf[52:])
	if o1 != 168 || o2 < o1 || o3 < o2 || o3 > uint64(len(buf)) {
		return ssz.ErrOffset
	}
	if err := p.Header.UnmarshalSSZ(buf[56:168]); err != nil {
		return err
	}
	p.Transaction = append([]byte{}, buf[o1:o2]...)
	var err error
	if p.TxProof, err = unmarshalByteLists(buf[o2:o3]); err != nil {
		return err
	}
	p.Proof, err = unmarshalRoots(buf[o3:])
	return err
}

func (p *TransactionProof) HashTreeRootWith(hh *ssz.Hasher) error {
	idx := hh.Index()
	hh.PutUint32(p.TransactionIndex)
	hh.PutUint64(p.BlockNumber)
	hh.PutBytes(p.BlockHash[:])
	elem := hh.Index()
	hh.AppendBytes32(p.Transaction)
	hh.MerkleizeWithMixin(elem, uint64(len(p.Transaction)), uint64((MaxBlobLen+31)/32))
	if err := hashByteLists(hh, p.TxProof, MaxMPTNodes, MaxMPTNodeLen); err != nil {
		return err
	}
	hashRoots(hh, p.Proof)
	if err := p.Header.HashTreeRootWith(hh); err != nil {
		return err
	}
	hh.Merkleize(idx)
	return nil
}

// ReceiptProof proves a transaction receipt, binding it to the transaction
// through the parallel transaction trie proof.
type ReceiptProof struct {
	TransactionIndex uint32
	BlockNumber      uint64
	BlockHash        [32]byte
	ReceiptProof     [][]byte
	TxProof          [][]byte
	Proof            [][32]byte
	Header           BeaconHeader
}

func (p *ReceiptProof) SizeSSZ() int {
	return 168 + byteListsSize(p.ReceiptProof) + byteListsSize(p.TxProof) + len(p.Proof)*32
}

func (p *ReceiptProof) MarshalSSZTo(dst []byte) ([]byte, error) {
	var err error
	dst = ssz.MarshalUint32(dst, p.TransactionIndex)
	dst = ssz.MarshalUint64(dst, p.BlockNumber)
	dst = append(dst, p.BlockHash[:]...)
	off := 168
	dst = ssz.WriteOffset(dst, off)
	off += byteListsSize(p.ReceiptProof)
	dst = ssz.WriteOffset(dst, off)
	off += byteListsSize(p.TxProof)
	dst = ssz.WriteOffset(dst, off)
	if dst, err = p.Header.MarshalSSZTo(dst); err != nil {
		return nil, err
	}
	if dst, err = marshalByteLists(dst, p.ReceiptProof, MaxMPTNodes, MaxMPTNodeLen); err != nil {
		return nil, err
	}
	if dst, err = marshalByteLists(dst, p.TxProof, MaxMPTNodes, MaxMPTNodeLen); err != nil {
		return nil, err
	}
	return marshalRoots(dst, p.Proof)
}

func (p *ReceiptProof) UnmarshalSSZ(buf []byte) error {
	if len(buf) < 168 {
		return ssz.ErrSize
	}
	p.TransactionIndex = ssz.UnmarshallUint32(buf[0:4])
	p.BlockNumber = ssz.UnmarshallUint64(buf[4:12])
	copy(p.BlockHash[:], buf[12:44])
	o1 := ssz.ReadOffset(buf[44:])
	o2 := ssz.ReadOffset(buf[48:])
	o3 := ssz.ReadOffset(buf[52:])
	if o1 != 168 || o2 < o1 || o3 < o2 || o3 > uint64(len(buf)) {
		return ssz.ErrOffset
	}
	if err := p.Header.UnmarshalSSZ(buf[56:168]); err != nil {
		return err
	}
	var err error
	if p.ReceiptProof, err = unmarshalByteLists(buf[o1:o2]); err != nil {
		return err
	}
	if p.TxProof, err = unmarshalByteLists(buf[o2:o3]); err != nil {
		return err
	}
	p.Proof, err = unmarshalRoots(buf[o3:])
	return err
}

func (p *ReceiptProof) HashTreeRootWith(hh *ssz.Hasher) error {
	idx := hh.Index()
	hh.PutUint32(p.TransactionIndex)
	hh.PutUint64(p.BlockNumber)
	hh.PutBytes(p.BlockHash[:])
	if err := hashByteLists(hh, p.ReceiptProof, MaxMPTNodes, MaxMPTNodeLen); err != nil {
		return err
	}
	if err := hashByteLists(hh, p.TxProof, MaxMPTNodes, MaxMPTNodeLen); err != nil {
		return err
	}
	hashRoots(hh, p.Proof)
	if err := p.Header.HashTreeRootWith(hh); err != nil {
		return err
	}
	hh.Merkleize(idx)
	return nil
}

// ReceiptEntry is one receipt inside a logs proof block.
type ReceiptEntry struct {
	TransactionIndex uint32
	Proof            [][]byte
}

func (e *ReceiptEntry) SizeSSZ() int { return 8 + byteListsSize(e.Proof) }

func (e *ReceiptEntry) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = ssz.MarshalUint32(dst, e.TransactionIndex)
	dst = ssz.WriteOffset(dst, 8)
	return marshalByteLists(dst, e.Proof, MaxMPTNodes, MaxMPTNodeLen)
}

func (e *ReceiptEntry) UnmarshalSSZ(buf []byte) error {
	if len(buf) < 8 {
		return ssz.ErrSize
	}
	e.TransactionIndex = ssz.UnmarshallUint32(buf[0:4])
	if off := ssz.ReadOffset(buf[4:]); off != 8 {
		return ssz.ErrOffset
	}
	proof, err := unmarshalByteLists(buf[8:])
	if err != nil {
		return err
	}
	e.Proof = proof
	return nil
}

func (e *ReceiptEntry) HashTreeRootWith(hh *ssz.Hasher) error {
	idx := hh.Index()
	hh.PutUint32(e.TransactionIndex)
	if err := hashByteLists(hh, e.Proof, MaxMPTNodes, MaxMPTNodeLen); err != nil {
		return err
	}
	hh.Merkleize(idx)
	return nil
}

// LogsBlockProof groups the receipts of one block referenced by a logs query.
type LogsBlockProof struct {
	BlockNumber uint64
	BlockHash   [32]byte
	Proof       [][32]byte
	Header      BeaconHeader
	Receipts    []*ReceiptEntry
}

func (p *LogsBlockProof) SizeSSZ() int {
	size := 160 + len(p.Proof)*32
	for _, r := range p.Receipts {
		size += 4 + r.SizeSSZ()
	}
	return size
}

func (p *LogsBlockProof) MarshalSSZTo(dst []byte) ([]byte, error) {
	var err error
	dst = ssz.MarshalUint64(dst, p.BlockNumber)
	dst = append(dst, p.BlockHash[:]...)
	off := 160
	dst = ssz.WriteOffset(dst, off)
	off += len(p.Proof) * 32
	dst = ssz.WriteOffset(dst, off)
	if dst, err = p.Header.MarshalSSZTo(dst); err != nil {
		return nil, err
	}
	if dst, err = marshalRoots(dst, p.Proof); err != nil {
		return nil, err
	}
	if len(p.Receipts) > MaxLogsReceipts {
		return nil, ssz.ErrListTooBig
	}
	roff := len(p.Receipts) * 4
	for _, r := range p.Receipts {
		dst = ssz.WriteOffset(dst, roff)
		roff += r.SizeSSZ()
	}
	for _, r := range p.Receipts {
		if dst, err = r.MarshalSSZTo(dst); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func (p *LogsBlockProof) UnmarshalSSZ(buf []byte) error {
	if len(buf) < 160 {
		return ssz.ErrSize
	}
	p.BlockNumber = ssz.UnmarshallUint64(buf[0:8])
	copy(p.BlockHash[:], buf[8:40])
	o1 := ssz.ReadOffset(buf[40:])
	o2 := ssz.ReadOffset(buf[44:])
	if o1 != 160 || o2 < o1 || o2 > uint64(len(buf)) {
		return ssz.ErrOffset
	}
	if err := p.Header.UnmarshalSSZ(buf[48:160]); err != nil {
		return err
	}
	var err error
	if p.Proof, err = unmarshalRoots(buf[o1:o2]); err != nil {
		return err
	}
	segs, err := splitDynamicList(buf[o2:])
	if err != nil {
		return err
	}
	p.Receipts = make([]*ReceiptEntry, len(segs))
	for i, seg := range segs {
		p.Receipts[i] = new(ReceiptEntry)
		if err := p.Receipts[i].UnmarshalSSZ(seg); err != nil {
			return err
		}
	}
	return nil
}

func (p *LogsBlockProof) HashTreeRootWith(hh *ssz.Hasher) error {
	idx := hh.Index()
	hh.PutUint64(p.BlockNumber)
	hh.PutBytes(p.BlockHash[:])
	hashRoots(hh, p.Proof)
	if err := p.Header.HashTreeRootWith(hh); err != nil {
		return err
	}
	ridx := hh.Index()
	for _, r := range p.Receipts {
		if err := r.HashTreeRootWith(hh); err != nil {
			return err
		}
	}
	hh.MerkleizeWithMixin(ridx, uint64(len(p.Receipts)), MaxLogsReceipts)
	hh.Merkleize(idx)
	return nil
}

// LogsProof proves all receipts a log query touched, block by block.
type LogsProof struct {
	Blocks []*LogsBlockProof
}

func (p *LogsProof) SizeSSZ() int {
	size := 4
	for _, b := range p.Blocks {
		size += 4 + b.SizeSSZ()
	}
	return size
}

func (p *LogsProof) MarshalSSZTo(dst []byte) ([]byte, error) {
	if len(p.Blocks) > MaxLogsBlocks {
		return nil, ssz.ErrListTooBig
	}
	dst = ssz.WriteOffset(dst, 4)
	off := len(p.Blocks) * 4
	for _, b := range p.Blocks {
		dst = ssz.WriteOffset(dst, off)
		off += b.SizeSSZ()
	}
	var err error
	for _, b := range p.Blocks {
		if dst, err = b.MarshalSSZTo(dst); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func (p *LogsProof) UnmarshalSSZ(buf []byte) error {
	if len(buf) < 4 {
		return ssz.ErrSize
	}
	if off := ssz.ReadOffset(buf); off != 4 {
		return ssz.ErrOffset
	}
	segs, err := splitDynamicList(buf[4:])
	if err != nil {
		return err
	}
	p.Blocks = make([]*LogsBlockProof, len(segs))
	for i, seg := range segs {
		p.Blocks[i] = new(LogsBlockProof)
		if err := p.Blocks[i].UnmarshalSSZ(seg); err != nil {
			return err
		}
	}
	return nil
}

func (p *LogsProof) HashTreeRootWith(hh *ssz.Hasher) error {
	idx := hh.Index()
	bidx := hh.Index()
	for _, b := range p.Blocks {
		if err := b.HashTreeRootWith(hh); err != nil {
			return err
		}
	}
	hh.MerkleizeWithMixin(bidx, uint64(len(p.Blocks)), MaxLogsBlocks)
	hh.Merkleize(idx)
	return nil
}

// AccountStateProof is one account touched by an eth_call execution.
type AccountStateProof struct {
	Address       [20]byte
	AccountProof  [][]byte
	Code          []byte
	StorageProofs []*StorageProof
}

func (p *AccountStateProof) SizeSSZ() int {
	size := 32 + byteListsSize(p.AccountProof) + len(p.Code)
	for _, s := range p.StorageProofs {
		size += 4 + s.SizeSSZ()
	}
	return size
}

func (p *AccountStateProof) MarshalSSZTo(dst []byte) ([]byte, error) {
	var err error
	dst = append(dst, p.Address[:]...)
	off := 32
	dst = ssz.WriteOffset(dst, off)
	off += byteListsSize(p.AccountProof)
	dst = ssz.WriteOffset(dst, off)
	off += len(p.Code)
	dst = ssz.WriteOffset(dst, off)
	if dst, err = marshalByteLists(dst, p.AccountProof, MaxMPTNodes, MaxMPTNodeLen); err != nil {
		return nil, err
	}
	if len(p.Code) > MaxBlobLen {
		return nil, ssz.ErrBytesLength
	}
	dst = append(dst, p.Code...)
	return marshalStorageProofs(dst, p.StorageProofs)
}

func (p *AccountStateProof) UnmarshalSSZ(buf []byte) error {
	if len(buf) < 32 {
		return ssz.ErrSize
	}
	copy(p.Address[:], buf[:20])
	o1 := ssz.ReadOffset(buf[20:])
	o2 := ssz.ReadOffset(buf[24:])
	o3 := ssz.ReadOffset(buf[28:])
	if o1 != 32 || o2 < o1 || o3 < o2 || o3 > uint64(len(buf)) {
		return ssz.ErrOffset
	}
	var err error
	if p.AccountProof, err = unmarshalByteLists(buf[o1:o2]); err != nil {
		return err
	}
	p.Code = append([]byte{}, buf[o2:o3]...)
	p.StorageProofs, err = unmarshalStorageProofs(buf[o3:])
	return err
}

func (p *AccountStateProof) HashTreeRootWith(hh *ssz.Hasher) error {
	idx := hh.Index()
	hh.PutBytes(p.Address[:])
	if err := hashByteLists(hh, p.AccountProof, MaxMPTNodes, MaxMPTNodeLen); err != nil {
		return err
	}
	elem := hh.Index()
	hh.AppendBytes32(p.Code)
	hh.MerkleizeWithMixin(elem, uint64(len(p.Code)), uint64((MaxBlobLen+31)/32))
	if err := hashStorageProofs(hh, p.StorageProofs, MaxStorageSlots); err != nil {
		return err
	}
	hh.Merkleize(idx)
	return nil
}

// CallProof proves every account and storage slot an eth_call touched.
type CallProof struct {
	Accounts   []*AccountStateProof
	StateProof [][32]byte
	Header     BeaconHeader
}

func (p *CallProof) SizeSSZ() int {
	size := 120 + len(p.StateProof)*32
	for _, a := range p.Accounts {
		size += 4 + a.SizeSSZ()
	}
	return size
}

func (p *CallProof) MarshalSSZTo(dst []byte) ([]byte, error) {
	var err error
	off := 120
	dst = ssz.WriteOffset(dst, off)
	for _, a := range p.Accounts {
		off += 4 + a.SizeSSZ()
	}
	dst = ssz.WriteOffset(dst, off)
	if dst, err = p.Header.MarshalSSZTo(dst); err != nil {
		return nil, err
	}
	if len(p.Accounts) > MaxCallAccounts {
		return nil, ssz.ErrListTooBig
	}
	aoff := len(p.Accounts) * 4
	for _, a := range p.Accounts {
		dst = ssz.WriteOffset(dst, aoff)
		aoff += a.SizeSSZ()
	}
	for _, a := range p.Accounts {
		if dst, err = a.MarshalSSZTo(dst); err != nil {
			return nil, err
		}
	}
	return marshalRoots(dst, p.StateProof)
}

func (p *CallProof) UnmarshalSSZ(buf []byte) error {
	if len(buf) < 120 {
		return ssz.ErrSize
	}
	o1 := ssz.ReadOffset(buf[0:])
	o2 := ssz.ReadOffset(buf[4:])
	if o1 != 120 || o2 < o1 || o2 > uint64(len(buf)) {
		return ssz.ErrOffset
	}
	if err := p.Header.UnmarshalSSZ(buf[8:120]); err != nil {
		return err
	}
	segs, err := splitDynamicList(buf[o1:o2])
	if err != nil {
		return err
	}
	p.Accounts = make([]*AccountStateProof, len(segs))
	for i, seg := range segs {
		p.Accounts[i] = new(AccountStateProof)
		if err := p.Accounts[i].UnmarshalSSZ(seg); err != nil {
			return err
		}
	}
	p.StateProof, err = unmarshalRoots(buf[o2:])
	return err
}

func (p *CallProof) HashTreeRootWith(hh *ssz.Hasher) error {
	idx := hh.Index()
	aidx := hh.Index()
	for _, a := range p.Accounts {
		if err := a.HashTreeRootWith(hh); err != nil {
			return err
		}
	}
	hh.MerkleizeWithMixin(aidx, uint64(len(p.Accounts)), MaxCallAccounts)
	hashRoots(hh, p.StateProof)
	if err := p.Header.HashTreeRootWith(hh); err != nil {
		return err
	}
	hh.Merkleize(idx)
	return nil
}

// BlockProof proves an execution block header against the beacon chain.
type BlockProof struct {
	BlockHeader []byte
	Proof       [][32]byte
	Header      BeaconHeader
}

func (p *BlockProof) SizeSSZ() int {
	return 120 + len(p.BlockHeader) + len(p.Proof)*32
}

func (p *BlockProof) MarshalSSZTo(dst []byte) ([]byte, error) {
	var err error
	off := 120
	dst = ssz.WriteOffset(dst, off)
	off += len(p.BlockHeader)
	dst = ssz.WriteOffset(dst, off)
	if dst, err = p.Header.MarshalSSZTo(dst); err != nil {
		return nil, err
	}
	if len(p.BlockHeader) > MaxBlobLen {
		return nil, ssz.ErrBytesLength
	}
	dst = append(dst, p.BlockHeader...)
	return marshalRoots(dst, p.Proof)
}

func (p *BlockProof) UnmarshalSSZ(buf []byte) error {
	if len(buf) < 120 {
		return ssz.ErrSize
	}
	o1 := ssz.ReadOffset(buf[0:])
	o2 := ssz.ReadOffset(buf[4:])
	if o1 != 120 || o2 < o1 || o2 > uint64(len(buf)) {
		return ssz.ErrOffset
	}
	if err := p.Header.UnmarshalSSZ(buf[8:120]); err != nil {
		return err
	}
	p.BlockHeader = append([]byte{}, buf[o1:o2]...)
	var err error
	p.Proof, err = unmarshalRoots(buf[o2:])
	return err
}

func (p *BlockProof) HashTreeRootWith(hh *ssz.Hasher) error {
	idx := hh.Index()
	elem := hh.Index()
	hh.AppendBytes32(p.BlockHeader)
	hh.MerkleizeWithMixin(elem, uint64(len(p.BlockHeader)), uint64((MaxBlobLen+31)/32))
	hashRoots(hh, p.Proof)
	if err := p.Header.HashTreeRootWith(hh); err != nil {
		return err
	}
	hh.Merkleize(idx)
	return nil
}

// SyncProof carries the light client updates proving a sync committee
// transition for one period.
type SyncProof struct {
	Period  uint64
	Updates []byte
}

func (p *SyncProof) SizeSSZ() int { return 12 + len(p.Updates) }

func (p *SyncProof) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = ssz.MarshalUint64(dst, p.Period)
	dst = ssz.WriteOffset(dst, 12)
	if len(p.Updates) > MaxBlobLen {
		return nil, ssz.ErrBytesLength
	}
	return append(dst, p.Updates...), nil
}

func (p *SyncProof) UnmarshalSSZ(buf []byte) error {
	if len(buf) < 12 {
		return ssz.ErrSize
	}
	p.Period = ssz.UnmarshallUint64(buf[0:8])
	if off := ssz.ReadOffset(buf[8:]); off != 12 {
		return ssz.ErrOffset
	}
	p.Updates = append([]byte{}, buf[12:]...)
	return nil
}

func (p *SyncProof) HashTreeRootWith(hh *ssz.Hasher) error {
	idx := hh.Index()
	hh.PutUint64(p.Period)
	elem := hh.Index()
	hh.AppendBytes32(p.Updates)
	hh.MerkleizeWithMixin(elem, uint64(len(p.Updates)), uint64((MaxBlobLen+31)/32))
	hh.Merkleize(idx)
	return nil
}
