package tpm2

import "encoding/json"

const defaultNumPCRs = 24

// PCRValue is the running measurement of a single PCR slot under one
// digest algorithm. It starts all-zero and only ever moves forward via
// extend; nothing resets it short of discarding the owning extender.
type PCRValue struct {
	algorithm    DigestAlgorithm
	value        []byte
	everExtended bool
}

func newPCRValue(algo DigestAlgorithm) *PCRValue {
	return &PCRValue{
		algorithm: algo,
		value:     make([]byte, algo.Size()),
	}
}

// extend replaces the slot value with Hash(old || digest).
func (pcr *PCRValue) extend(digest []byte) {
	h := pcr.algorithm.New()
	h.Write(pcr.value)
	h.Write(digest)
	pcr.value = h.Sum(nil)
	pcr.everExtended = true
}

// Algorithm returns the bank algorithm that owns this slot.
func (pcr *PCRValue) Algorithm() DigestAlgorithm {
	return pcr.algorithm
}

// Value returns a copy of the current measurement.
func (pcr *PCRValue) Value() []byte {
	value := make([]byte, len(pcr.value))
	copy(value, pcr.value)
	return value
}

// EverExtended reports whether the slot has ever been extended. This is
// diagnostic state only; it distinguishes a freshly built slot from one
// extended back to an indistinguishable value.
func (pcr *PCRValue) EverExtended() bool {
	return pcr.everExtended
}

// PCRExtender maintains one software PCR bank per configured digest
// algorithm, each bank holding a fixed number of slots. The bank set and
// slot count are fixed at build time. An extender is not safe for
// concurrent use; callers sharing one across goroutines must serialize
// access themselves.
type PCRExtender struct {
	numPCRs uint32
	banks   map[DigestAlgorithm][]*PCRValue
}

// ExtendDigest extends the slot at pcrIndex in the bank for algo with a
// pre-computed digest. The digest length must match the algorithm output
// length. Extending an out-of-range index records nothing and reports
// success, mirroring TPM behavior of ignoring writes to PCRs a locality
// cannot reach; reads of the same index fail with ErrInvalidPCR.
func (extender *PCRExtender) ExtendDigest(pcrIndex uint32, algo DigestAlgorithm, digest []byte) error {

	if len(digest) != algo.Size() {
		return ErrInvalidSize
	}

	bank, ok := extender.banks[algo]
	if !ok {
		return ErrUnusedAlgo
	}

	if pcrIndex < uint32(len(bank)) {
		bank[pcrIndex].extend(digest)
	}
	return nil
}

// Extend records a raw measurement at pcrIndex into every configured
// bank: each bank hashes the value with its own algorithm and extends its
// slot, so all banks record the same logical event. Out-of-range indices
// are ignored, as with ExtendDigest. Digests for all banks are computed
// before any slot is mutated, so the banks can never diverge.
func (extender *PCRExtender) Extend(pcrIndex uint32, value []byte) error {

	if pcrIndex >= extender.numPCRs {
		return nil
	}

	digests := make(map[DigestAlgorithm][]byte, len(extender.banks))
	for algo := range extender.banks {
		digests[algo] = algo.Sum(value)
	}

	for algo, bank := range extender.banks {
		bank[pcrIndex].extend(digests[algo])
	}
	return nil
}

// PCRAlgoValue returns the current measurement of the slot at pcrIndex in
// the bank for algo.
func (extender *PCRExtender) PCRAlgoValue(pcrIndex uint32, algo DigestAlgorithm) ([]byte, error) {

	bank, ok := extender.banks[algo]
	if !ok {
		return nil, ErrUnusedAlgo
	}

	if pcrIndex >= uint32(len(bank)) {
		return nil, ErrInvalidPCR
	}
	return bank[pcrIndex].Value(), nil
}

// NumPCRs returns the number of slots in every bank.
func (extender *PCRExtender) NumPCRs() uint32 {
	return extender.numPCRs
}

// Algorithms returns the configured bank algorithms in canonical order.
func (extender *PCRExtender) Algorithms() []DigestAlgorithm {
	algos := make([]DigestAlgorithm, 0, len(extender.banks))
	for _, algo := range DigestAlgorithms {
		if _, ok := extender.banks[algo]; ok {
			algos = append(algos, algo)
		}
	}
	return algos
}

// Values exports every bank as a slice of measurement copies ordered by
// PCR index.
func (extender *PCRExtender) Values() map[DigestAlgorithm][][]byte {
	values := make(map[DigestAlgorithm][][]byte, len(extender.banks))
	for algo, bank := range extender.banks {
		slots := make([][]byte, len(bank))
		for i, pcr := range bank {
			slots[i] = pcr.Value()
		}
		values[algo] = slots
	}
	return values
}

// Banks exports a snapshot of every bank, ordered by the canonical
// algorithm order, with slots ordered by PCR index.
func (extender *PCRExtender) Banks() []PCRBank {
	banks := make([]PCRBank, 0, len(extender.banks))
	for _, algo := range extender.Algorithms() {
		bank := PCRBank{
			Algorithm: algo.String(),
			PCRs:      make([]PCR, 0, extender.numPCRs),
		}
		for i, pcr := range extender.banks[algo] {
			bank.PCRs = append(bank.PCRs, PCR{
				Index:        uint32(i),
				Value:        pcr.Value(),
				EverExtended: pcr.EverExtended(),
			})
		}
		banks = append(banks, bank)
	}
	return banks
}

// MarshalJSON serializes the extender as a map of algorithm name to
// hex-encoded slot values ordered by PCR index. Map keys serialize in
// sorted order, so output is deterministic.
func (extender *PCRExtender) MarshalJSON() ([]byte, error) {
	banks := make(map[string][]string, len(extender.banks))
	for algo, bank := range extender.banks {
		slots := make([]string, len(bank))
		for i, pcr := range bank {
			slots[i] = Encode(pcr.value)
		}
		banks[algo.String()] = slots
	}
	return json.Marshal(banks)
}

// PCRExtenderBuilder configures and builds a PCRExtender. Zero or more
// digest algorithms are added, then Build is called once; the builder is
// not reused.
type PCRExtenderBuilder struct {
	numPCRs    uint32
	algorithms []DigestAlgorithm
}

// NewPCRExtenderBuilder returns a builder with the standard 24 PCR slots
// and no banks configured.
func NewPCRExtenderBuilder() *PCRExtenderBuilder {
	return &PCRExtenderBuilder{
		numPCRs: defaultNumPCRs,
	}
}

// SetNumPCRs overrides the number of slots allocated per bank.
func (builder *PCRExtenderBuilder) SetNumPCRs(numPCRs uint32) *PCRExtenderBuilder {
	builder.numPCRs = numPCRs
	return builder
}

// AddDigestAlgorithm enables a bank for the given algorithm. Adding the
// same algorithm twice is harmless; duplicates collapse to a single bank.
func (builder *PCRExtenderBuilder) AddDigestAlgorithm(algo DigestAlgorithm) *PCRExtenderBuilder {
	builder.algorithms = append(builder.algorithms, algo)
	return builder
}

// Build creates the extender with every configured bank initialized to
// all-zero slots.
func (builder *PCRExtenderBuilder) Build() *PCRExtender {
	banks := make(map[DigestAlgorithm][]*PCRValue, len(builder.algorithms))
	for _, algo := range builder.algorithms {
		if _, ok := banks[algo]; ok {
			continue
		}
		bank := make([]*PCRValue, builder.numPCRs)
		for i := range bank {
			bank[i] = newPCRValue(algo)
		}
		banks[algo] = bank
	}
	return &PCRExtender{
		numPCRs: builder.numPCRs,
		banks:   banks,
	}
}
