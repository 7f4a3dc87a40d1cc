package fingerprint

import (
	"bytes"
	"encoding/binary"
	"strconv"

	fp "github.com/go-fingerprint/fingerprint"
	"github.com/go-fingerprint/gochroma"

	"codeberg.org/thomiel/adored/internal/errors"
)

// chromaprintAlgorithm feeds the 16-bit mono buffer directly to a
// libchromaprint context at the fixed rate/mono/default-algorithm
// configuration and carries the compact encoded fingerprint as an opaque
// string.
type chromaprintAlgorithm struct{}

func (a *chromaprintAlgorithm) Name() string { return "chromaprint" }

func (a *chromaprintAlgorithm) Version() string {
	return strconv.Itoa(int(gochroma.AlgorithmDefault))
}

func (a *chromaprintAlgorithm) Fingerprint(mono []int16) (string, error) {
	errFactory := errors.New()

	if len(mono) == 0 {
		return "", nil
	}

	raw := make([]byte, len(mono)*2)
	for i, s := range mono {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(s))
	}

	printer := gochroma.New(gochroma.AlgorithmDefault)
	defer printer.Close()

	seconds := len(mono)/TargetSampleRate + 1
	fprint, err := printer.Fingerprint(fp.RawInfo{
		Src:        bytes.NewReader(raw),
		Channels:   1,
		Rate:       TargetSampleRate,
		MaxSeconds: uint(seconds),
	})
	if err != nil {
		return "", errFactory.Wrap(ErrComputeFailed, err)
	}
	return fprint, nil
}
