package fingerprint

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"math"
	"sort"
)

const (
	echoprintName    = "echoprint"
	echoprintVersion = "4.12"

	maxFreqBits  = 9
	maxDeltaBits = 14
	fanOut       = 5
	minDeltaMs   = 10
	maxDeltaMs   = 15000
)

// echoprintAlgorithm generates a textual code string from normalized
// floating-point samples: spectral peaks are paired into 32-bit codes
// (anchor bin, target bin, time delta) which are serialized with their
// anchor times and base64-encoded.
type echoprintAlgorithm struct{}

func (a *echoprintAlgorithm) Name() string    { return echoprintName }
func (a *echoprintAlgorithm) Version() string { return echoprintVersion }

func (a *echoprintAlgorithm) Fingerprint(mono []int16) (string, error) {
	samples := make([]float64, len(mono))
	for i, s := range mono {
		samples[i] = float64(s) / 32768.0
	}

	peaks := extractPeaks(stft(samples))
	codes := pairCodes(peaks)
	if len(codes) == 0 {
		return "", nil
	}

	// Deterministic code order regardless of extraction order.
	sort.Slice(codes, func(i, j int) bool {
		if codes[i].anchorMs == codes[j].anchorMs {
			return codes[i].address < codes[j].address
		}
		return codes[i].anchorMs < codes[j].anchorMs
	})

	var buf bytes.Buffer
	for _, c := range codes {
		binary.Write(&buf, binary.BigEndian, c.anchorMs)
		binary.Write(&buf, binary.BigEndian, c.address)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

type code struct {
	anchorMs uint32
	address  uint32
}

// pairCodes combines each anchor peak with its following peaks inside the
// fan-out zone into 32-bit addresses:
// 9 bits anchor bin | 9 bits target bin | 14 bits delta in ms.
func pairCodes(peaks []peak) []code {
	freqMask := uint32(1<<maxFreqBits - 1)
	deltaMask := uint32(1<<maxDeltaBits - 1)

	var codes []code
	for i, anchor := range peaks {
		for j := i + 1; j < len(peaks) && j <= i+fanOut; j++ {
			target := peaks[j]

			deltaMs := uint32(math.Round((target.timeSec - anchor.timeSec) * 1000.0))
			if deltaMs < minDeltaMs || deltaMs > maxDeltaMs {
				continue
			}

			anchorBin := uint32(anchor.binIdx)
			targetBin := uint32(target.binIdx)
			if anchorBin > freqMask || targetBin > freqMask {
				continue
			}

			address := anchorBin<<(maxDeltaBits+maxFreqBits) |
				targetBin<<maxDeltaBits |
				deltaMs&deltaMask
			codes = append(codes, code{
				anchorMs: uint32(anchor.timeSec * 1000.0),
				address:  address,
			})
		}
	}
	return codes
}
