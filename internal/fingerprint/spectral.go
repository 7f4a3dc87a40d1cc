package fingerprint

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

const (
	windowSize = 1024
	hopSize    = 256
)

type peak struct {
	frameIdx int
	binIdx   int
	timeSec  float64
}

func hamming(n int) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// stft computes the magnitude spectrogram of samples with a Hamming window.
// Frames shorter than the window are dropped.
func stft(samples []float64) [][]float64 {
	if len(samples) < windowSize {
		return nil
	}

	window := hamming(windowSize)
	frame := make([]float64, windowSize)

	var spectrogram [][]float64
	for start := 0; start+windowSize <= len(samples); start += hopSize {
		for i := 0; i < windowSize; i++ {
			frame[i] = samples[start+i] * window[i]
		}
		spectrum := fft.FFTReal(frame)

		mag := make([]float64, windowSize/2)
		for i := range mag {
			mag[i] = cmplx.Abs(spectrum[i])
		}
		spectrogram = append(spectrogram, mag)
	}
	return spectrogram
}

// extractPeaks picks, per frame, the strongest bin of each logarithmic
// frequency band, keeping only bins that clear the frame's average band
// level by a margin and are a local maximum in their neighbourhood.
func extractPeaks(spectrogram [][]float64) []peak {
	if len(spectrogram) == 0 {
		return nil
	}

	nFrames := len(spectrogram)
	nBins := len(spectrogram[0])
	frameTime := float64(hopSize) / float64(TargetSampleRate)

	const (
		freqNeighbour = 3
		timeNeighbour = 1
		minDbAboveAvg = 3.0
		eps           = 1e-10
	)

	bands := [][2]int{{0, min(10, nBins)}}
	for start := 10; start < nBins; start *= 2 {
		end := min(start*2, nBins)
		bands = append(bands, [2]int{start, end})
		if end == nBins {
			break
		}
	}

	peaks := make([]peak, 0, nFrames*2)
	for t := 0; t < nFrames; t++ {
		frame := spectrogram[t]

		bandMax := make([]float64, len(bands))
		bandIdx := make([]int, len(bands))
		for bi, b := range bands {
			maxMag, maxIdx := 0.0, b[0]
			for i := b[0]; i < b[1]; i++ {
				if frame[i] > maxMag {
					maxMag, maxIdx = frame[i], i
				}
			}
			bandMax[bi], bandIdx[bi] = maxMag, maxIdx
		}

		var sumDb float64
		for _, mag := range bandMax {
			sumDb += 20.0 * math.Log10(mag+eps)
		}
		avgDb := sumDb / float64(len(bandMax))

		for bi, mag := range bandMax {
			if mag <= 0 {
				continue
			}
			magDb := 20.0 * math.Log10(mag+eps)
			if magDb < avgDb+minDbAboveAvg {
				continue
			}
			if !isLocalMax(spectrogram, t, bandIdx[bi], timeNeighbour, freqNeighbour) {
				continue
			}
			peaks = append(peaks, peak{
				frameIdx: t,
				binIdx:   bandIdx[bi],
				timeSec:  float64(t) * frameTime,
			})
		}
	}
	return peaks
}

func isLocalMax(spectrogram [][]float64, t, bin, timeNeighbour, freqNeighbour int) bool {
	mag := spectrogram[t][bin]
	for dt := -timeNeighbour; dt <= timeNeighbour; dt++ {
		tIdx := t + dt
		if tIdx < 0 || tIdx >= len(spectrogram) {
			continue
		}
		for df := -freqNeighbour; df <= freqNeighbour; df++ {
			fIdx := bin + df
			if fIdx < 0 || fIdx >= len(spectrogram[tIdx]) {
				continue
			}
			if dt == 0 && df == 0 {
				continue
			}
			if spectrogram[tIdx][fIdx] > mag {
				return false
			}
		}
	}
	return true
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
