package metadata

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// AudioInfo holds technical properties of a stored file.
type AudioInfo struct {
	Duration int // seconds
	Size     int64
}

// Probe measures size and, when enabled, duration of an audio file. It never
// fails; unknown values stay zero.
func (r *Resolver) Probe(path string) AudioInfo {
	var info AudioInfo

	st, err := os.Stat(path)
	if err != nil {
		r.logger.WithError(err).WithField("filePath", path).Debug("Failed to stat file for probing")
		return info
	}
	info.Size = st.Size()

	if !r.probeDuration {
		return info
	}

	duration, err := probeDuration(path, info.Size)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"filePath": path,
			"error":    err.Error(),
		}).Debug("Failed to calculate duration, setting to 0")
		return info
	}
	info.Duration = duration
	return info
}

func probeDuration(path string, size int64) (int, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		return durationMP3(path, size)
	case ".flac":
		return durationFLAC(path)
	case ".wav":
		return durationWAV(path, size)
	default:
		return 0, fmt.Errorf("unsupported format: %s", ext)
	}
}

// durationMP3 sums decoded frame durations. When not a single frame decodes
// it estimates from the size at 192 kbps.
func durationMP3(path string, size int64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped, frames int
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) || frames > 0 {
				break
			}
			return int(size * 8 / 192000), nil
		}
		total += fr.Duration()
		frames++
	}
	return int(total.Seconds()), nil
}

// durationFLAC reads the STREAMINFO block.
func durationFLAC(path string) (int, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	si := stream.Info
	if si.NSamples == 0 || si.SampleRate == 0 {
		return 0, fmt.Errorf("flac stream missing sample info")
	}
	return int(float64(si.NSamples)/float64(si.SampleRate) + 0.5), nil
}

// durationWAV derives the sample frame count from the PCM payload size.
func durationWAV(path string, size int64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file")
	}
	frameSize := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if dec.SampleRate == 0 || frameSize <= 0 {
		return 0, fmt.Errorf("invalid wav header")
	}
	pcmBytes := size - 44
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	return int(float64(pcmBytes/frameSize)/float64(dec.SampleRate) + 0.5), nil
}
