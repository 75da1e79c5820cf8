package poison

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soapdogg/roc-toolkit/pkg/audio"
)

func TestWriterPoisonsAfterForwarding(t *testing.T) {
	var captured []audio.Sample
	downstream := audio.WriterFunc(func(f *audio.Frame) error {
		captured = append(captured, f.Samples...)
		return nil
	})
	w := NewWriter(downstream)

	f := &audio.Frame{Samples: []audio.Sample{1, 2, 3}}
	require.NoError(t, w.WriteFrame(f))
	assert.Equal(t, []audio.Sample{1, 2, 3}, captured, "downstream should have seen the real samples")
	for _, s := range f.Samples {
		assert.Equal(t, DefaultPattern, s, "expected caller's buffer poisoned after write")
	}
}

func TestReaderPoisonsBeforePulling(t *testing.T) {
	upstream := audio.ReaderFunc(func(f *audio.Frame) error {
		f.Samples[0] = 42
		return nil
	})
	r := NewReader(upstream)

	f := &audio.Frame{Samples: make([]audio.Sample, 2)}
	require.NoError(t, r.ReadFrame(f))
	assert.Equal(t, audio.Sample(42), f.Samples[0], "expected upstream's write to survive")
	assert.Equal(t, DefaultPattern, f.Samples[1], "expected untouched region to carry the sentinel pattern")
}
