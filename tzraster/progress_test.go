package tzraster

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockProgressWriter struct {
	countProgressCalls []mockProgressCall
	bytesProgressCalls []mockProgressCall
	progresses         []*mockProgress
	mu                 sync.Mutex
}

type mockProgressCall struct {
	total       int64
	description string
}

func (m *mockProgressWriter) NewCountProgress(total int64, description string) Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countProgressCalls = append(m.countProgressCalls, mockProgressCall{total, description})
	p := &mockProgress{total: total}
	m.progresses = append(m.progresses, p)
	return p
}

func (m *mockProgressWriter) NewBytesProgress(total int64, description string) Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytesProgressCalls = append(m.bytesProgressCalls, mockProgressCall{total, description})
	p := &mockProgress{total: total}
	m.progresses = append(m.progresses, p)
	return p
}

type mockProgress struct {
	total   int64
	current int64
	closed  bool
	mu      sync.Mutex
}

func (p *mockProgress) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current += int64(len(data))
	return len(data), nil
}

func (p *mockProgress) Add(num int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current += int64(num)
}

func (p *mockProgress) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func resetProgressWriter() {
	SetProgressWriter(nil)
}

func TestSetProgressWriter(t *testing.T) {
	defer resetProgressWriter()

	mock := &mockProgressWriter{}
	SetProgressWriter(mock)
	assert.Equal(t, mock, getProgressWriter())
}

func TestSetProgressWriterNil(t *testing.T) {
	SetProgressWriter(nil)
	_, ok := getProgressWriter().(quietProgressWriter)
	assert.True(t, ok)
}

func TestQuietProgress(t *testing.T) {
	p := quietProgressWriter{}.NewBytesProgress(1024, "test")
	n, err := p.Write([]byte("test data"))
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	p.Add(10)
	assert.Nil(t, p.Close())
}

func TestRenderReportsBands(t *testing.T) {
	defer resetProgressWriter()
	mock := &mockProgressWriter{}
	SetProgressWriter(mock)

	layer := styledLayer(t, "fixtures/two_zones.geojson")
	settings := NewMapSettings(layer, 50)
	settings.BandHeight = 16
	job, err := NewRenderJob(layer, settings)
	require.NoError(t, err)
	job.Start(context.Background())
	assert.Nil(t, job.Wait())

	assert.Equal(t, []mockProgressCall{{4, "rendering"}}, mock.countProgressCalls)
	assert.Equal(t, int64(4), mock.progresses[0].current)
	assert.True(t, mock.progresses[0].closed)
}

func TestUploadReportsBytes(t *testing.T) {
	defer resetProgressWriter()
	mock := &mockProgressWriter{}
	SetProgressWriter(mock)

	outdir := compileFixture(t, "fixtures/two_zones.geojson", StrideColors)
	bucketURL, _, err := NormalizeBucketKey("", t.TempDir(), "")
	require.NoError(t, err)
	assert.Nil(t, Upload(context.Background(), zaptest.NewLogger(t), outdir, bucketURL, "", 1))

	assert.Equal(t, 2, len(mock.bytesProgressCalls))
	assert.Equal(t, "uploading "+MappingFilename, mock.bytesProgressCalls[0].description)
	for _, p := range mock.progresses {
		if p.total > 0 {
			assert.Equal(t, p.total, p.current)
		}
	}
}
