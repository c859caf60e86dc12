package tzraster

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// ProgressWriter creates progress trackers for long running steps such as
// rendering and uploading.
type ProgressWriter interface {
	NewCountProgress(total int64, description string) Progress
	NewBytesProgress(total int64, description string) Progress
}

// Progress is an active tracker. Implementations must be safe for
// concurrent use; render workers share one.
type Progress interface {
	io.Writer
	Add(num int)
	Close() error
}

var (
	progressWriterMu sync.RWMutex
	progressWriter   ProgressWriter = barProgressWriter{}
)

// SetProgressWriter replaces the progress writer for all operations. Pass
// nil to disable progress reporting.
func SetProgressWriter(pw ProgressWriter) {
	progressWriterMu.Lock()
	defer progressWriterMu.Unlock()
	if pw == nil {
		progressWriter = quietProgressWriter{}
	} else {
		progressWriter = pw
	}
}

func getProgressWriter() ProgressWriter {
	progressWriterMu.RLock()
	defer progressWriterMu.RUnlock()
	return progressWriter
}

type barProgressWriter struct{}

func (barProgressWriter) NewCountProgress(total int64, description string) Progress {
	return &progressBarWrapper{bar: progressbar.Default(total, description)}
}

func (barProgressWriter) NewBytesProgress(total int64, description string) Progress {
	return &progressBarWrapper{bar: progressbar.DefaultBytes(total, description)}
}

type progressBarWrapper struct {
	bar *progressbar.ProgressBar
}

func (p *progressBarWrapper) Write(data []byte) (int, error) {
	return p.bar.Write(data)
}

func (p *progressBarWrapper) Add(num int) {
	p.bar.Add(num)
}

func (p *progressBarWrapper) Close() error {
	return p.bar.Close()
}

type quietProgressWriter struct{}

func (quietProgressWriter) NewCountProgress(int64, string) Progress {
	return quietProgress{}
}

func (quietProgressWriter) NewBytesProgress(int64, string) Progress {
	return quietProgress{}
}

type quietProgress struct{}

func (quietProgress) Write(data []byte) (int, error) {
	return len(data), nil
}

func (quietProgress) Add(int) {}

func (quietProgress) Close() error {
	return nil
}
