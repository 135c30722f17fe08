package drawings

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"nrm-schedules/internal/metrics"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/semaphore"
)

var (
	ErrNotPDF   = errors.New("file is not a .pdf file")
	ErrEmptyPDF = errors.New("pdf has no pages")
	ErrTooLarge = errors.New("pdf is too large")
	ErrBadPDF   = errors.New("pdf could not be read")
)

// pageAttempts bounds retries of a failed page extraction.
const pageAttempts = 3

// Page is a single-page PDF cut from an uploaded drawing set.
type Page struct {
	Number int
	Name   string
	Data   []byte
}

// Splitter cuts PDFs into one file per page. The PDF library is not safe to
// drive from many goroutines at once, so at most `workers` splits run together.
type Splitter struct {
	sem *semaphore.Weighted
}

func NewSplitter(workers int64) *Splitter {
	if workers <= 0 {
		workers = 2
	}
	return &Splitter{sem: semaphore.NewWeighted(workers)}
}

func ValidatePDF(fileName string, size int64, maxBytes int64) error {
	if !strings.EqualFold(filepath.Ext(fileName), ".pdf") {
		return ErrNotPDF
	}
	if size <= 0 {
		return ErrEmptyPDF
	}
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, maxBytes)
	}
	return nil
}

func (s *Splitter) Split(ctx context.Context, fileName string, data []byte) ([]Page, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)
	metrics.PDFSplitsActive.Inc()
	defer metrics.PDFSplitsActive.Dec()

	rs := bytes.NewReader(data)
	count, err := api.PageCount(rs, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPDF, err)
	}
	if count == 0 {
		return nil, ErrEmptyPDF
	}

	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	pages := make([]Page, 0, count)
	for n := 1; n <= count; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := extractPage(rs, n)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrBadPDF, n, err)
		}
		pages = append(pages, Page{
			Number: n,
			Name:   fmt.Sprintf("%s_page_%d.pdf", base, n),
			Data:   data,
		})
	}
	return pages, nil
}

func extractPage(rs io.ReadSeeker, n int) ([]byte, error) {
	var err error
	for attempt := 1; attempt <= pageAttempts; attempt++ {
		if _, err = rs.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err = api.Trim(rs, &buf, []string{strconv.Itoa(n)}, nil); err == nil {
			return buf.Bytes(), nil
		}
	}
	return nil, err
}
