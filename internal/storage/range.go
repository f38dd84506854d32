package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// byteRange is a parsed "bytes=<start>-<end>" header with either bound
// optional. A nil pair means the request asked for the full content.
type byteRange struct {
	start *int64
	end   *int64
}

// parseRange parses a Range header value. Anything malformed degrades to the
// full-content request rather than an error.
func parseRange(header string) byteRange {
	var r byteRange
	spec, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok {
		return r
	}
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return r
	}
	start, okStart := parseBound(parts[0])
	end, okEnd := parseBound(parts[1])
	if !okStart || !okEnd {
		return r
	}
	r.start, r.end = start, end
	return r
}

// parseBound returns (nil, true) for an empty bound, (value, true) for a
// well-formed one and (nil, false) for garbage.
func parseBound(s string) (*int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return nil, false
	}
	return &v, true
}

func (r byteRange) partial() bool { return r.start != nil || r.end != nil }

// servedLength computes how many bytes the response carries. An end-only
// range deliberately means "the first end+1 bytes", not the RFC 7233 suffix
// ("last N bytes") reading; see the range responder tests.
func (r byteRange) servedLength(total int64) int64 {
	switch {
	case r.start != nil && r.end != nil:
		return *r.end + 1 - *r.start
	case r.start != nil:
		return total - *r.start
	case r.end != nil:
		return *r.end + 1
	default:
		return total
	}
}

func (r byteRange) offset() int64 {
	if r.start != nil {
		return *r.start
	}
	return 0
}

func (r byteRange) contentRange(total int64) string {
	first := int64(0)
	if r.start != nil {
		first = *r.start
	}
	last := total - 1
	if r.end != nil {
		last = *r.end
	}
	return fmt.Sprintf("bytes %d-%d/%d", first, last, total)
}

// writeRangeResponse writes the status/header/body contract for a blob of
// the given total length. HEAD requests are answered from the catalog alone
// and never call read. For GET, read must return exactly the requested
// window; a short read is a fatal I/O error for the request.
func writeRangeResponse(w http.ResponseWriter, method, rangeHeader, mimeType string, total int64, read func(offset, length int64) ([]byte, error)) error {
	if method == http.MethodHead {
		w.Header().Set("accept-ranges", "bytes")
		w.Header().Set("content-length", strconv.FormatInt(total, 10))
		w.WriteHeader(http.StatusOK)
		return nil
	}

	rng := parseRange(rangeHeader)
	served := rng.servedLength(total)
	if served < 0 || rng.offset() > total {
		return fmt.Errorf("storage: invalid byte window %q for length %d", rangeHeader, total)
	}

	// read before touching the response: a failed read must leave the writer
	// pristine so the caller can still send its own error response
	body, err := read(rng.offset(), served)
	if err != nil {
		return fmt.Errorf("storage: read window: %w", err)
	}

	w.Header().Set("content-type", mimeType)
	w.Header().Set("content-length", strconv.FormatInt(served, 10))
	status := http.StatusOK
	if rng.partial() {
		status = http.StatusPartialContent
		w.Header().Set("accept-ranges", "bytes")
		w.Header().Set("content-range", rng.contentRange(total))
	}
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}

// RangeFileResponse serves a stored blob honoring an optional Range header.
// HEAD responses carry the total length and never open the content stream.
func (s *Service) RangeFileResponse(ctx context.Context, w http.ResponseWriter, method, rangeHeader string, fileID primitive.ObjectID, mimeType string) error {
	if method == http.MethodHead {
		total, err := s.fileLength(ctx, fileID)
		if err != nil {
			return err
		}
		return writeRangeResponse(w, method, rangeHeader, mimeType, total, nil)
	}

	stream, err := s.bucket.OpenDownloadStream(fileID)
	if err != nil {
		return fmt.Errorf("storage: open download stream: %w", err)
	}
	defer stream.Close()

	total := stream.GetFile().Length
	read := func(offset, length int64) ([]byte, error) {
		if offset > 0 {
			if _, err := stream.Skip(offset); err != nil {
				return nil, err
			}
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(stream, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}
	return writeRangeResponse(w, method, rangeHeader, mimeType, total, read)
}
