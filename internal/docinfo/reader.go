package docinfo

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/johbar/pdf-info-service/internal/config"
	"github.com/johbar/pdf-info-service/pkg/pdfdate"
	pdfcpuapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const pdfMimeType = "application/pdf"

var (
	ErrZeroSize   = errors.New("zero-length data can not be parsed")
	ErrTooLarge   = errors.New("file too large")
	ErrNotPDF     = errors.New("not a PDF")
	ErrUnreadable = errors.New("PDF could not be read")
)

// Reader reads document information from PDFs in memory, on disk or from streams
type Reader struct {
	MaxInMemoryBytes uint64
	MaxFileSizeBytes uint64
	Codec            pdfdate.Codec
	log              *slog.Logger
	pdfConf          *model.Configuration
}

func NewReader(pisconfig *config.PisConfig, logger *slog.Logger) *Reader {
	pdfConf := model.NewDefaultConfiguration()
	pdfConf.ValidationMode = model.ValidationRelaxed
	pdfConf.Cmd = model.LISTINFO
	r := &Reader{
		MaxInMemoryBytes: pisconfig.MaxInMemoryBytes,
		MaxFileSizeBytes: pisconfig.MaxFileSizeBytes,
		Codec:            pdfdate.Codec{Location: pisconfig.DateLocation},
		log:              logger,
		pdfConf:          pdfConf,
	}
	if logger == nil {
		r.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

func newTempFile(origin string) (*os.File, error) {
	dir := os.TempDir()
	var fileName string
	u, err := url.Parse(origin)
	if err != nil || u.Path == "" {
		fileName = "*-unknown"
	} else {
		fileName = "*-" + filepath.Base(u.Path)
	}
	return os.CreateTemp(dir, fileName)
}

// spool copies r to a temp file and returns its path. The file is removed on error.
func (r *Reader) spool(head []byte, rd io.Reader, origin string) (string, error) {
	f, err := newTempFile(origin)
	if err != nil {
		return "", fmt.Errorf("creating temp file for origin %s: %w", origin, err)
	}
	defer f.Close()
	r.log.Debug("Saving temporary file", "origin", origin, "path", f.Name())
	remaining := int64(r.MaxFileSizeBytes) - int64(len(head))
	if _, err = f.Write(head); err == nil {
		var n int64
		n, err = io.Copy(f, io.LimitReader(rd, remaining+1))
		if err == nil && n > remaining {
			err = ErrTooLarge
		}
	}
	if err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (r *Reader) fromTempFile(head []byte, rd io.Reader, origin string) (*Info, error) {
	path, err := r.spool(head, rd, origin)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			r.log.Error("could not remove temporary file", "err", err)
		} else {
			r.log.Debug("temporary file removed", "path", path)
		}
	}()
	return r.FromPath(path, origin)
}

func (r *Reader) handleUnknownSize(rd io.Reader, origin string) (*Info, error) {
	// HTTP chunked encoding or reading from stdin
	buf := make([]byte, r.MaxInMemoryBytes)
	r.log.Debug("Reading stream of unknown size", "origin", origin, "buf", len(buf))
	n, err := io.ReadFull(rd, buf)
	r.log.Debug("Finished reading first chunk from stream of unknown size", "bytes", n, "err", err)
	switch {
	case err == nil:
		// file is too large for holding it in memory
		return r.fromTempFile(buf, rd, origin)
	case errors.Is(err, io.EOF):
		return nil, ErrZeroSize
	case errors.Is(err, io.ErrUnexpectedEOF):
		return r.FromBytes(buf[:n], origin)
	}
	return nil, err
}

// FromStream reads the document information of a PDF from rd.
// A negative size means the size is unknown.
func (r *Reader) FromStream(rd io.Reader, size int64, origin string) (*Info, error) {
	if size > int64(r.MaxFileSizeBytes) {
		// file is too large for downloading
		return nil, ErrTooLarge
	}
	if size < 0 {
		return r.handleUnknownSize(rd, origin)
	}
	if size == 0 {
		return nil, ErrZeroSize
	}
	if size > int64(r.MaxInMemoryBytes) {
		r.log.Info("Saving file", "origin", origin, "size", humanize.Bytes(uint64(size)))
		return r.fromTempFile(nil, rd, origin)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(rd, data); err != nil {
		return nil, err
	}
	return r.FromBytes(data, origin)
}

// FromBytes reads the document information of the PDF in data
func (r *Reader) FromBytes(data []byte, origin string) (*Info, error) {
	if len(data) == 0 {
		return nil, ErrZeroSize
	}
	mtype := mimetype.Detect(data)
	r.log.Debug("Detected", "mimetype", mtype.String(), "origin", origin)
	if !mtype.Is(pdfMimeType) {
		return nil, fmt.Errorf("%w: detected %s in %s", ErrNotPDF, mtype.String(), origin)
	}
	return r.read(bytes.NewReader(data), origin)
}

// FromPath reads the document information of the PDF at path
func (r *Reader) FromPath(path, origin string) (*Info, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, err
	}
	r.log.Debug("Detected", "mimetype", mtype.String(), "origin", origin)
	if !mtype.Is(pdfMimeType) {
		return nil, fmt.Errorf("%w: detected %s in %s from %s", ErrNotPDF, mtype.String(), path, origin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return r.read(f, origin)
}

func (r *Reader) read(rs io.ReadSeeker, origin string) (*Info, error) {
	ctx, err := pdfcpuapi.ReadContext(rs, r.pdfConf)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, origin, err)
	}
	dict, err := r.infoDict(ctx.XRefTable, origin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, origin, err)
	}
	// pdfcpu's validation rewrites or rejects dates it can not parse; the raw entries are already in dict
	ctx.XRefTable.Info = nil
	if err := pdfcpuapi.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, origin, err)
	}
	pages, err := pdfcpuapi.PagesForPageSelection(ctx.PageCount, nil, true, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, origin, err)
	}
	pi, err := pdfcpu.Info(ctx, origin, pages)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, origin, err)
	}
	info := FromPDFInfo(pi, dict, r.Codec)
	info.Source = origin
	r.log.Debug("Read document info", "origin", origin, "version", info.Version, "pages", info.PageCount)
	return info, nil
}

// infoDict returns the text entries of the document's Info dictionary as they are stored in the file.
// Entries that are no (valid) text strings are skipped.
func (r *Reader) infoDict(xRefTable *model.XRefTable, origin string) (map[string]string, error) {
	dict := map[string]string{}
	if xRefTable.Info == nil {
		return dict, nil
	}
	d, err := xRefTable.DereferenceDict(*xRefTable.Info)
	if err != nil || d == nil {
		return dict, err
	}
	for k, v := range d {
		s, err := xRefTable.DereferenceStringOrHexLiteral(v, model.V10, nil)
		if err != nil {
			r.log.Debug("Skipping Info entry", "origin", origin, "key", k, "err", err)
			continue
		}
		if s == "" {
			continue
		}
		key, err := types.DecodeName(k)
		if err != nil {
			key = k
		}
		dict[key] = s
	}
	return dict, nil
}
