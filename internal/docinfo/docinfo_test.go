package docinfo

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/johbar/pdf-info-service/internal/config"
	"github.com/johbar/pdf-info-service/pkg/pdfdate"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// minimalPdf returns a single page PDF 1.4 with the given Info dictionary entries
func minimalPdf(info string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>",
		"<< " + info + " >>",
	}
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objects)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R /Info 4 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return b.Bytes()
}

const testInfo = "/Title (Quarterly Report) /Author (Jane Doe) /CreationDate (D:20240419110302+02'00') " +
	"/ModDate (D:2024) /Department (Research) /Reviewed (D:20240501)"

func newTestReader(t *testing.T) *Reader {
	t.Helper()
	conf, err := config.NewPisConfigFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	conf.DateLocation = time.UTC
	return NewReader(conf, nil)
}

func TestFromBytes(t *testing.T) {
	r := newTestReader(t)
	info, err := r.FromBytes(minimalPdf(testInfo), "test.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if info.Source != "test.pdf" {
		t.Errorf("Source = %q", info.Source)
	}
	if info.Version != "1.4" {
		t.Errorf("Version = %q, want 1.4", info.Version)
	}
	if info.PageCount != 1 {
		t.Errorf("PageCount = %d, want 1", info.PageCount)
	}
	if info.Title != "Quarterly Report" || info.Author != "Jane Doe" {
		t.Errorf("Title, Author = %q, %q", info.Title, info.Author)
	}
	if info.Created.Text != "2024/04/19 11:03:02 +02:00" {
		t.Errorf("Created = %q", info.Created.Text)
	}
	if info.Created.Time == nil || !info.Created.Time.Equal(time.Date(2024, 4, 19, 9, 3, 2, 0, time.UTC)) {
		t.Errorf("Created.Time = %v", info.Created.Time)
	}
	if info.Modified.Text != "2024" || info.Modified.Time != nil {
		t.Errorf("Modified = %+v", info.Modified)
	}
	if info.Properties["Department"] != "Research" {
		t.Errorf("Properties = %v", info.Properties)
	}
	if info.Properties["Reviewed"] != "2024/05/01" {
		t.Errorf("Properties = %v", info.Properties)
	}
	if info.Security.Encrypted || !info.Security.Print {
		t.Errorf("Security = %+v", info.Security)
	}
}

func TestFromBytesRejectsOtherTypes(t *testing.T) {
	r := newTestReader(t)
	_, err := r.FromBytes([]byte("just some plain text, definitely not a PDF"), "test.txt")
	if !errors.Is(err, ErrNotPDF) {
		t.Errorf("want ErrNotPDF, got %v", err)
	}
	if _, err := r.FromBytes(nil, "empty"); !errors.Is(err, ErrZeroSize) {
		t.Errorf("want ErrZeroSize, got %v", err)
	}
}

func TestFromBytesBrokenPdf(t *testing.T) {
	r := newTestReader(t)
	_, err := r.FromBytes([]byte("%PDF-1.4\nthis is where the objects should be\n"), "broken.pdf")
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("want ErrUnreadable, got %v", err)
	}
}

func TestFromStream(t *testing.T) {
	data := minimalPdf(testInfo)
	tests := []struct {
		name        string
		size        int64
		maxInMemory uint64
	}{
		{"known_size_in_memory", int64(len(data)), 10_000_000},
		{"known_size_temp_file", int64(len(data)), 16},
		{"unknown_size_in_memory", -1, 10_000_000},
		{"unknown_size_temp_file", -1, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestReader(t)
			r.MaxInMemoryBytes = tt.maxInMemory
			info, err := r.FromStream(bytes.NewReader(data), tt.size, "stream.pdf")
			if err != nil {
				t.Fatal(err)
			}
			if info.Title != "Quarterly Report" {
				t.Errorf("Title = %q", info.Title)
			}
		})
	}
}

func TestFromStreamLimits(t *testing.T) {
	r := newTestReader(t)
	r.MaxInMemoryBytes = 8
	r.MaxFileSizeBytes = 16
	big := strings.Repeat("x", 32)
	tests := []struct {
		name string
		rd   io.Reader
		size int64
		want error
	}{
		{"zero_size", strings.NewReader(""), 0, ErrZeroSize},
		{"empty_unknown_size", strings.NewReader(""), -1, ErrZeroSize},
		{"known_size_too_large", strings.NewReader(big), int64(len(big)), ErrTooLarge},
		{"unknown_size_too_large", strings.NewReader(big), -1, ErrTooLarge},
		{"unknown_size_not_pdf", strings.NewReader("plain text"), -1, ErrNotPDF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.FromStream(tt.rd, tt.size, tt.name)
			if !errors.Is(err, tt.want) {
				t.Errorf("FromStream() err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFromBytesDates(t *testing.T) {
	r := newTestReader(t)
	tests := []struct {
		name     string
		raw      string
		wantText string
		want     *time.Time
	}{
		{"malformed", "yesterday", "yesterday", nil},
		{"malformed_with_prefix", "D:2005/03/15", "2005", nil},
		{"partial", "D:200503", "2005/03", nil},
		{"year_only", "D:2024", "2024", nil},
		{"impossible_day", "D:20050231", "2005/02/31", nil},
		{"without_offset", "D:20050315143000", "2005/03/15 14:30:00", ptr(time.Date(2005, 3, 15, 14, 30, 0, 0, time.UTC))},
		{"with_offset", "D:20050315143000-05'00'", "2005/03/15 14:30:00 -05:00", ptr(time.Date(2005, 3, 15, 19, 30, 0, 0, time.UTC))},
	}
	for _, key := range []string{"CreationDate", "ModDate"} {
		for _, tt := range tests {
			t.Run(key+"/"+tt.name, func(t *testing.T) {
				info, err := r.FromBytes(minimalPdf("/Title (T) /"+key+" ("+tt.raw+")"), "dates.pdf")
				if err != nil {
					t.Fatal(err)
				}
				got := info.Created
				if key == "ModDate" {
					got = info.Modified
				}
				if got.Text != tt.wantText {
					t.Errorf("Text = %q, want %q", got.Text, tt.wantText)
				}
				switch {
				case tt.want == nil && got.Time != nil:
					t.Errorf("Time = %v, want none", got.Time)
				case tt.want != nil && (got.Time == nil || !got.Time.Equal(*tt.want)):
					t.Errorf("Time = %v, want %v", got.Time, tt.want)
				}
				if info.Title != "T" {
					t.Errorf("Title = %q", info.Title)
				}
			})
		}
	}
}

func TestFromBytesHexStrings(t *testing.T) {
	r := newTestReader(t)
	info, err := r.FromBytes(minimalPdf("/Title <FEFF00480069> /Checked <443A3230303530333135>"), "hex.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if info.Title != "Hi" {
		t.Errorf("Title = %q, want Hi", info.Title)
	}
	if info.Properties["Checked"] != "2005/03/15" {
		t.Errorf("Properties = %v", info.Properties)
	}
}

func ptr[T any](v T) *T {
	return &v
}

func TestFromPDFInfo(t *testing.T) {
	pi := &pdfcpu.PDFInfo{
		FileName:   "in.pdf",
		Version:    "1.7",
		PageCount:  3,
		Linearized: true,
		Encrypted:  true,
		// pdfcpu's own view of the Info dictionary is not used
		Title:            "from pdfcpu",
		ModificationDate: "D:20240101000000+00'00'",
		Permissions:      -3904 | permPrint | permCopy,
	}
	dict := map[string]string{
		"Title":        "T",
		"Keywords":     "a, b",
		"CreationDate": "D:20050315143000-05'00'",
		"ModDate":      "yesterday",
		"Trapped":      "True",
		"Custom":       "D:20050315",
	}
	codec := pdfdate.Codec{Location: time.UTC}
	created := time.Date(2005, 3, 15, 19, 30, 0, 0, time.UTC)
	want := &Info{
		Source:     "in.pdf",
		Version:    "1.7",
		PageCount:  3,
		Title:      "T",
		Keywords:   "a, b",
		Created:    Date{Text: "2005/03/15 14:30:00 -05:00"},
		Modified:   Date{Text: "yesterday"},
		Properties: map[string]string{"Custom": "2005/03/15"},
		Linearized: true,
		Security: Security{
			Encrypted:   true,
			Print:       true,
			Copy:        true,
			Permissions: -3904 | permPrint | permCopy,
		},
	}
	got := FromPDFInfo(pi, dict, codec)
	if got.Created.Time == nil || !got.Created.Time.Equal(created) {
		t.Errorf("Created.Time = %v, want %v", got.Created.Time, created)
	}
	got.Created.Time = nil
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FromPDFInfo() = %+v, want %+v", got, want)
	}
}

func TestSecurityFromPermissions(t *testing.T) {
	all := SecurityFromPermissions(false, 0)
	if all.Encrypted || !all.Print || !all.Modify || !all.Copy || !all.Annotate || !all.Assemble || !all.PrintHighQ {
		t.Errorf("unencrypted documents should allow everything, got %+v", all)
	}
	// -61 clears bits 3 to 6 only
	restricted := SecurityFromPermissions(true, -61)
	if restricted.Print || restricted.Modify || restricted.Copy || restricted.Annotate {
		t.Errorf("want print, modify, copy and annotate denied, got %+v", restricted)
	}
	if !restricted.FillForms || !restricted.Extract || !restricted.Assemble || !restricted.PrintHighQ {
		t.Errorf("want the remaining permissions allowed, got %+v", restricted)
	}
}

func TestIsSystemKey(t *testing.T) {
	if !IsSystemKey("Trapped") || !IsSystemKey("ModDate") {
		t.Error("expected system key")
	}
	if IsSystemKey("Department") || IsSystemKey("title") {
		t.Error("expected custom key")
	}
}
