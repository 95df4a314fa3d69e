package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/johbar/pdf-info-service/internal/docinfo"
	"golang.org/x/text/language"
)

// lines returns the report's lines with runs of whitespace collapsed
func lines(s string) map[string]bool {
	result := make(map[string]bool)
	for _, l := range strings.Split(s, "\n") {
		result[strings.Join(strings.Fields(l), " ")] = true
	}
	return result
}

func testInfo() *docinfo.Info {
	return &docinfo.Info{
		Version:    "1.7",
		PageCount:  12,
		Title:      "Quarterly Report",
		Created:    docinfo.Date{Text: "2005/03/15 14:30:00 -05:00"},
		Properties: map[string]string{"Department": "Research", "Approved": "2005/04/01"},
		Linearized: true,
		Security:   docinfo.SecurityFromPermissions(true, -61),
	}
}

func TestWrite(t *testing.T) {
	var b bytes.Buffer
	if err := Write(&b, testInfo(), language.English); err != nil {
		t.Fatal(err)
	}
	got := lines(b.String())
	for _, want := range []string{
		"Document",
		"Title: Quarterly Report",
		"Subject: -",
		"Created: 2005/03/15 14:30:00 -05:00",
		"Modified: -",
		"Department: Research",
		"Version: 1.7",
		"Pages: 12",
		"Linearized: Yes",
		"Tagged: No",
		"Security",
		"Encrypted: Yes",
		"Printing: Denied",
		"Copy & paste: Denied",
		"Filling forms: Allowed",
	} {
		if !got[want] {
			t.Errorf("missing line %q in report:\n%s", want, b.String())
		}
	}
	if got["Source: -"] {
		t.Error("source should be omitted when unknown")
	}
	out := b.String()
	if strings.Index(out, "Approved:") > strings.Index(out, "Department:") {
		t.Error("custom properties should be sorted by key")
	}
}

func TestWriteGerman(t *testing.T) {
	var b bytes.Buffer
	info := testInfo()
	info.Source = "report.pdf"
	if err := Write(&b, info, language.German); err != nil {
		t.Fatal(err)
	}
	got := lines(b.String())
	for _, want := range []string{
		"Dokument",
		"Quelle: report.pdf",
		"Titel: Quarterly Report",
		"Linearisiert: Ja",
		"Sicherheit",
		"Drucken: Verweigert",
		"Formulare ausfüllen: Erlaubt",
	} {
		if !got[want] {
			t.Errorf("missing line %q in report:\n%s", want, b.String())
		}
	}
}

func TestWriteUnknownLanguageFallsBackToEnglish(t *testing.T) {
	var b bytes.Buffer
	if err := Write(&b, testInfo(), language.Japanese); err != nil {
		t.Fatal(err)
	}
	if !lines(b.String())["Printing: Denied"] {
		t.Errorf("expected english labels, got:\n%s", b.String())
	}
}

func TestWriteControlCharacters(t *testing.T) {
	var b bytes.Buffer
	info := testInfo()
	info.Title = "Quarterly\r\nReport"
	info.Properties["Notes"] = "first\tsecond\nthird"
	info.Properties["Odd\tKey"] = "value"
	if err := Write(&b, info, language.English); err != nil {
		t.Fatal(err)
	}
	got := lines(b.String())
	for _, want := range []string{
		"Title: Quarterly Report",
		"Notes: first second third",
		"Odd Key: value",
		"Version: 1.7",
	} {
		if !got[want] {
			t.Errorf("missing line %q in report:\n%s", want, b.String())
		}
	}
	for _, l := range strings.Split(b.String(), "\n") {
		if strings.HasPrefix(l, "third") || strings.HasPrefix(l, "Report") {
			t.Errorf("value spans several lines:\n%s", b.String())
		}
	}
}
