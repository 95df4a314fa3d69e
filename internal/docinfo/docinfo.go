// Package docinfo reads the document information of PDFs: Info dictionary, version,
// page count and security settings.
package docinfo

import (
	"time"

	"github.com/johbar/pdf-info-service/pkg/pdfdate"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// Date is a value from the Info dictionary in display form.
// Time is nil if the value is not a (complete) PDF date.
type Date struct {
	Text string     `json:"text"`
	Time *time.Time `json:"time,omitempty"`
}

// Info is the document information of a PDF
type Info struct {
	Source     string            `json:"source,omitempty"`
	Version    string            `json:"version"`
	PageCount  int               `json:"pageCount"`
	Title      string            `json:"title,omitempty"`
	Subject    string            `json:"subject,omitempty"`
	Author     string            `json:"author,omitempty"`
	Keywords   string            `json:"keywords,omitempty"`
	Creator    string            `json:"creator,omitempty"`
	Producer   string            `json:"producer,omitempty"`
	Created    Date              `json:"created"`
	Modified   Date              `json:"modified"`
	Properties map[string]string `json:"properties,omitempty"`
	Linearized bool              `json:"linearized"`
	Tagged     bool              `json:"tagged"`
	Security   Security          `json:"security"`
}

// NewDate converts a raw Info dictionary value
func NewDate(codec pdfdate.Codec, raw string) Date {
	text, t, ok := codec.Parse(raw)
	d := Date{Text: text}
	if ok {
		d.Time = &t
	}
	return d
}

// FromPDFInfo builds Info from the raw Info dictionary entries in dict and pdfcpu's
// report on version, pages, flags and permissions.
// Every dictionary value is passed through codec, so custom properties holding dates are normalized as well.
func FromPDFInfo(pi *pdfcpu.PDFInfo, dict map[string]string, codec pdfdate.Codec) *Info {
	text := func(key string) string {
		t, _, _ := codec.Parse(dict[key])
		return t
	}
	info := &Info{
		Source:     pi.FileName,
		Version:    pi.Version,
		PageCount:  pi.PageCount,
		Title:      text("Title"),
		Subject:    text("Subject"),
		Author:     text("Author"),
		Keywords:   text("Keywords"),
		Creator:    text("Creator"),
		Producer:   text("Producer"),
		Created:    NewDate(codec, dict["CreationDate"]),
		Modified:   NewDate(codec, dict["ModDate"]),
		Linearized: pi.Linearized,
		Tagged:     pi.Tagged,
		Security:   SecurityFromPermissions(pi.Encrypted, pi.Permissions),
	}
	for k := range dict {
		if IsSystemKey(k) {
			continue
		}
		if info.Properties == nil {
			info.Properties = make(map[string]string)
		}
		info.Properties[k] = text(k)
	}
	return info
}

var systemKeys = []string{
	"Author",
	"CreationDate",
	"ModDate",
	"Creator",
	"Producer",
	"Title",
	"Subject",
	"Keywords",
	"Trapped",
}

// IsSystemKey reports whether key is one of the Info dictionary entries defined by the PDF standard
func IsSystemKey(key string) bool {
	for _, k := range systemKeys {
		if k == key {
			return true
		}
	}
	return false
}
