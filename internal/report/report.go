// Package report renders document information as a human readable, localized text report.
package report

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"unicode"

	"github.com/johbar/pdf-info-service/internal/docinfo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const missing = "-"

var german = map[string]string{
	"Document":               "Dokument",
	"Security":               "Sicherheit",
	"Source:":                "Quelle:",
	"Title:":                 "Titel:",
	"Subject:":               "Thema:",
	"Author:":                "Autor:",
	"Keywords:":              "Stichwörter:",
	"Creator:":               "Erstellt mit:",
	"Producer:":              "Erzeugt von:",
	"Created:":               "Erstellt:",
	"Modified:":              "Geändert:",
	"Version:":               "Version:",
	"Pages:":                 "Seiten:",
	"Linearized:":            "Linearisiert:",
	"Tagged:":                "Getaggt:",
	"Encrypted:":             "Verschlüsselt:",
	"Printing:":              "Drucken:",
	"Editing:":               "Bearbeiten:",
	"Copy & paste:":          "Kopieren & Einfügen:",
	"Annotations:":           "Kommentare:",
	"Filling forms:":         "Formulare ausfüllen:",
	"Accessibility:":         "Barrierefreiheit:",
	"Assembly:":              "Zusammenstellen:",
	"High quality printing:": "Hochwertiges Drucken:",
	"Yes":                    "Ja",
	"No":                     "Nein",
	"Allowed":                "Erlaubt",
	"Denied":                 "Verweigert",
}

func init() {
	for key, msg := range german {
		if err := message.SetString(language.German, key, msg); err != nil {
			panic(err)
		}
	}
}

type pair struct {
	label string
	value string
}

// Write writes info as two aligned columns, labels translated to lang.
// Unknown languages fall back to English.
func Write(w io.Writer, info *docinfo.Info, lang language.Tag) error {
	p := message.NewPrinter(lang)
	yesNo := func(b bool) string {
		if b {
			return p.Sprintf("Yes")
		}
		return p.Sprintf("No")
	}
	allowed := func(b bool) string {
		if b {
			return p.Sprintf("Allowed")
		}
		return p.Sprintf("Denied")
	}

	document := []pair{
		{p.Sprintf("Title:"), info.Title},
		{p.Sprintf("Subject:"), info.Subject},
		{p.Sprintf("Author:"), info.Author},
		{p.Sprintf("Keywords:"), info.Keywords},
		{p.Sprintf("Creator:"), info.Creator},
		{p.Sprintf("Producer:"), info.Producer},
		{p.Sprintf("Created:"), info.Created.Text},
		{p.Sprintf("Modified:"), info.Modified.Text},
	}
	if info.Source != "" {
		document = append([]pair{{p.Sprintf("Source:"), info.Source}}, document...)
	}
	keys := make([]string, 0, len(info.Properties))
	for k := range info.Properties {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		document = append(document, pair{k + ":", info.Properties[k]})
	}
	document = append(document,
		pair{p.Sprintf("Version:"), info.Version},
		pair{p.Sprintf("Pages:"), fmt.Sprint(info.PageCount)},
		pair{p.Sprintf("Linearized:"), yesNo(info.Linearized)},
		pair{p.Sprintf("Tagged:"), yesNo(info.Tagged)},
	)

	sec := info.Security
	security := []pair{
		{p.Sprintf("Encrypted:"), yesNo(sec.Encrypted)},
		{p.Sprintf("Printing:"), allowed(sec.Print)},
		{p.Sprintf("Editing:"), allowed(sec.Modify)},
		{p.Sprintf("Copy & paste:"), allowed(sec.Copy)},
		{p.Sprintf("Annotations:"), allowed(sec.Annotate)},
		{p.Sprintf("Filling forms:"), allowed(sec.FillForms)},
		{p.Sprintf("Accessibility:"), allowed(sec.Extract)},
		{p.Sprintf("Assembly:"), allowed(sec.Assemble)},
		{p.Sprintf("High quality printing:"), allowed(sec.PrintHighQ)},
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	writeSection(tw, p.Sprintf("Document"), document)
	fmt.Fprintln(tw)
	writeSection(tw, p.Sprintf("Security"), security)
	return tw.Flush()
}

func writeSection(w io.Writer, title string, pairs []pair) {
	fmt.Fprintln(w, title)
	for _, kv := range pairs {
		v := singleLine(kv.value)
		if v == "" {
			v = missing
		}
		fmt.Fprintf(w, "  %s\t%s\n", singleLine(kv.label), v)
	}
}

// singleLine replaces control characters, which would break the column layout, with spaces
func singleLine(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}
