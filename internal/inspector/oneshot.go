package inspector

import (
	"context"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/johbar/pdf-info-service/internal/docinfo"
	"github.com/johbar/pdf-info-service/internal/report"
)

// PrintInfo writes the document info of src to w, either as text report or as indented JSON.
// src can be a local path or a remote (http/https) URL. When src is "-", the file will be read from stdin
func (ins *Inspector) PrintInfo(ctx context.Context, w io.Writer, stdin io.Reader, src string, asJSON bool) error {
	var (
		info *docinfo.Info
		err  error
	)
	switch {
	case strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://"):
		info, _, err = ins.Inspect(ctx, RequestParams{Url: src, NoCache: true})
	case src == "-":
		info, _, err = ins.InspectStream(stdin, -1, "stdin")
	default:
		info, err = ins.reader.FromPath(src, src)
	}
	if err != nil {
		ins.log.Error("Could not process document", "src", src, "err", err)
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	return report.Write(w, info, ins.lang)
}
