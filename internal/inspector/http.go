package inspector

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/johbar/pdf-info-service/internal/docinfo"
	"github.com/johbar/pdf-info-service/internal/report"
	"golang.org/x/text/language"
)

// RegisterRoutes adds the HTTP endpoints of the service to r
func (ins *Inspector) RegisterRoutes(r gin.IRoutes) {
	r.POST("/", ins.InspectBody)
	r.GET("/", ins.InspectRemote)
	r.HEAD("/", ins.InspectRemote)
	r.GET("/date", ins.ParseDateHandler)
}

// InspectBody returns the request body's document info.
// Returns a JSON encoded error message if the body is not a readable PDF.
func (ins *Inspector) InspectBody(c *gin.Context) {
	info, status, err := ins.InspectStream(c.Request.Body, c.Request.ContentLength, "POST request")
	if err != nil {
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
		return
	}
	ins.respond(c, info)
}

// InspectRemote returns the document info of the PDF referenced by the query param url
func (ins *Inspector) InspectRemote(c *gin.Context) {
	var params RequestParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	_, nocache := c.GetQuery("nocache")
	params.NoCache = params.NoCache || nocache
	info, status, err := ins.Inspect(c.Request.Context(), params)
	if err != nil {
		ins.log.Error("Inspect failed", "status", status, "err", err)
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
		return
	}
	ins.respond(c, info)
}

// ParseDateHandler returns the normalized form and timestamp of the query param value
func (ins *Inspector) ParseDateHandler(c *gin.Context) {
	c.JSON(http.StatusOK, ins.ParseDate(c.Query("value")))
}

// respond writes info as JSON or, with format=text, as localized text report
func (ins *Inspector) respond(c *gin.Context, info *docinfo.Info) {
	if c.Query("format") != "text" {
		c.JSON(http.StatusOK, info)
		return
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)
	if err := report.Write(c.Writer, info, ins.requestLang(c)); err != nil {
		ins.log.Error("Could not write report", "err", err)
	}
}

// requestLang picks the report language from the query param lang, the Accept-Language header
// or the configured default, in this order
func (ins *Inspector) requestLang(c *gin.Context) language.Tag {
	if l := c.Query("lang"); l != "" {
		if tag, err := language.Parse(l); err == nil {
			return tag
		}
	}
	if tags, _, err := language.ParseAcceptLanguage(c.GetHeader("Accept-Language")); err == nil && len(tags) > 0 {
		return tags[0]
	}
	return ins.lang
}
