package inspector

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
)

const queueGroup = "pdf-info-service"

// RegisterNatsService exposes Inspect and ParseDate as NATS micro service endpoints
func (ins *Inspector) RegisterNatsService(nc *nats.Conn) (micro.Service, error) {
	infoService, err := micro.AddService(nc, micro.Config{
		Name:        "pdf-info",
		Version:     "1.0.0",
		Description: "Returns the document information of PDFs: metadata, dates and permissions",
	})
	if err != nil {
		return nil, err
	}
	err = infoService.AddEndpoint("inspect-remote",
		micro.HandlerFunc(ins.handleUrl),
		micro.WithEndpointQueueGroup(queueGroup))
	if err != nil {
		return nil, err
	}
	err = infoService.AddEndpoint("parse-date",
		micro.HandlerFunc(ins.handleDate),
		micro.WithEndpointQueueGroup(queueGroup))
	if err != nil {
		return nil, err
	}
	return infoService, nil
}

// handleUrl replies to a NATS request with the JSON encoded document info
func (ins *Inspector) handleUrl(req micro.Request) {
	var params RequestParams
	if err := json.Unmarshal(req.Data(), &params); err != nil {
		req.Error("invalid_params", err.Error(), nil)
		return
	}
	ins.log.Info("Received NATS request", "params", params)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	info, _, err := ins.Inspect(ctx, params)
	if err != nil {
		req.Error("failed", err.Error(), nil)
		return
	}
	ins.respondJSON(req, info)
}

// handleDate replies with the parsed form of the PDF date in the request payload
func (ins *Inspector) handleDate(req micro.Request) {
	ins.respondJSON(req, ins.ParseDate(string(req.Data())))
}

func (ins *Inspector) respondJSON(req micro.Request, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		req.Error("encoding", err.Error(), nil)
		return
	}
	if err := req.Respond(data, micro.WithHeaders(micro.Headers{"Content-Type": {"application/json"}})); err != nil {
		ins.log.Error("Could not respond to NATS request", "err", err)
	}
}
