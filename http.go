package raid

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/WelcomerTeam/Discord/discord"
	"github.com/WelcomerTeam/Raid-Daemon/pkg/accumulator"
	"github.com/WelcomerTeam/Raid-Daemon/raidjson"
	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	gotils_strconv "github.com/savsgio/gotils/strconv"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// RestResponse wraps every API response.
type RestResponse struct {
	Ok    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type Status struct {
	Version        string               `json:"version"`
	Identifier     string               `json:"identifier"`
	StartTime      time.Time            `json:"start_time"`
	Uptime         string               `json:"uptime"`
	Sessions       map[string]int       `json:"sessions"`
	SubMessages    int                  `json:"sub_messages"`
	EventsInflight int32                `json:"events_inflight"`
	Reactions      []accumulator.Sample `json:"reactions"`
	ReactionsTotal int64                `json:"reactions_total"`
}

func (c *Coordinator) Status() Status {
	sessions := make(map[string]int)
	for kind, count := range c.registry.CountByKind() {
		sessions[kind.String()] = count
	}

	reactions := c.ReactionSamples.Samples()

	return Status{
		Version:        Version,
		Identifier:     c.identifier(),
		StartTime:      c.StartTime,
		Uptime:         c.now().Sub(c.StartTime).Round(time.Second).String(),
		Sessions:       sessions,
		SubMessages:    c.registry.SubMessageCount(),
		EventsInflight: c.EventsInflight.Load(),
		Reactions:      reactions,
		ReactionsTotal: accumulator.Sum(reactions),
	}
}

// NewRouter returns the status API.
func (c *Coordinator) NewRouter() *router.Router {
	r := router.New()

	r.GET("/api/status", c.handleStatus)
	r.GET("/api/sessions", c.handleListSessions)
	r.POST("/api/sessions", c.handleCreateSession)
	r.GET("/api/sessions/{id}", c.handleGetSession)
	r.DELETE("/api/sessions/{id}", c.handleDeleteSession)

	if c.prometheusRegistry != nil {
		r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(c.prometheusRegistry, promhttp.HandlerOpts{})))
	} else {
		r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))
	}

	return r
}

// HandleRequest serves the API and logs every request.
func (c *Coordinator) HandleRequest() fasthttp.RequestHandler {
	handler := c.NewRouter().Handler

	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()

		defer func() {
			c.Logger.Info().Msgf("%s %s %s %d %s",
				ctx.RemoteAddr(),
				gotils_strconv.B2S(ctx.Request.Header.Method()),
				gotils_strconv.B2S(ctx.Request.URI().Path()),
				ctx.Response.StatusCode(),
				time.Since(start).Round(time.Microsecond))
		}()

		handler(ctx)
	}
}

func (c *Coordinator) ListenAndServe(host string) error {
	c.Logger.Info().Msgf("Serving http at %s", host)

	return fasthttp.ListenAndServe(host, c.HandleRequest())
}

func (c *Coordinator) handleStatus(ctx *fasthttp.RequestCtx) {
	writeResponse(ctx, fasthttp.StatusOK, RestResponse{Ok: true, Data: c.Status()})
}

func (c *Coordinator) handleListSessions(ctx *fasthttp.RequestCtx) {
	writeResponse(ctx, fasthttp.StatusOK, RestResponse{Ok: true, Data: c.Sessions()})
}

func (c *Coordinator) handleGetSession(ctx *fasthttp.RequestCtx) {
	id, ok := sessionIDParam(ctx)
	if !ok {
		return
	}

	view, err := c.Session(id)
	if err != nil {
		writeError(ctx, err)

		return
	}

	writeResponse(ctx, fasthttp.StatusOK, RestResponse{Ok: true, Data: view})
}

func (c *Coordinator) handleCreateSession(ctx *fasthttp.RequestCtx) {
	var event CreateSessionEvent
	if err := raidjson.Unmarshal(ctx.PostBody(), &event); err != nil {
		writeResponse(ctx, fasthttp.StatusBadRequest, RestResponse{Error: err.Error()})

		return
	}

	view, err := c.CreateSession(ctx, event)
	if err != nil {
		writeError(ctx, err)

		return
	}

	if err := c.publish(ctx, RaidEventRender, view, make(Trace)); err != nil {
		c.Logger.Warn().Err(err).Msg("Failed to publish created session")
	}

	writeResponse(ctx, fasthttp.StatusCreated, RestResponse{Ok: true, Data: view})
}

func (c *Coordinator) handleDeleteSession(ctx *fasthttp.RequestCtx) {
	id, ok := sessionIDParam(ctx)
	if !ok {
		return
	}

	closed, ok := c.DeleteSession(id)
	if !ok {
		writeError(ctx, ErrSessionNotFound)

		return
	}

	if len(closed.MessageIDs) > 0 {
		if err := c.publish(context.Background(), RaidEventClose, closed, make(Trace)); err != nil {
			c.Logger.Warn().Err(err).Msg("Failed to publish closed sub-messages")
		}
	}

	writeResponse(ctx, fasthttp.StatusOK, RestResponse{Ok: true, Data: closed})
}

func sessionIDParam(ctx *fasthttp.RequestCtx) (discord.Snowflake, bool) {
	raw, _ := ctx.UserValue("id").(string)

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeResponse(ctx, fasthttp.StatusBadRequest, RestResponse{Error: "invalid session id"})

		return 0, false
	}

	return discord.Snowflake(id), true
}

func writeError(ctx *fasthttp.RequestCtx, err error) {
	status := fasthttp.StatusBadRequest

	switch {
	case errors.Is(err, ErrSessionNotFound):
		status = fasthttp.StatusNotFound
	case errors.Is(err, ErrSessionExists):
		status = fasthttp.StatusConflict
	}

	writeResponse(ctx, status, RestResponse{Error: err.Error()})
}

func writeResponse(ctx *fasthttp.RequestCtx, status int, response RestResponse) {
	data, err := raidjson.Marshal(response)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)

		return
	}

	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(data)
}
