package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studentdir/core/directory"
	"github.com/trezcool/studentdir/core/user"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = livePongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// tokens travel in the query, so any origin may connect
	CheckOrigin: func(r *http.Request) bool { return true },
}

// liveRequest is sent by clients to change the search or sort of the live directory.
type liveRequest struct {
	Search string `json:"search"`
	Sort   string `json:"sort"`
}

type liveError struct {
	Error string `json:"error"`
}

// live streams directory pages over a WebSocket. A page is pushed whenever the students change
// or the client sends a new liveRequest.
func (api *studentApi) live(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	params, err := bindBrowseParams(ctx)
	if err != nil {
		return err
	}

	ws, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return nil // the upgrader already replied
	}
	defer ws.Close()

	reqCtx, cancel := context.WithCancel(ctx.Request().Context())
	defer cancel()

	sub := api.dir.Watch(reqCtx, caller, params)
	defer sub.Close()

	requests := make(chan liveRequest)
	go api.readLive(reqCtx, cancel, ws, requests)

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()

	send := func(v interface{}) bool {
		_ = ws.SetWriteDeadline(time.Now().Add(liveWriteWait))
		return ws.WriteJSON(v) == nil
	}

	for {
		select {
		case <-reqCtx.Done():
			return nil
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return nil
			}
		case req := <-requests:
			key, err := directory.ParseSortKey(req.Sort)
			if err != nil {
				if !send(liveError{Error: err.Error()}) {
					return nil
				}
				continue
			}
			params = directory.BrowseParams{Search: req.Search, Sort: key}
			api.dir.Rewatch(sub, caller, params)
		case live, ok := <-sub.Results():
			if !ok {
				return nil
			}
			page, err := api.dir.BrowsePage(caller, params, live)
			if err != nil {
				api.logError("resolving live page", err, caller)
				if !send(liveError{Error: http.StatusText(http.StatusInternalServerError)}) {
					return nil
				}
				continue
			}
			if !send(page) {
				return nil
			}
		}
	}
}

// readLive forwards client requests until the connection fails, then cancels the stream.
func (api *studentApi) readLive(ctx context.Context, cancel context.CancelFunc, ws *websocket.Conn, requests chan<- liveRequest) {
	defer cancel()

	ws.SetReadLimit(4096)
	_ = ws.SetReadDeadline(time.Now().Add(livePongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(livePongWait))
	})
	for {
		var req liveRequest
		if err := ws.ReadJSON(&req); err != nil {
			return
		}
		select {
		case requests <- req:
		case <-ctx.Done():
			return
		}
	}
}

func (api *studentApi) logError(msg string, err error, caller user.Caller) {
	api.logger.Error(msg, errors.Wrap(err, msg), caller)
}
