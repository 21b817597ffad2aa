package api

import (
	"context"
	"net/http"
	"time"

	"StockBrain/internal/domain/models"
	svcmetrics "StockBrain/internal/service/metrics"
	xhttp "StockBrain/pkg/http"
	xlogger "StockBrain/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPingPeriod = 30 * time.Second
	progressBuffer   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// StreamFrame is one websocket message: progress frames, then a report or an error.
type StreamFrame struct {
	Type     string                   `json:"type"`
	Status   int                      `json:"status,omitempty"`
	Progress *models.TrainingProgress `json:"progress,omitempty"`
	Report   *models.ForecastReport   `json:"report,omitempty"`
	Error    *xhttp.AppError          `json:"error,omitempty"`
}

// Stream trains while pushing progress over a websocket. Closing the socket
// cancels training.
func (h *ForecastHandler) Stream(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("stream upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()
	svcmetrics.StreamClients.Inc()
	defer svcmetrics.StreamClients.Dec()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// reader: only to notice the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	progress := make(chan models.TrainingProgress, progressBuffer)
	type outcome struct {
		report *models.ForecastReport
		err    error
	}
	done := make(chan outcome, 1)

	params := paramsFromRequest(req)
	params.OnProgress = func(p models.TrainingProgress) {
		select {
		case progress <- p:
		default: // slow client, drop the frame
		}
	}
	go func() {
		r, err := h.uc.ForecastSymbol(ctx, params)
		done <- outcome{r, err}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case p := <-progress:
			if err := writeFrame(conn, StreamFrame{Type: "progress", Progress: &p}); err != nil {
				return nil
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case out := <-done:
			for drained := false; !drained; {
				select {
				case p := <-progress:
					_ = writeFrame(conn, StreamFrame{Type: "progress", Progress: &p})
				default:
					drained = true
				}
			}
			frame := StreamFrame{Type: "report", Report: out.report}
			if out.err != nil {
				appErr := toAppError(out.err)
				frame = StreamFrame{Type: "error", Status: appErr.Status, Error: appErr}
			}
			_ = writeFrame(conn, frame)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(streamWriteWait))
			return nil
		}
	}
}

func writeFrame(conn *websocket.Conn, f StreamFrame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(f)
}
