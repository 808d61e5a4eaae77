package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"BoltX/internal/domain/models"
	"BoltX/internal/service/metrics"
	"BoltX/internal/usecase"
	xhttp "BoltX/pkg/http"
	xlogger "BoltX/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// StreamConfig controls the websocket push loop.
type StreamConfig struct {
	Interval     time.Duration
	WriteTimeout time.Duration
}

// StreamMessage is one frame pushed to a stream client.
type StreamMessage struct {
	Type   string             `json:"type"` // prediction or error
	Result *models.RiskResult `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// RiskStream re-evaluates the session every interval and pushes the first
// prediction and every later one flagged as an update. Repeated errors are sent once.
func (h *RiskEchoHandler) RiskStream(c echo.Context) error {
	const endpoint = "risk_stream"

	req := &models.RiskStreamRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.EndpointErrors.WithLabelValues(endpoint, "400").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	id := identityFrom(c)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	go discardReads(conn, cancel)

	ticker := time.NewTicker(h.stream.Interval)
	defer ticker.Stop()

	var (
		sent    bool
		lastErr string
	)
	for {
		msg, ok := h.nextFrame(ctx, id.CustomerID, req.SessionID, sent)
		if ok && msg.Error != "" && msg.Error == lastErr {
			ok = false
		}
		if ok {
			if err := h.write(conn, msg); err != nil {
				h.logger.Debug("stream closed", xlogger.String("session_id", req.SessionID), xlogger.Error(err))
				return nil
			}
			lastErr = msg.Error
			if msg.Result != nil {
				sent = true
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// nextFrame evaluates once and reports whether the result should be pushed.
func (h *RiskEchoHandler) nextFrame(ctx context.Context, customerID, sessionID string, sent bool) (StreamMessage, bool) {
	res, err := h.risk.Evaluate(ctx, customerID, sessionID)
	switch {
	case err == nil:
		if !sent || res.HasUpdate {
			return StreamMessage{Type: "prediction", Result: res}, true
		}
		return StreamMessage{}, false
	case errors.Is(err, usecase.ErrSessionNotFound):
		return StreamMessage{Type: "error", Error: "checkout session not found"}, true
	case ctx.Err() != nil:
		return StreamMessage{}, false
	default:
		h.logger.Error("stream evaluate", xlogger.String("session_id", sessionID), xlogger.Error(err))
		return StreamMessage{Type: "error", Error: "internal error"}, true
	}
}

func (h *RiskEchoHandler) write(conn *websocket.Conn, msg StreamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(h.stream.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

// discardReads drains client frames so control messages are processed, and
// cancels the stream once the client goes away.
func discardReads(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
