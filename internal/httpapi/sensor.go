package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/calmbridge/internal/coach"
	"github.com/danielpatrickdp/calmbridge/internal/observability"
	"github.com/danielpatrickdp/calmbridge/internal/signals"
)

const (
	sensorWriteWait = 5 * time.Second
	sensorReadLimit = 512
)

// handleSensor streams calmness readings into a session. The client sends
// {"calmness": n}; each reading is applied as set_calmness from the sensor
// source and answered with the resulting view. The current view is sent on
// connect.
func (s *Server) handleSensor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()

	view, err := s.sessions.Get(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied
		return
	}
	defer conn.Close()
	conn.SetReadLimit(sensorReadLimit)

	log := observability.LoggerFromContext(ctx, s.logger).With(zap.String("session_id", id))
	log.Info("sensor connected")

	if err := writeSocketJSON(conn, view); err != nil {
		return
	}

	for {
		var reading sensorReading
		if err := conn.ReadJSON(&reading); err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) || errors.Is(err, websocket.ErrCloseSent) {
				log.Info("sensor disconnected")
			} else {
				log.Debug("sensor read ended", zap.Error(err))
			}
			return
		}
		if reading.Calmness == nil {
			if err := writeSocketJSON(conn, errorResponse{Error: "calmness is required"}); err != nil {
				return
			}
			continue
		}

		view, err := s.sessions.Apply(ctx, id, coach.SetCalmness(*reading.Calmness, signals.SourceSensor))
		var reply any = view
		if err != nil {
			log.Warn("sensor reading rejected", zap.Error(err))
			reply = errorResponse{Error: err.Error()}
		}
		if err := writeSocketJSON(conn, reply); err != nil {
			return
		}
	}
}

func writeSocketJSON(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(sensorWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}
