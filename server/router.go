package server

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wfunc/rhythmserver/logger"
	"github.com/wfunc/rhythmserver/monitor"
	"github.com/wfunc/rhythmserver/network"
	"github.com/wfunc/rhythmserver/room"
	"github.com/wfunc/rhythmserver/session"
)

// Router hands inbound room messages to the room the session joined. The
// handler itself runs on the room goroutine.
type Router struct {
	rooms   *room.Manager
	monitor *monitor.Monitor
	tracer  trace.Tracer
}

func NewRouter(rooms *room.Manager, m *monitor.Monitor, tracer trace.Tracer) *Router {
	return &Router{rooms: rooms, monitor: m, tracer: tracer}
}

// Route queues packet on the session's room. It returns false when the room
// no longer exists, the caller should drop the connection then.
func (rt *Router) Route(ctx context.Context, sess *session.Session, packet *network.Packet) bool {
	name := network.MsgName(packet.MsgID)
	if rt.monitor != nil {
		rt.monitor.IncMessagesReceived(name)
	}

	if !room.Handles(packet.MsgID) {
		room.SendError(sess, room.ErrUnknownMessage)
		return true
	}

	r, ok := rt.rooms.GetRoom(sess.RoomID)
	if !ok {
		room.SendError(sess, room.ErrRoomNotFound)
		return false
	}

	_, span := rt.tracer.Start(ctx, "room."+name, trace.WithAttributes(
		attribute.Int64("room.id", r.ID),
		attribute.Int64("player.uid", sess.UserID),
		attribute.Int("message.id", int(packet.MsgID)),
	))
	received := time.Now()
	queued := r.Enqueue(func() {
		defer span.End()
		if err := r.Handle(sess, packet.MsgID, packet.Data); err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		if rt.monitor != nil {
			rt.monitor.ObserveMessageLatency(time.Since(received))
		}
	})
	if !queued {
		span.SetStatus(codes.Error, "room closed")
		span.End()
		logger.Log.Debugf("room %d closed, dropped %s from %s", r.ID, name, sess.ID)
		room.SendError(sess, room.ErrRoomNotFound)
	}
	return queued
}
