package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/wfunc/rhythmserver/logger"
	"github.com/wfunc/rhythmserver/models"
	"github.com/wfunc/rhythmserver/network"
	"github.com/wfunc/rhythmserver/room"
	"github.com/wfunc/rhythmserver/services"
	"github.com/wfunc/rhythmserver/session"
)

// rejection is a handshake failure, Message goes to the client.
type rejection struct {
	Message string
}

func (e *rejection) Error() string { return e.Message }

var (
	errOutdatedClient = &rejection{"Update the game to use multiplayer features."}
	errBadHandshake   = &rejection{"Invalid connection parameters."}
	errUnknownAccount = &rejection{"Cannot find your account."}
	errRestricted     = &rejection{"Your account is restricted from multiplayer."}
)

func publicMessage(err error) string {
	var rej *rejection
	if errors.As(err, &rej) {
		return rej.Message
	}
	return room.PublicMessage(err)
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)

	s.conns.Add(1)
	defer s.conns.Done()

	target, err := s.accept(r, sess)
	if err != nil {
		logger.Log.Infow("connection rejected", "remote", wsConn.RemoteAddr().String(), "uid", sess.UserID, "reason", err)
		s.reject(sess, err)
		return
	}
	s.handleConnection(sess, target)
}

// accept runs the handshake and joins the session to its room.
func (s *GameServer) accept(r *http.Request, sess *session.Session) (*room.Room, error) {
	roomID, err := strconv.ParseInt(chi.URLParam(r, "roomID"), 10, 64)
	if err != nil {
		return nil, room.ErrRoomNotFound
	}
	if err := s.authenticate(r, sess); err != nil {
		return nil, err
	}
	target, ok := s.roomManager.GetRoom(roomID)
	if !ok {
		return nil, room.ErrRoomNotFound
	}
	sess.RoomID = roomID
	if s.opts.ChatRate > 0 {
		sess.Limiter = rate.NewLimiter(s.opts.ChatRate, s.opts.ChatBurst)
	}
	if err := target.Join(sess); err != nil {
		return nil, err
	}
	return target, nil
}

// authenticate fills the session identity from the handshake query.
func (s *GameServer) authenticate(r *http.Request, sess *session.Session) error {
	query := r.URL.Query()

	version, err := strconv.Atoi(query.Get("version"))
	if err != nil || version < s.opts.MinClientVersion {
		return errOutdatedClient
	}
	uid, err := strconv.ParseInt(query.Get("uid"), 10, 64)
	if err != nil || uid <= 0 {
		return errBadHandshake
	}
	username := strings.TrimSpace(query.Get("username"))

	if s.opts.Accounts != nil {
		ctx, cancel := context.WithTimeout(r.Context(), lookupTimeout)
		defer cancel()
		account, err := s.opts.Accounts.LookupAccount(ctx, uid)
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			return errUnknownAccount
		case err != nil:
			return err
		case account.Restricted:
			return errRestricted
		}
		username = account.Username
	}
	if username == "" {
		return errBadHandshake
	}

	sess.UserID = uid
	sess.Username = username
	sess.Version = version
	sess.Password = query.Get("password")
	return nil
}

func (s *GameServer) reject(sess *session.Session, err error) {
	data, encErr := network.Encode(models.ErrorMessage{Message: publicMessage(err)})
	if encErr == nil {
		_ = sess.Send(network.MsgTypeError, data)
	}
	_ = sess.Close()
}

func (s *GameServer) handleConnection(sess *session.Session, r *room.Room) {
	s.sessionManager.Add(sess)
	if s.opts.Monitor != nil {
		s.opts.Monitor.IncOnlinePlayers()
	}
	logger.Log.Infof("New connection from %s, session ID: %s, room %d", sess.Conn.RemoteAddr(), sess.GetID(), r.ID)

	stopPing := make(chan struct{})
	defer func() {
		close(stopPing)
		logger.Log.Infof("Connection closed from %s, session ID: %s", sess.Conn.RemoteAddr(), sess.GetID())
		r.Leave(sess)
		s.sessionManager.Remove(sess.GetID())
		if s.opts.Monitor != nil {
			s.opts.Monitor.DecOnlinePlayers()
		}
		_ = sess.Close()
	}()

	sess.Conn.SetHeartbeat(s.opts.HeartbeatInterval)
	go s.pingLoop(sess, stopPing)

	ctx := context.Background()
	for {
		select {
		case <-s.shutdownChan:
			return
		default:
		}
		packet, err := sess.Conn.ReadPacket()
		if errors.Is(err, io.ErrShortBuffer) {
			room.SendError(sess, room.ErrInvalidPayload)
			continue
		}
		if err != nil {
			return
		}
		sess.Touch()
		if packet.MsgID == network.MsgTypeHeartbeat {
			_ = sess.Send(network.MsgTypeHeartbeat, nil)
			continue
		}
		if !s.router.Route(ctx, sess, packet) {
			return
		}
	}
}

// pingLoop keeps the read deadline set by SetHeartbeat moving for clients
// that answer pings but send no heartbeat messages.
func (s *GameServer) pingLoop(sess *session.Session, stop <-chan struct{}) {
	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := sess.Conn.Ping(); err != nil {
				logger.Log.Debugf("ping %s failed: %v", sess.GetID(), err)
				return
			}
		}
	}
}
