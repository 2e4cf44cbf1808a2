package room

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/rhythmserver/logger"
	"github.com/wfunc/rhythmserver/models"
	"github.com/wfunc/rhythmserver/network"
)

const recordTimeout = 10 * time.Second

// barrier names reported to the observer
const (
	barrierLoad   = "load"
	barrierSkip   = "skip"
	barrierResult = "result"
)

func (r *Room) onPlayBeatmap(p *RoomPlayer, _ []byte) error {
	if r.host != p {
		return newError(KindAuthorization, "Only host is allowed to start matches.")
	}
	if r.machine.Status() != models.RoomStatusIdle {
		return ErrNotIdle
	}
	if r.beatmap == nil {
		return ErrNoBeatmap
	}
	r.reset()
	r.broadcast(network.MsgTypePlayBeatmap, nil)
	logger.Log.Infof("room %d: host %d started %s", r.ID, p.ID, r.beatmap.MD5)
	return nil
}

// onBeatmapLoadComplete is ignored outside of a startable room and after the
// barrier fired.
func (r *Room) onBeatmapLoadComplete(p *RoomPlayer, _ []byte) error {
	if r.machine.Status() != models.RoomStatusIdle || r.beatmap == nil {
		logger.Log.Debugf("room %d: stale load from %d ignored", r.ID, p.ID)
		return nil
	}
	if err := r.loaded.Contribute(p.ID, struct{}{}); err != nil {
		return nil
	}
	r.fireLoad()
	return nil
}

func (r *Room) onSkipRequested(p *RoomPlayer, _ []byte) error {
	if r.machine.Status() != models.RoomStatusPlaying {
		return nil
	}
	if err := r.skipped.Contribute(p.ID, struct{}{}); err != nil {
		return nil
	}
	r.fireSkip()
	return nil
}

func (r *Room) onScoreSubmission(p *RoomPlayer, data []byte) error {
	if r.machine.Status() != models.RoomStatusPlaying {
		return ErrNoMatch
	}
	var score models.ScoreSubmission
	if err := decode(data, &score); err != nil {
		return err
	}
	if err := score.Validate(); err != nil {
		return ErrInvalidScore
	}
	score.UID = p.ID
	score.Username = p.Username

	if err := r.results.Contribute(p.ID, score); err != nil {
		if errors.Is(err, ErrAlreadyContributed) {
			return ErrDuplicateSubmission
		}
		return ErrNoMatch
	}
	r.fireResults()
	return nil
}

func (r *Room) onLiveScoreData(p *RoomPlayer, data []byte) error {
	if r.machine.Status() != models.RoomStatusPlaying {
		return ErrNoMatch
	}
	var live models.LiveScoreData
	if err := decode(data, &live); err != nil {
		return err
	}
	live.UID = p.ID
	live.Username = p.Username
	r.broadcast(network.MsgTypeLiveScoreData, []models.LiveScoreData{live})
	return nil
}

// checkBarriers re-evaluates the barriers of the current phase, used after
// the roster shrinks.
func (r *Room) checkBarriers() {
	switch r.machine.Status() {
	case models.RoomStatusIdle:
		if r.beatmap != nil && r.loaded.Len() > 0 {
			r.fireLoad()
		}
	case models.RoomStatusPlaying:
		if r.skipped.Len() > 0 {
			r.fireSkip()
		}
		if r.results.Len() > 0 {
			r.fireResults()
		}
	}
}

func (r *Room) fireLoad() {
	if _, ok := r.loaded.TryFire(len(r.players)); !ok {
		return
	}
	r.manager.deps.Observer.BarrierFired(barrierLoad)

	r.broadcast(network.MsgTypeAllPlayersBeatmapLoadComplete, nil)
	if err := r.machine.Transition(models.RoomStatusPlaying); err != nil {
		logger.Log.Errorf("room %d: %v", r.ID, err)
		return
	}
	for _, player := range r.players {
		player.Status = models.PlayerStatusPlaying
	}
	logger.Log.Infof("room %d: everyone loaded, match started", r.ID)
}

func (r *Room) fireSkip() {
	if _, ok := r.skipped.TryFire(len(r.players)); !ok {
		return
	}
	r.manager.deps.Observer.BarrierFired(barrierSkip)
	r.broadcast(network.MsgTypeAllPlayersSkipRequested, nil)
}

func (r *Room) fireResults() {
	scores, ok := r.results.TryFire(len(r.players))
	if !ok {
		return
	}
	r.manager.deps.Observer.BarrierFired(barrierResult)

	r.broadcast(network.MsgTypeAllPlayersScoreSubmitted, scores)
	r.recordResults(scores)

	r.reset()
	if err := r.machine.Transition(models.RoomStatusIdle); err != nil {
		logger.Log.Errorf("room %d: %v", r.ID, err)
	}
	for _, player := range r.players {
		player.Status = models.PlayerStatusNotReady
	}
	logger.Log.Infof("room %d: match finished with %d scores", r.ID, len(scores))
}

// recordResults hands the scores to the ranking store off the room goroutine.
func (r *Room) recordResults(scores []models.ScoreSubmission) {
	store := r.manager.deps.Ranking
	if store == nil || r.beatmap == nil {
		return
	}
	roomID, hash, playedAt := r.ID, r.beatmap.MD5, time.Now()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		for _, score := range scores {
			result := &models.MatchResult{
				RoomID:      roomID,
				BeatmapHash: hash,
				Score:       score,
				PlayedAt:    playedAt,
			}
			if _, err := store.RecordMatchResult(ctx, result); err != nil {
				logger.Log.Errorf("room %d: record score of %d: %v", roomID, score.UID, err)
			}
		}
	}()
}

// reset clears all three barriers.
func (r *Room) reset() {
	r.loaded.Reset()
	r.skipped.Reset()
	r.results.Reset()
}
