package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/policy"
)

// StartRecording marks the room as recording. Creators and presenters only.
func (s *RoomService) StartRecording(ctx context.Context, actorID, roomID uint) (*domain.Recording, error) {
	room, actor, err := s.loadMember(ctx, roomID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Actor: actor, Action: policy.ActionStartRecording}); err != nil {
		return nil, err
	}
	if !room.Config.RecordingEnabled {
		return nil, denied(policy.ActionStartRecording, "Recording is disabled in this room")
	}
	if room.Recording.Active {
		return nil, ErrRecordingInProgress
	}
	now := s.now()
	rec := domain.Recording{Active: true, StartedAt: &now}
	if err := s.roomRepo.UpdateRecording(ctx, roomID, rec); err != nil {
		return nil, s.storeError(err, roomID, "start recording")
	}
	s.record(ctx, roomID, actorID, domain.ActivityRecordingStarted, "started recording", nil)
	return &rec, nil
}

// StopRecording ends the current recording. url may be empty when the provider
// reports it later through CompleteRecording.
func (s *RoomService) StopRecording(ctx context.Context, actorID, roomID uint, url string) (*domain.Recording, error) {
	room, actor, err := s.loadMember(ctx, roomID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Actor: actor, Action: policy.ActionStopRecording}); err != nil {
		return nil, err
	}
	if !room.Recording.Active {
		return nil, ErrRecordingNotActive
	}
	rec := room.Recording
	rec.Active = false
	if url = strings.TrimSpace(url); url != "" {
		rec.URL = &url
	}
	if err := s.roomRepo.UpdateRecording(ctx, roomID, rec); err != nil {
		return nil, s.storeError(err, roomID, "stop recording")
	}
	meta := map[string]any{}
	if rec.StartedAt != nil {
		meta["durationSeconds"] = int64(s.now().Sub(*rec.StartedAt).Seconds())
	}
	s.record(ctx, roomID, actorID, domain.ActivityRecordingStopped, "stopped recording", meta)
	return &rec, nil
}

// CompleteRecording stores the final recording URL reported by the provider.
func (s *RoomService) CompleteRecording(ctx context.Context, roomID uint, url string) (*domain.Recording, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, invalid("recordingUrl: required")
	}
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	rec := room.Recording
	rec.Active = false
	rec.URL = &url
	if err := s.roomRepo.UpdateRecording(ctx, roomID, rec); err != nil {
		return nil, s.storeError(err, roomID, "complete recording")
	}
	logrus.WithField("room_id", roomID).Info("Recording completed")
	return &rec, nil
}
