package service

import (
	"context"

	"github.com/studyreward/rewardbook/internal/ledger"
	"github.com/studyreward/rewardbook/internal/schema"
	"github.com/studyreward/rewardbook/internal/telemetry"
)

// MsgOneActive is returned when starting an execution while another one is
// running or paused.
const MsgOneActive = "一次只能执行一个任务！请先完成当前任务。"

// ListExecutions returns every execution.
func (s *Service) ListExecutions(ctx context.Context) ([]schema.TaskExecution, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.TaskExecutions, nil
}

// ActiveExecution returns the running or paused execution, or nil.
func (s *Service) ActiveExecution(ctx context.Context) (*schema.TaskExecution, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if e := doc.ActiveExecution(); e != nil {
		out := *e
		return &out, nil
	}
	return nil, nil
}

// StartExecution starts timing a template. Only one execution may be active
// at a time.
func (s *Service) StartExecution(ctx context.Context, req StartRequest) (*schema.TaskExecution, error) {
	if err := check(req); err != nil {
		return nil, err
	}

	var started schema.TaskExecution
	_, err := s.store.Update(ctx, func(doc *schema.Document) error {
		if doc.ActiveExecution() != nil {
			return NewError(ErrInvalidState, MsgOneActive)
		}
		i := doc.FindTemplate(req.TaskTemplateID)
		if i < 0 {
			return NewError(ErrNotFound, "Task template not found")
		}
		tpl := doc.TaskTemplates[i]
		started = schema.TaskExecution{
			ID:             s.newID(),
			TaskTemplateID: tpl.ID,
			TaskName:       tpl.Name,
			StartTime:      schema.NowMillis(s.now()),
			Status:         schema.StatusRunning,
		}
		doc.TaskExecutions = append(doc.TaskExecutions, started)
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.Executions.WithLabelValues("start").Inc()
	s.publish(EventExecutionUpdate, started)
	return &started, nil
}

// PauseExecution pauses a running execution.
func (s *Service) PauseExecution(ctx context.Context, id string) (*schema.TaskExecution, error) {
	return s.transition(ctx, id, "pause", func(e *schema.TaskExecution, now int64) error {
		if e.Status != schema.StatusRunning {
			return NewError(ErrInvalidState, "Task is not running")
		}
		if err := e.Transition(schema.StatusPaused); err != nil {
			return NewError(ErrInvalidState, err.Error())
		}
		e.PausedTime = now
		return nil
	})
}

// ResumeExecution resumes a paused execution and adds the pause to its
// total paused duration.
func (s *Service) ResumeExecution(ctx context.Context, id string) (*schema.TaskExecution, error) {
	return s.transition(ctx, id, "resume", func(e *schema.TaskExecution, now int64) error {
		if e.Status != schema.StatusPaused {
			return NewError(ErrInvalidState, "Task is not paused")
		}
		if err := e.Transition(schema.StatusRunning); err != nil {
			return NewError(ErrInvalidState, err.Error())
		}
		e.TotalPausedDuration += pausedSeconds(e, now)
		e.PausedTime = 0
		return nil
	})
}

// CancelExecution ends an active execution without a reward.
func (s *Service) CancelExecution(ctx context.Context, id string) (*schema.TaskExecution, error) {
	return s.transition(ctx, id, "cancel", func(e *schema.TaskExecution, now int64) error {
		if err := e.Transition(schema.StatusCompleted); err != nil {
			return NewError(ErrInvalidState, "Task is already completed")
		}
		e.EndTime = now
		e.ActualReward = 0
		e.PausedTime = 0
		return nil
	})
}

// CompleteExecution ends an active execution and credits one point per whole
// minute of unpaused time. A paused execution is completed as of the moment
// it was paused. No ledger entry is written for a zero reward.
func (s *Service) CompleteExecution(ctx context.Context, id string) (*CompleteResult, error) {
	var (
		result CompleteResult
		record *schema.PointRecord
		points float64
	)
	_, err := s.store.Update(ctx, func(doc *schema.Document) error {
		i := doc.FindExecution(id)
		if i < 0 {
			return NewError(ErrNotFound, "Task execution not found")
		}
		e := &doc.TaskExecutions[i]
		now := schema.NowMillis(s.now())

		if e.Status == schema.StatusPaused {
			e.TotalPausedDuration += pausedSeconds(e, now)
		}
		if err := e.Transition(schema.StatusCompleted); err != nil {
			return NewError(ErrInvalidState, "Task is already completed")
		}

		minutes := ledger.ElapsedMinutes(e.StartTime, now, e.TotalPausedDuration)
		reward := ledger.Reward(minutes)

		e.EndTime = now
		e.PausedTime = 0
		e.ActualDuration = minutes
		e.ActualReward = reward

		if reward > 0 {
			rec := schema.PointRecord{
				ID:          s.newID(),
				Type:        schema.RecordEarn,
				Amount:      reward,
				Description: ledger.EarnDescription(e.TaskName, minutes),
				Timestamp:   now,
				RelatedID:   e.TaskTemplateID,
				EntityName:  e.TaskName,
				ExecutionID: e.ID,
			}
			doc.UserData.PointRecords = ledger.Prepend(doc.UserData.PointRecords, rec)
			doc.UserData.Points = ledger.RoundPoints(doc.UserData.Points + reward)
			record = &rec
		}

		exec := *e
		result = CompleteResult{Execution: &exec, Reward: reward}
		points = doc.UserData.Points
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.Executions.WithLabelValues("complete").Inc()
	s.publish(EventExecutionUpdate, result.Execution)
	if record != nil {
		telemetry.PointsEarned.Add(record.Amount)
		s.publish(EventRecordAdded, record)
		s.publish(EventPointsChanged, map[string]float64{"points": points})
	}
	return &result, nil
}

// transition applies fn to execution id inside one document update.
func (s *Service) transition(ctx context.Context, id, action string, fn func(e *schema.TaskExecution, now int64) error) (*schema.TaskExecution, error) {
	var out schema.TaskExecution
	_, err := s.store.Update(ctx, func(doc *schema.Document) error {
		i := doc.FindExecution(id)
		if i < 0 {
			return NewError(ErrNotFound, "Task execution not found")
		}
		e := &doc.TaskExecutions[i]
		if err := fn(e, schema.NowMillis(s.now())); err != nil {
			return err
		}
		out = *e
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.Executions.WithLabelValues(action).Inc()
	s.publish(EventExecutionUpdate, out)
	return &out, nil
}

// pausedSeconds returns how long e has been paused as of now.
func pausedSeconds(e *schema.TaskExecution, now int64) float64 {
	if e.PausedTime == 0 || now < e.PausedTime {
		return 0
	}
	return float64(now-e.PausedTime) / 1000
}
