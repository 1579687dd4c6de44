package event

import (
	"errors"
	"fmt"

	"github.com/imagine-project/channelserver/internal/model"
	"github.com/imagine-project/channelserver/internal/session"
)

var (
	// ErrEventNotFound is returned when an event ID has no graph entry.
	ErrEventNotFound = errors.New("event: definition not found")
	// ErrConditionsNotMet is returned when an event/branch/choice's entry
	// conditions fail evaluation.
	ErrConditionsNotMet = errors.New("event: conditions not met")
	// ErrChoiceDisabled is returned when handle_response selects a choice
	// the session's EventInstance.DisabledChoices marks unavailable.
	ErrChoiceDisabled = errors.New("event: choice disabled")
	// ErrNoCurrentEvent is returned when handle_response/handle_next runs
	// against a session with no active event.
	ErrNoCurrentEvent = errors.New("event: no current event")
)

// Runtime is the EventRuntime implementation: it owns the event graph
// and drives handle_event/handle_response/handle_next against a
// session's EventState (spec.md §4.G "Driver"), grounded on la2go's
// quest.Manager composition root plus internal/html's DialogManager
// request/response pairing.
type Runtime struct {
	graph       *Graph
	actions     ActionRunner
	scripts     ScriptHost
	quests      *QuestEngine
	demonQuests *DemonQuestEngine
	clock       Clock
}

func NewRuntime(graph *Graph, actions ActionRunner, scripts ScriptHost, quests *QuestEngine, demonQuests *DemonQuestEngine, clock Clock) *Runtime {
	return &Runtime{graph: graph, actions: actions, scripts: scripts, quests: quests, demonQuests: demonQuests, clock: clock}
}

// HandleEvent starts eventID for s (spec.md §4.G "handle_event"). If
// the session already has a current event:
//   - a NoInterrupt current event causes the new one to be queued
//     instead of displacing it;
//   - otherwise the current event is pushed onto Previous and the new
//     one becomes Current.
func (r *Runtime) HandleEvent(s *session.Session, eventID string, sourceEntityID model.UUID, groupID int32, evalCtx *EvalContext) error {
	def, ok := r.graph.Get(eventID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	if !conditionsPass(def.Conditions, evalCtx) {
		return fmt.Errorf("%w: %s", ErrConditionsNotMet, eventID)
	}

	inst := &session.EventInstance{
		EventID:        eventID,
		SourceEntityID: sourceEntityID,
		ActionGroupID:  groupID,
		NoInterrupt:    def.NoInterrupt,
		ITimeID:        def.ITimeID,
	}

	if cur := s.Events.Current; cur != nil {
		if cur.NoInterrupt {
			s.Events.Enqueue(inst)
			return nil
		}
		s.Events.PushPrevious(cur)
	}
	s.Events.Current = inst

	return r.dispatch(s, def, inst, evalCtx)
}

// dispatch runs the side effects proper to def's type. PERFORM_ACTIONS
// and FORK nodes resolve and advance immediately since they present
// nothing for the client to respond to; the rest wait for
// HandleResponse/HandleNext.
func (r *Runtime) dispatch(s *session.Session, def *Def, inst *session.EventInstance, evalCtx *EvalContext) error {
	switch def.Type {
	case EventPerformActions:
		if err := r.runActions(inst.SourceEntityID, def.Actions); err != nil {
			return err
		}
		return r.advance(s, def.Next, inst.SourceEntityID, inst.ActionGroupID, evalCtx)
	case EventFork:
		for _, branch := range def.Fork {
			if conditionsPass(branch.Conditions, evalCtx) {
				return r.advance(s, branch.Next, inst.SourceEntityID, inst.ActionGroupID, evalCtx)
			}
		}
		return r.HandleNext(s, evalCtx)
	default:
		// NPC_MESSAGE, EX_NPC_MESSAGE, MULTITALK, PROMPT, PLAY_SCENE,
		// OPEN_MENU, DIRECTION and ITIME all present a node to the client
		// and wait for HandleResponse/HandleNext; running def.Actions here
		// (entry actions, independent of any choice) matches nodes that
		// combine a display with an unconditional action list.
		if def.ITimeChoices != nil {
			ApplyITime(inst, int32(len(def.Choices)), def.ITimeChoices)
		}
		return r.runActions(inst.SourceEntityID, def.Actions)
	}
}

// HandleResponse applies the client's choice on the session's current
// event (spec.md §4.G "handle_response"): validates the choice isn't
// disabled, evaluates its conditions, runs its action list, then
// advances to its Next node.
func (r *Runtime) HandleResponse(s *session.Session, choiceIndex int32, evalCtx *EvalContext) error {
	cur := s.Events.Current
	if cur == nil {
		return ErrNoCurrentEvent
	}
	if cur.DisabledChoices != nil && cur.DisabledChoices[choiceIndex] {
		return ErrChoiceDisabled
	}

	def, ok := r.graph.Get(cur.EventID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrEventNotFound, cur.EventID)
	}
	if int(choiceIndex) < 0 || int(choiceIndex) >= len(def.Choices) {
		return fmt.Errorf("event: choice index %d out of range for %s", choiceIndex, cur.EventID)
	}
	choice := def.Choices[choiceIndex]
	if !conditionsPass(choice.Conditions, evalCtx) {
		return fmt.Errorf("%w: choice %d of %s", ErrConditionsNotMet, choiceIndex, cur.EventID)
	}

	if err := r.runActions(cur.SourceEntityID, choice.Actions); err != nil {
		return err
	}
	return r.advance(s, choice.Next, cur.SourceEntityID, cur.ActionGroupID, evalCtx)
}

// HandleNext ends the current event and resumes whatever the stack
// machine holds next: a queued event first, then the top of the
// previous-event stack, otherwise leaving the session idle (spec.md §3
// invariant 4, §4.G "handle_next").
func (r *Runtime) HandleNext(s *session.Session, evalCtx *EvalContext) error {
	if s.Events.Current == nil {
		return ErrNoCurrentEvent
	}
	s.Events.Current = nil

	if queued, ok := s.Events.Dequeue(); ok {
		def, ok := r.graph.Get(queued.EventID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrEventNotFound, queued.EventID)
		}
		s.Events.Current = queued
		return r.dispatch(s, def, queued, evalCtx)
	}

	if prev, ok := s.Events.PopPrevious(); ok {
		s.Events.Current = prev
		return nil // resuming a previous node re-presents it; no side effects re-run
	}

	return nil
}

// advance moves to nextID, treating an empty nextID as "end the
// event" (spec.md §4.G "a Next of empty string ends the chain").
func (r *Runtime) advance(s *session.Session, nextID string, sourceEntityID model.UUID, groupID int32, evalCtx *EvalContext) error {
	if nextID == "" {
		return r.HandleNext(s, evalCtx)
	}
	return r.HandleEvent(s, nextID, sourceEntityID, groupID, evalCtx)
}

func (r *Runtime) runActions(source model.UUID, refs []ActionRef) error {
	if len(refs) == 0 || r.actions == nil {
		return nil
	}
	return r.actions.RunActions(source, refs)
}

func conditionsPass(conds []Condition, ctx *EvalContext) bool {
	for _, c := range conds {
		if !Evaluate(c, ctx) {
			return false
		}
	}
	return true
}
