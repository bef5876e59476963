package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"garage-skill/internal/alexa"
	"garage-skill/internal/domain"
)

const (
	slotName    = "Name"
	slotState   = "State"
	slotCommand = "Command"
)

// Settings control how door selectors map to positions and whether the skill
// may open doors at all.
type Settings struct {
	LeftIndex int
	OnlyClose bool
}

type Dispatcher struct {
	settings Settings
	notifier Notifier
	metrics  Recorder
	logger   *slog.Logger
}

func NewDispatcher(settings Settings, notifier Notifier, metrics Recorder, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		settings: settings,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// Handle answers one request against the doors of the current session. A nil
// speechlet with a nil error means there is nothing to say. Errors returned
// here are contract violations and are not meant to be spoken.
func (d *Dispatcher) Handle(ctx context.Context, doors []Door, req alexa.Request) (*alexa.Speechlet, error) {
	reqType, err := alexa.ParseRequestType(req.Type)
	if err != nil {
		return nil, err
	}

	g := &garage{
		Dispatcher: d,
		doors:      doors,
		msgs:       newMessages(d.settings.OnlyClose, len(doors)),
	}

	switch reqType {
	case alexa.RequestLaunch:
		return g.welcome(), nil
	case alexa.RequestIntent:
		if req.Intent == nil {
			return nil, alexa.ErrMissingIntent
		}
		return g.onIntent(ctx, req.Intent)
	case alexa.RequestSessionEnded:
		d.logger.Info("session ended", "reason", req.Reason)
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %q", alexa.ErrUnknownRequestType, req.Type)
}

// garage is the per-request view: the dispatcher plus the doors reported by
// this request's login.
type garage struct {
	*Dispatcher
	doors []Door
	msgs  messages
}

func (g *garage) oneDoor() bool {
	return len(g.doors) == 1
}

func (g *garage) leftIndex() int {
	return g.settings.LeftIndex
}

func (g *garage) rightIndex() int {
	return 1 - g.settings.LeftIndex
}

func (g *garage) onIntent(ctx context.Context, in *alexa.Intent) (*alexa.Speechlet, error) {
	intent, err := domain.ParseIntent(in.Name)
	if err != nil {
		return nil, err
	}

	switch intent {
	case domain.IntentState:
		return g.stateIntent(in), nil
	case domain.IntentAllStates:
		if g.oneDoor() {
			return g.singleState(), nil
		}
		return g.checkAllStates(), nil
	case domain.IntentMove:
		return g.moveIntent(ctx, in), nil
	case domain.IntentHelp:
		return g.welcome(), nil
	case domain.IntentStop:
		return alexa.NewSpeechlet(titleGoodbye, "Goodbye", ""), nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownIntent, in.Name)
}

func (g *garage) welcome() *alexa.Speechlet {
	return alexa.NewSpeechlet(titleWelcome, g.msgs.welcome(), "")
}

// resolveDoorIndex maps a selector onto a position in the door list.
func (g *garage) resolveDoorIndex(sel domain.Selector) (int, error) {
	index := sel.Index(g.settings.LeftIndex)
	if index < 0 || index >= len(g.doors) {
		return 0, fmt.Errorf("%w: door %d of %d", domain.ErrInvalidSelector, index+1, len(g.doors))
	}
	return index, nil
}

func (g *garage) queryState(index int) domain.DoorState {
	door := g.doors[index]
	state := door.State()
	g.logger.Info("checking door state", "door", door.Name(), "index", index, "state", state)
	return state
}

func (g *garage) command(ctx context.Context, index int, cmd domain.Command) error {
	door := g.doors[index]
	g.logger.Info("changing door state",
		"door", door.Name(),
		"index", index,
		"state", door.State(),
		"command", cmd,
	)

	var err error
	switch cmd {
	case domain.CommandClose:
		err = door.Close(ctx)
	case domain.CommandOpen:
		err = door.Open(ctx)
	default:
		err = fmt.Errorf("%w: %q", domain.ErrInvalidCommand, cmd)
	}
	g.metrics.ObserveCommand(cmd, err)
	if err != nil {
		return fmt.Errorf("%s %s: %w", cmd, door.Name(), err)
	}

	if err := g.notifier.Notify(ctx, fmt.Sprintf("Garage: %s %s", cmd.Verb(), door.Name())); err != nil {
		g.logger.Error("notifying door command", "error", err)
	}
	return nil
}

// commandAll issues cmd to every listed door concurrently. The doors are
// independent remote resources.
func (g *garage) commandAll(ctx context.Context, indexes []int, cmd domain.Command) error {
	var wg sync.WaitGroup
	errs := make([]error, len(indexes))
	for i, index := range indexes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = g.command(ctx, index, cmd)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (g *garage) moveIntent(ctx context.Context, in *alexa.Intent) *alexa.Speechlet {
	s, err := g.executeMove(ctx, in)
	if err != nil {
		g.logger.Error("executing move intent", "intent", in.Name, "error", err)
		failure, reprompt := g.msgs.moveFailure()
		return alexa.NewSpeechlet(titleTryAgain, failure, reprompt)
	}
	return s
}

func (g *garage) executeMove(ctx context.Context, in *alexa.Intent) (*alexa.Speechlet, error) {
	name, err := in.Resolve(slotName)
	if err != nil {
		return nil, err
	}
	action, err := in.Resolve(slotCommand)
	if err != nil {
		return nil, err
	}
	cmd, err := domain.ParseCommand(action.ID)
	if err != nil {
		return nil, err
	}
	sel, err := domain.ParseSelector(name.ID)
	if err != nil {
		return nil, err
	}

	if sel.Kind == domain.SelectorBoth && !g.oneDoor() {
		return g.moveAll(ctx, cmd)
	}

	index, err := g.resolveDoorIndex(sel)
	if err != nil {
		return nil, err
	}
	return g.move(ctx, index, name.Spoken, cmd)
}

// move drives one door. A door already at or heading to the target state is
// left alone.
func (g *garage) move(ctx context.Context, index int, name string, cmd domain.Command) (*alexa.Speechlet, error) {
	state := g.queryState(index)

	switch cmd {
	case domain.CommandClose:
		if state.IsClosed() {
			return alexa.NewSpeechlet(titleCloseDoor, fmt.Sprintf("%s is already %s", name, state), ""), nil
		}
		if err := g.command(ctx, index, cmd); err != nil {
			return nil, err
		}
		return alexa.NewSpeechlet(titleCloseDoor, fmt.Sprintf("Ok, closing %s now", name), ""), nil

	case domain.CommandOpen:
		if state.IsOpen() {
			return alexa.NewSpeechlet(titleOpenDoor, fmt.Sprintf("%s is already %s", name, state), ""), nil
		}
		if g.settings.OnlyClose {
			return alexa.NewSpeechlet(titleTryAgain, onlyCloseRefusal, ""), nil
		}
		if err := g.command(ctx, index, cmd); err != nil {
			return nil, err
		}
		return alexa.NewSpeechlet(titleOpenDoor, fmt.Sprintf("Ok, opening %s now", name), ""), nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCommand, cmd)
}

// moveAll drives both doors of a two-door garage. Both states are read before
// any command is sent so the reply reflects what the doors were doing when
// asked.
func (g *garage) moveAll(ctx context.Context, cmd domain.Command) (*alexa.Speechlet, error) {
	left, right := g.leftIndex(), g.rightIndex()
	leftActs := !g.queryState(left).Satisfies(cmd)
	rightActs := !g.queryState(right).Satisfies(cmd)

	title := titleOpenDoors
	if cmd == domain.CommandClose {
		title = titleCloseDoors
	}

	if !leftActs && !rightActs {
		return alexa.NewSpeechlet(title, fmt.Sprintf("Both doors are %s", cmd.Target()), ""), nil
	}
	if cmd == domain.CommandOpen && g.settings.OnlyClose {
		return alexa.NewSpeechlet(titleTryAgain, onlyCloseRefusal, ""), nil
	}

	var pending []int
	if leftActs {
		pending = append(pending, left)
	}
	if rightActs {
		pending = append(pending, right)
	}
	if err := g.commandAll(ctx, pending, cmd); err != nil {
		return nil, err
	}

	var output string
	switch {
	case leftActs && rightActs:
		output = fmt.Sprintf("Ok, %s both garage doors now", cmd.Verb())
	case leftActs:
		output = fmt.Sprintf("Ok, %s the left garage door now", cmd.Verb())
	default:
		output = fmt.Sprintf("Ok, %s the right garage door now", cmd.Verb())
	}
	return alexa.NewSpeechlet(title, output, ""), nil
}

func (g *garage) stateIntent(in *alexa.Intent) *alexa.Speechlet {
	s, err := g.checkState(in)
	if err != nil {
		g.logger.Error("executing state intent", "intent", in.Name, "error", err)
		failure, reprompt := g.msgs.stateFailure()
		return alexa.NewSpeechlet(titleTryAgain, failure, reprompt)
	}
	return s
}

// checkState reports a door's state, or confirms it when the user asked about
// a specific one.
func (g *garage) checkState(in *alexa.Intent) (*alexa.Speechlet, error) {
	name, err := in.Resolve(slotName)
	if err != nil {
		return nil, err
	}
	sel, err := domain.ParseSelector(name.ID)
	if err != nil {
		return nil, err
	}
	index, err := g.resolveDoorIndex(sel)
	if err != nil {
		return nil, err
	}
	actual := g.queryState(index)

	if !in.Filled(slotState) {
		return alexa.NewSpeechlet(titleCheckStatus, fmt.Sprintf("%s is %s", name.Spoken, actual), ""), nil
	}

	expected, err := in.Resolve(slotState)
	if err != nil {
		return nil, err
	}

	var output string
	if domain.DoorState(expected.ID) == actual {
		output = fmt.Sprintf("Yes, %s is %s", name.Spoken, expected.Spoken)
	} else {
		output = fmt.Sprintf("No, %s is %s", name.Spoken, actual)
	}
	return alexa.NewSpeechlet(titleCheckStatus, output, ""), nil
}

func (g *garage) checkAllStates() *alexa.Speechlet {
	left := g.queryState(g.leftIndex())
	right := g.queryState(g.rightIndex())

	var output string
	if left == right {
		output = fmt.Sprintf("Both doors are %s", left)
	} else {
		output = fmt.Sprintf("The left door is %s, and the right door is %s.", left, right)
	}
	return alexa.NewSpeechlet(titleCheckStatus, output, "")
}

func (g *garage) singleState() *alexa.Speechlet {
	return alexa.NewSpeechlet(titleCheckStatus, fmt.Sprintf("The door is %s.", g.queryState(0)), "")
}
