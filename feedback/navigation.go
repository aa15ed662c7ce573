package feedback

import (
	"context"
	"errors"

	"github.com/mbolis/taste-review/log"
	"github.com/mbolis/taste-review/metrics"
	"github.com/mbolis/taste-review/model"
)

type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// Target is where the visitor goes next: a 1-based question ordinal, or the reward state.
type Target struct {
	Index  int
	Reward bool
}

func Question(index int) Target { return Target{Index: index} }

var Reward = Target{Reward: true}

type Transition struct {
	Direction Direction
	Target    Target
}

// ResolveOrdinal applies the out-of-range policy. ok is false when the visitor
// must be redirected to target instead.
func ResolveOrdinal(requested, total int) (target Target, ok bool) {
	switch {
	case requested < 1:
		return Question(1), false
	case requested > total:
		return Reward, false
	}
	return Question(requested), true
}

// Flow is the form being answered, as resolved from the route.
type Flow struct {
	Form            model.Form
	Questions       []model.Question
	TableIdentifier string
	Preview         bool
}

// Page is what a question screen shows.
type Page struct {
	Question model.Question
	Index    int
	Total    int
	IsFirst  bool
	IsLast   bool
	View     View
	// NeedsVerification is set on the last question when "next" must carry a bot token.
	NeedsVerification bool
	// Redirect is set instead of the fields above when the ordinal is out of range.
	Redirect *Target
}

// Controller moves one visitor through a flow.
type Controller struct {
	flow    Flow
	state   *State
	gateway *Gateway
	gate    *Gate
}

func NewController(flow Flow, state *State, gateway *Gateway, gate *Gate) *Controller {
	return &Controller{flow: flow, state: state, gateway: gateway, gate: gate}
}

func (c *Controller) Total() int {
	return len(c.flow.Questions)
}

// QuestionAt returns the question at a 1-based ordinal.
func (c *Controller) QuestionAt(index int) (model.Question, bool) {
	if index < 1 || index > len(c.flow.Questions) {
		return model.Question{}, false
	}
	return c.flow.Questions[index-1], true
}

func (c *Controller) verifies(index int) bool {
	return index == c.Total() && !c.flow.Preview && c.gate.RequiresVerification()
}

// done reports whether this session already completed its submission.
func (c *Controller) done(ctx context.Context) (bool, error) {
	if c.flow.Preview {
		return false, nil
	}
	completed, err := c.state.Completed(ctx)
	if err != nil {
		return false, persistence("session.get_completed", err)
	}
	return completed != "", nil
}

// Load builds the page for ordinal, pre-filled from session state only.
func (c *Controller) Load(ctx context.Context, ordinal int) (Page, error) {
	target, ok := ResolveOrdinal(ordinal, c.Total())
	if !ok {
		return Page{Redirect: &target}, nil
	}
	if done, err := c.done(ctx); err != nil {
		return Page{}, err
	} else if done {
		target = Reward
		return Page{Redirect: &target}, nil
	}

	q := c.flow.Questions[ordinal-1]
	v, _, err := c.state.Answer(ctx, q)
	if err != nil {
		return Page{}, persistence("session.get_answers", err)
	}

	return Page{
		Question:          q,
		Index:             ordinal,
		Total:             c.Total(),
		IsFirst:           ordinal == 1,
		IsLast:            ordinal == c.Total(),
		View:              Render(q, v),
		NeedsVerification: c.verifies(ordinal),
	}, nil
}

// Next validates and saves the answer to ordinal, then moves forward. On the last
// question it runs the completion gate first. On error the visitor stays put.
func (c *Controller) Next(ctx context.Context, ordinal int, v Value, token string) (Transition, error) {
	target, ok := ResolveOrdinal(ordinal, c.Total())
	if !ok {
		return Transition{Direction: Forward, Target: target}, nil
	}
	if done, err := c.done(ctx); err != nil {
		return Transition{}, err
	} else if done {
		return Transition{Direction: Forward, Target: Reward}, nil
	}

	q := c.flow.Questions[ordinal-1]
	isLast := ordinal == c.Total()

	var submissionID string
	if _, supported := FieldFor(q.Type); supported {
		if q.IsRequired && v.IsEmpty() {
			metrics.FlowErrors.WithLabelValues("validation").Inc()
			return Transition{}, &ValidationError{QuestionID: q.ID, Err: ErrRequired}
		}
		if c.verifies(ordinal) && token == "" {
			metrics.FlowErrors.WithLabelValues("verification").Inc()
			return Transition{}, &VerificationError{Err: ErrVerificationPending}
		}

		id, err := c.gateway.Save(ctx, c.state, c.saveRequest(q, v))
		switch {
		case closed(err):
			c.finish(ctx, id)
			return Transition{Direction: Forward, Target: Reward}, nil
		case err != nil:
			c.count(err)
			return Transition{}, err
		}
		submissionID = id
	} else if isLast && !c.flow.Preview {
		// nothing to record, but the submission still has to be completed
		id, err := c.gateway.Ensure(ctx, c.state, c.saveRequest(q, Value{}))
		if err != nil {
			c.count(err)
			return Transition{}, err
		}
		submissionID = id
	}

	if isLast && !c.flow.Preview {
		if err := c.gate.Complete(ctx, submissionID, token); err != nil {
			if closed(err) {
				c.finish(ctx, submissionID)
				return Transition{Direction: Forward, Target: Reward}, nil
			}
			c.count(err)
			return Transition{}, err
		}
		c.finish(ctx, submissionID)
	}

	if isLast {
		return Transition{Direction: Forward, Target: Reward}, nil
	}
	return Transition{Direction: Forward, Target: Question(ordinal + 1)}, nil
}

func (c *Controller) saveRequest(q model.Question, v Value) SaveRequest {
	return SaveRequest{
		FormID:          c.flow.Form.ID,
		TableIdentifier: c.flow.TableIdentifier,
		Preview:         c.flow.Preview,
		Question:        q,
		Value:           v,
	}
}

// Back moves to the previous question without validating or saving.
func (c *Controller) Back(ctx context.Context, ordinal int) (Transition, error) {
	target, ok := ResolveOrdinal(ordinal, c.Total())
	if !ok {
		return Transition{Direction: Backward, Target: target}, nil
	}
	if ordinal == 1 {
		return Transition{Direction: Backward, Target: Question(1)}, nil
	}
	return Transition{Direction: Backward, Target: Question(ordinal - 1)}, nil
}

// finish remembers the completed submission so the session lands on the reward state.
func (c *Controller) finish(ctx context.Context, submissionID string) {
	if submissionID == "" {
		return
	}
	if err := c.state.MarkCompleted(ctx, submissionID); err != nil {
		log.WithFields(log.Fields{"submission": submissionID}).Warn("session.mark_completed: ", err)
	}
}

func (c *Controller) count(err error) {
	var persist *PersistenceError
	var validation *ValidationError
	switch {
	case errors.As(err, &validation):
		metrics.FlowErrors.WithLabelValues("validation").Inc()
	case errors.As(err, &persist):
		metrics.FlowErrors.WithLabelValues("persistence").Inc()
		log.WithFields(log.Fields{"form": c.flow.Form.ID}).Error(err)
	}
}
