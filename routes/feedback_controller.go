package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/taste-review/app"
	"github.com/mbolis/taste-review/feedback"
	"github.com/mbolis/taste-review/httpx"
	"github.com/mbolis/taste-review/log"
	"github.com/mbolis/taste-review/model"
	"github.com/mbolis/taste-review/session"
	"github.com/mbolis/taste-review/store"
)

const maxTableLength = 64

// route is a feedback URL resolved to its rows.
type route struct {
	restaurant   model.Restaurant
	flow         feedback.Flow
	previewToken string
}

func tableIdentifier(r *http.Request) string {
	t := strings.TrimSpace(r.URL.Query().Get("t"))
	if utf8.RuneCountInString(t) > maxTableLength {
		t = string([]rune(t)[:maxTableLength])
	}
	return t
}

// resolve loads restaurant and form of the request, writing the error response
// itself when it returns false. The reward page accepts inactive forms.
func resolve(app app.App, w http.ResponseWriter, r *http.Request, activeOnly bool) (route, bool) {
	slug := chi.URLParam(r, "slug")
	formID := chi.URLParam(r, "form")

	rt := route{previewToken: r.URL.Query().Get("preview")}
	if rt.previewToken != "" {
		if err := app.Previews.Verify(formID, rt.previewToken); err != nil {
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "feedback.preview_token")
			return rt, false
		}
		activeOnly = false
	}

	restaurant, err := app.Loader.RestaurantBySlug(r.Context(), slug)
	if errors.Is(err, store.ErrNotFound) {
		httpx.LogNotFound(w, "feedback.get_restaurant", slug)
		return rt, false
	}
	if err != nil {
		httpx.LogInternalError(w, "db.get_restaurant", err)
		return rt, false
	}

	form, err := app.Loader.Form(r.Context(), restaurant.ID, formID, activeOnly)
	if errors.Is(err, store.ErrNotFound) {
		httpx.LogNotFound(w, "feedback.get_form", formID)
		return rt, false
	}
	if err != nil {
		httpx.LogInternalError(w, "db.get_form", err)
		return rt, false
	}
	if len(form.Questions) == 0 {
		httpx.LogNotFound(w, "feedback.get_questions", formID)
		return rt, false
	}

	rt.restaurant = restaurant
	rt.flow = feedback.Flow{
		Form:            form,
		Questions:       form.Questions,
		TableIdentifier: tableIdentifier(r),
		Preview:         rt.previewToken != "",
	}
	return rt, true
}

func (rt route) base() string {
	return "/api/r/" + url.PathEscape(rt.restaurant.Slug) + "/" + url.PathEscape(rt.flow.Form.ID)
}

func (rt route) query(withTable bool) string {
	q := url.Values{}
	if withTable && rt.flow.TableIdentifier != "" {
		q.Set("t", rt.flow.TableIdentifier)
	}
	if rt.previewToken != "" {
		q.Set("preview", rt.previewToken)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// path is the location of target; question paths keep the table token.
func (rt route) path(target feedback.Target) string {
	if target.Reward {
		return rt.base() + "/reward" + rt.query(false)
	}
	return fmt.Sprintf("%s/q/%d%s", rt.base(), target.Index, rt.query(true))
}

func state(app app.App, r *http.Request, rt route) *feedback.State {
	return feedback.NewState(session.Bind(app.Sessions, httpx.SessionID(r)), rt.flow.Form.ID)
}

func controller(app app.App, r *http.Request, rt route) *feedback.Controller {
	return feedback.NewController(
		rt.flow,
		state(app, r, rt),
		feedback.NewGateway(app.Submissions),
		feedback.NewGate(app.Submissions, app.Verifier),
	)
}

// ordinal reads the question index of the path. Garbage counts as 0, so the
// visitor lands on the first question; a number too large to parse is past
// the last one.
func ordinal(r *http.Request) int {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err == nil {
		return index
	}
	var numErr *strconv.NumError
	if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) && !strings.HasPrefix(raw, "-") {
		return math.MaxInt
	}
	log.Debugf("request.get_url_param.index: invalid question index %q", raw)
	return 0
}

// StartFeedback is where a table's QR code points.
func StartFeedback(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rt, ok := resolve(app, w, r, true)
		if !ok {
			return
		}
		http.Redirect(w, r, rt.path(feedback.Question(1)), http.StatusFound)
	}
}

type questionResponse struct {
	Restaurant        string        `json:"restaurant"`
	FormID            string        `json:"form_id"`
	FormName          string        `json:"form_name"`
	Index             int           `json:"index"`
	Total             int           `json:"total"`
	IsFirst           bool          `json:"is_first"`
	IsLast            bool          `json:"is_last"`
	Question          feedback.View `json:"question"`
	NeedsVerification bool          `json:"needs_verification"`
	SiteKey           string        `json:"turnstile_site_key,omitempty"`
	Preview           bool          `json:"preview"`
	Next              string        `json:"next"`
	Back              string        `json:"back,omitempty"`
}

func GetQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index := ordinal(r)
		rt, ok := resolve(app, w, r, true)
		if !ok {
			return
		}

		page, err := controller(app, r, rt).Load(r.Context(), index)
		if err != nil {
			flowError(w, r, "feedback.load", err)
			return
		}
		if page.Redirect != nil {
			http.Redirect(w, r, rt.path(*page.Redirect), http.StatusTemporaryRedirect)
			return
		}

		resp := questionResponse{
			Restaurant:        rt.restaurant.Name,
			FormID:            rt.flow.Form.ID,
			FormName:          rt.flow.Form.Name,
			Index:             page.Index,
			Total:             page.Total,
			IsFirst:           page.IsFirst,
			IsLast:            page.IsLast,
			Question:          page.View,
			NeedsVerification: page.NeedsVerification,
			Preview:           rt.flow.Preview,
			Next:              actionPath(rt, page.Index, "next"),
		}
		if page.NeedsVerification {
			resp.SiteKey = app.TurnstileSiteKey
		}
		if !page.IsFirst {
			resp.Back = actionPath(rt, page.Index, "back")
		}
		render.JSON(w, r, resp)
	}
}

func actionPath(rt route, index int, action string) string {
	return fmt.Sprintf("%s/q/%d/%s%s", rt.base(), index, action, rt.query(true))
}

type answerRequest struct {
	Value             json.RawMessage `json:"value"`
	VerificationToken string          `json:"verification_token"`
}

type transitionResponse struct {
	Direction feedback.Direction `json:"direction"`
	Location  string             `json:"location"`
}

func NextQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index := ordinal(r)
		rt, ok := resolve(app, w, r, true)
		if !ok {
			return
		}

		req := answerRequest{}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		c := controller(app, r, rt)
		var value feedback.Value
		if q, ok := c.QuestionAt(index); ok {
			if _, supported := feedback.FieldFor(q.Type); supported {
				v, err := feedback.Parse(q, req.Value)
				if err != nil {
					flowError(w, r, "feedback.parse", err)
					return
				}
				value = v
			}
		}

		tr, err := c.Next(r.Context(), index, value, req.VerificationToken)
		if err != nil {
			flowError(w, r, "feedback.next", err)
			return
		}
		render.JSON(w, r, transitionResponse{Direction: tr.Direction, Location: rt.path(tr.Target)})
	}
}

func PreviousQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index := ordinal(r)
		rt, ok := resolve(app, w, r, true)
		if !ok {
			return
		}

		tr, err := controller(app, r, rt).Back(r.Context(), index)
		if err != nil {
			flowError(w, r, "feedback.back", err)
			return
		}
		render.JSON(w, r, transitionResponse{Direction: tr.Direction, Location: rt.path(tr.Target)})
	}
}

func GetReward(app app.App) http.HandlerFunc {
	resolver := feedback.NewResolver(app.Platforms)

	return func(w http.ResponseWriter, r *http.Request) {
		rt, ok := resolve(app, w, r, false)
		if !ok {
			return
		}

		page, err := resolver.Resolve(r.Context(), state(app, r, rt), rt.restaurant, rt.flow.Form)
		if err != nil {
			flowError(w, r, "feedback.reward", err)
			return
		}
		render.JSON(w, r, page)
	}
}

// flowError writes err of the feedback flow with the status of its class.
func flowError(w http.ResponseWriter, r *http.Request, code string, err error) {
	var validation *feedback.ValidationError
	var verification *feedback.VerificationError
	var persist *feedback.PersistenceError

	body := httpx.ErrorBody{Error: feedback.Message(err)}
	switch {
	case errors.As(err, &validation):
		body.QuestionID = validation.QuestionID
		httpx.LogJSON(w, r, http.StatusUnprocessableEntity, log.DebugLevel, code, err, body)
	case errors.As(err, &verification):
		httpx.LogJSON(w, r, http.StatusForbidden, log.InfoLevel, code, err, body)
	case errors.As(err, &persist):
		httpx.LogJSON(w, r, http.StatusServiceUnavailable, log.ErrorLevel, code, err, body)
	default:
		httpx.LogJSON(w, r, http.StatusInternalServerError, log.ErrorLevel, code, err, body)
	}
}
